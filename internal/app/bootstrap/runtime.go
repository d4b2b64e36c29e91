package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	eventadapter "github.com/growthfund/matrix-engine/internal/adapters/events"
	grpcadapter "github.com/growthfund/matrix-engine/internal/adapters/grpc"
	httpadapter "github.com/growthfund/matrix-engine/internal/adapters/http"
	"github.com/growthfund/matrix-engine/internal/adapters/postgres"
	"github.com/growthfund/matrix-engine/internal/application"
)

type Runtime struct {
	cfg        Config
	logger     *zap.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	worker     *eventadapter.Worker
}

func NewRuntime(_ context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("service", cfg.ServiceID))

	repos := postgres.NewRepositories()
	consumer := eventadapter.NewMemoryConsumer()
	domainPub := eventadapter.NewMemoryDomainPublisher()
	analyticsPub := eventadapter.NewMemoryAnalyticsPublisher()
	dlqPub := eventadapter.NewLoggingDLQPublisher(logger)

	svc := application.NewService(application.Dependencies{
		Config: cfg.Engine,
		Logger: logger,
		Members: repos.Members, TierHistory: repos.TierHistory, Investments: repos.Investments,
		Positions: repos.Positions, Commissions: repos.Commissions, Clawbacks: repos.Clawbacks,
		Withdrawals: repos.Withdrawals, Distributions: repos.Distributions, Shares: repos.Shares,
		Ledger: repos.Ledger, AuditLogs: repos.AuditLogs, Idempotency: repos.Idempotency,
		EventDedup: repos.EventDedup, Outbox: repos.Outbox,
		DomainEvents: domainPub, Analytics: analyticsPub, DLQ: dlqPub,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	grpcadapter.Register(grpcServer, grpcadapter.NewMatrixInternalServer(svc))
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return nil, err
	}

	worker := eventadapter.NewWorker(logger, consumer, dlqPub, svc, cfg.Engine.ConsumerPollInterval)
	return &Runtime{cfg: cfg, logger: logger, httpServer: httpServer, grpcServer: grpcServer, grpcLis: lis, worker: worker}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)
	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()
	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.Error("runtime failure", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	_ = r.logger.Sync()
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		if err := r.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	select {
	case <-ctx.Done():
		_ = r.logger.Sync()
		return nil
	case err := <-errCh:
		_ = r.logger.Sync()
		return err
	}
}
