package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/growthfund/matrix-engine/internal/application"
	"github.com/growthfund/matrix-engine/internal/domain"
)

type Config struct {
	ServiceID string
	HTTPPort  int
	GRPCPort  int
	Engine    application.Config
}

type tierEntry struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Rank              int      `yaml:"rank"`
	MinInvestment     float64  `yaml:"min_investment"`
	AnnualRate        float64  `yaml:"annual_rate"`
	Level1Rate        float64  `yaml:"level1_rate"`
	Level2Rate        float64  `yaml:"level2_rate"`
	Level3Rate        float64  `yaml:"level3_rate"`
	ReinvestBonusRate float64  `yaml:"reinvest_bonus_rate"`
	Benefits          []string `yaml:"benefits"`
}

type bandEntry struct {
	UpToMonths int     `yaml:"up_to_months"`
	Percent    float64 `yaml:"percent"`
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Engine struct {
		MatrixWidth       int     `yaml:"matrix_width"`
		MatrixDepthCap    int     `yaml:"matrix_depth_cap"`
		CommissionDepth   int     `yaml:"commission_depth"`
		LockInMonths      int     `yaml:"lock_in_months"`
		PartialCeilingPct float64 `yaml:"partial_ceiling_pct"`
		AnnualEligibleAge int     `yaml:"annual_eligible_age_months"`
	} `yaml:"engine"`
	Tiers         []tierEntry `yaml:"tiers"`
	PenaltyBands  []bandEntry `yaml:"penalty_bands"`
	ClawbackBands []bandEntry `yaml:"clawback_bands"`
	Runtime       struct {
		IdempotencyTTLHours  int `yaml:"idempotency_ttl_hours"`
		EventDedupTTLHours   int `yaml:"event_dedup_ttl_hours"`
		ConsumerPollSeconds  int `yaml:"consumer_poll_seconds"`
		OutboxFlushBatchSize int `yaml:"outbox_flush_batch_size"`
	} `yaml:"runtime"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID: "matrix-engine",
		HTTPPort:  8080,
		GRPCPort:  9090,
		Engine: application.Config{
			ServiceName:          "matrix-engine",
			MatrixWidth:          3,
			MatrixDepthCap:       10,
			CommissionDepth:      3,
			LockInMonths:         12,
			PartialCeilingPct:    decimal.NewFromInt(50),
			AnnualEligibleAge:    12,
			IdempotencyTTL:       7 * 24 * time.Hour,
			EventDedupTTL:        7 * 24 * time.Hour,
			ConsumerPollInterval: 2 * time.Second,
			OutboxFlushBatchSize: 100,
		},
	}
	if raw, err := os.ReadFile(path); err == nil {
		var f configFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
			cfg.Engine.ServiceName = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Engine.MatrixWidth > 0 {
			cfg.Engine.MatrixWidth = f.Engine.MatrixWidth
		}
		if f.Engine.MatrixDepthCap > 0 {
			cfg.Engine.MatrixDepthCap = f.Engine.MatrixDepthCap
		}
		if f.Engine.CommissionDepth > 0 {
			cfg.Engine.CommissionDepth = f.Engine.CommissionDepth
		}
		if f.Engine.LockInMonths > 0 {
			cfg.Engine.LockInMonths = f.Engine.LockInMonths
		}
		if f.Engine.PartialCeilingPct > 0 {
			cfg.Engine.PartialCeilingPct = decimal.NewFromFloat(f.Engine.PartialCeilingPct)
		}
		if f.Engine.AnnualEligibleAge > 0 {
			cfg.Engine.AnnualEligibleAge = f.Engine.AnnualEligibleAge
		}
		if len(f.Tiers) > 0 {
			catalog, err := buildCatalog(f.Tiers)
			if err != nil {
				return Config{}, err
			}
			cfg.Engine.Catalog = catalog
		}
		if len(f.PenaltyBands) > 0 {
			cfg.Engine.PenaltySchedule = buildSchedule(f.PenaltyBands)
		}
		if len(f.ClawbackBands) > 0 {
			cfg.Engine.ClawbackSchedule = buildSchedule(f.ClawbackBands)
		}
		if f.Runtime.IdempotencyTTLHours > 0 {
			cfg.Engine.IdempotencyTTL = time.Duration(f.Runtime.IdempotencyTTLHours) * time.Hour
		}
		if f.Runtime.EventDedupTTLHours > 0 {
			cfg.Engine.EventDedupTTL = time.Duration(f.Runtime.EventDedupTTLHours) * time.Hour
		}
		if f.Runtime.ConsumerPollSeconds > 0 {
			cfg.Engine.ConsumerPollInterval = time.Duration(f.Runtime.ConsumerPollSeconds) * time.Second
		}
		if f.Runtime.OutboxFlushBatchSize > 0 {
			cfg.Engine.OutboxFlushBatchSize = f.Runtime.OutboxFlushBatchSize
		}
	}
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.Engine.MatrixWidth = envInt("MATRIX_WIDTH", cfg.Engine.MatrixWidth)
	cfg.Engine.MatrixDepthCap = envInt("MATRIX_DEPTH_CAP", cfg.Engine.MatrixDepthCap)
	cfg.Engine.CommissionDepth = envInt("COMMISSION_DEPTH", cfg.Engine.CommissionDepth)
	cfg.Engine.LockInMonths = envInt("LOCK_IN_MONTHS", cfg.Engine.LockInMonths)
	cfg.Engine.AnnualEligibleAge = envInt("ANNUAL_ELIGIBLE_AGE_MONTHS", cfg.Engine.AnnualEligibleAge)
	cfg.Engine.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.Engine.IdempotencyTTL.Hours()))) * time.Hour
	cfg.Engine.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.Engine.EventDedupTTL.Hours()))) * time.Hour
	cfg.Engine.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.Engine.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.Engine.OutboxFlushBatchSize = envInt("OUTBOX_FLUSH_BATCH_SIZE", cfg.Engine.OutboxFlushBatchSize)
	if cfg.Engine.Catalog.Empty() {
		cfg.Engine.Catalog = DefaultCatalog()
	}
	return cfg, nil
}

func buildCatalog(entries []tierEntry) (domain.TierCatalog, error) {
	tiers := make([]domain.Tier, 0, len(entries))
	for _, e := range entries {
		tiers = append(tiers, domain.Tier{
			TierID:            e.ID,
			Name:              e.Name,
			Rank:              e.Rank,
			MinInvestment:     decimal.NewFromFloat(e.MinInvestment),
			AnnualRate:        decimal.NewFromFloat(e.AnnualRate),
			Level1Rate:        decimal.NewFromFloat(e.Level1Rate),
			Level2Rate:        decimal.NewFromFloat(e.Level2Rate),
			Level3Rate:        decimal.NewFromFloat(e.Level3Rate),
			ReinvestBonusRate: decimal.NewFromFloat(e.ReinvestBonusRate),
			Benefits:          e.Benefits,
		})
	}
	return domain.NewTierCatalog(tiers)
}

func buildSchedule(entries []bandEntry) domain.PolicySchedule {
	out := make(domain.PolicySchedule, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.PolicyBand{UpToMonths: e.UpToMonths, Percent: decimal.NewFromFloat(e.Percent)})
	}
	return out
}

// DefaultCatalog is the built-in tier registry used when no tiers are
// configured. Thresholds are cumulative invested amounts.
func DefaultCatalog() domain.TierCatalog {
	catalog, err := domain.NewTierCatalog([]domain.Tier{
		{TierID: "tier_basic", Name: "Basic", Rank: 1, MinInvestment: decimal.NewFromInt(500), AnnualRate: decimal.NewFromInt(6), Level1Rate: decimal.NewFromInt(5), ReinvestBonusRate: decimal.NewFromInt(1)},
		{TierID: "tier_starter", Name: "Starter", Rank: 2, MinInvestment: decimal.NewFromInt(1000), AnnualRate: decimal.NewFromInt(8), Level1Rate: decimal.NewFromInt(7), Level2Rate: decimal.NewFromInt(2), ReinvestBonusRate: decimal.NewFromInt(1)},
		{TierID: "tier_builder", Name: "Builder", Rank: 3, MinInvestment: decimal.NewFromInt(2500), AnnualRate: decimal.NewFromInt(10), Level1Rate: decimal.NewFromInt(8), Level2Rate: decimal.NewFromInt(3), Level3Rate: decimal.NewFromInt(1), ReinvestBonusRate: decimal.NewFromInt(2)},
		{TierID: "tier_growth", Name: "Growth", Rank: 4, MinInvestment: decimal.NewFromInt(5000), AnnualRate: decimal.NewFromInt(12), Level1Rate: decimal.NewFromInt(9), Level2Rate: decimal.NewFromInt(4), Level3Rate: decimal.NewFromInt(2), ReinvestBonusRate: decimal.NewFromInt(2)},
		{TierID: "tier_elite", Name: "Elite", Rank: 5, MinInvestment: decimal.NewFromInt(10000), AnnualRate: decimal.NewFromInt(15), Level1Rate: decimal.NewFromInt(10), Level2Rate: decimal.NewFromInt(5), Level3Rate: decimal.NewFromInt(3), ReinvestBonusRate: decimal.NewFromInt(3)},
	})
	if err != nil {
		panic(err)
	}
	return catalog
}

func envInt(name string, fallback int) int {
	if raw := os.Getenv(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
