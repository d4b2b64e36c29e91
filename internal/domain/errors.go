package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different payload")

	ErrUnsupportedEventType  = errors.New("unsupported event type")
	ErrUnsupportedEventClass = errors.New("unsupported event class")
	ErrInvalidEnvelope       = errors.New("invalid envelope")

	ErrMemberInactive     = errors.New("member inactive")
	ErrAlreadyPlaced      = errors.New("member already holds a position under this sponsor")
	ErrMatrixFull         = errors.New("no free slot within matrix depth cap")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrWithdrawalPending  = errors.New("withdrawal already pending")
	ErrNotWithdrawable    = errors.New("investment not withdrawable")
	ErrAmountExceedsLimit = errors.New("amount exceeds withdrawable ceiling")
	ErrReasonRequired     = errors.New("reason required for emergency withdrawal")
	ErrCommissionSettled  = errors.New("commission already settled")
	ErrPoolInvalid        = errors.New("distribution pool must be positive")
	ErrDistributionFailed = errors.New("distribution failed")
)
