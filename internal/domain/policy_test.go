package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPercentForBands(t *testing.T) {
	schedule := DefaultPenaltySchedule()

	cases := []struct {
		elapsed int
		percent int64
	}{
		{0, 25},
		{2, 25},
		{3, 15},
		{5, 15},
		{6, 10},
		{9, 5},
		{11, 5},
		{12, 0},
		{24, 0},
		{-1, 25},
	}
	for _, tc := range cases {
		got := schedule.PercentFor(tc.elapsed)
		require.Truef(t, got.Equal(decimal.NewFromInt(tc.percent)), "elapsed %d: want %d, got %s", tc.elapsed, tc.percent, got)
	}
}

func TestPercentOfRounds(t *testing.T) {
	got := PercentOf(decimal.NewFromInt(1000), decimal.NewFromInt(7))
	require.True(t, got.Equal(decimal.NewFromInt(70)))

	got = PercentOf(decimal.NewFromFloat(33.33), decimal.NewFromInt(25))
	require.Equal(t, "8.33", got.StringFixed(2))
}

func TestMonthsBetween(t *testing.T) {
	base := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	require.Equal(t, 0, MonthsBetween(base, base))
	require.Equal(t, 0, MonthsBetween(base, base.AddDate(0, 0, 27)))
	require.Equal(t, 1, MonthsBetween(base, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 0, MonthsBetween(base, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)), "day short of a full month")
	require.Equal(t, 12, MonthsBetween(base, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 0, MonthsBetween(base, base.AddDate(0, -2, 0)), "never negative")
}

func TestComputePenalty(t *testing.T) {
	schedule := DefaultPenaltySchedule()
	amount := decimal.NewFromInt(1000)

	require.True(t, ComputePenalty(schedule, amount, 0, 12).Equal(decimal.NewFromInt(250)))
	require.True(t, ComputePenalty(schedule, amount, 7, 12).Equal(decimal.NewFromInt(100)))
	require.True(t, ComputePenalty(schedule, amount, 12, 12).IsZero(), "zero at the lock-in boundary")
	require.True(t, ComputePenalty(schedule, amount, 30, 12).IsZero())
}

func TestWithdrawalTransitions(t *testing.T) {
	require.True(t, CanTransition(WithdrawalStatusPending, WithdrawalStatusApproved))
	require.True(t, CanTransition(WithdrawalStatusPending, WithdrawalStatusRejected))
	require.True(t, CanTransition(WithdrawalStatusApproved, WithdrawalStatusProcessed))

	require.False(t, CanTransition(WithdrawalStatusPending, WithdrawalStatusProcessed), "no skipping approval")
	require.False(t, CanTransition(WithdrawalStatusApproved, WithdrawalStatusRejected))
	require.False(t, CanTransition(WithdrawalStatusRejected, WithdrawalStatusApproved))
	require.False(t, CanTransition(WithdrawalStatusProcessed, WithdrawalStatusApproved))
}

func TestRemainingPaid(t *testing.T) {
	comm := ReferralCommission{Amount: decimal.NewFromInt(70), ClawedBackAmount: decimal.NewFromFloat(17.5)}
	require.Equal(t, "52.50", comm.RemainingPaid().StringFixed(2))

	comm.ClawedBackAmount = decimal.NewFromInt(80)
	require.True(t, comm.RemainingPaid().IsZero(), "never negative")
}
