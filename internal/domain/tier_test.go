package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) TierCatalog {
	t.Helper()
	catalog, err := NewTierCatalog([]Tier{
		{TierID: "tier_basic", Name: "Basic", Rank: 1, MinInvestment: decimal.NewFromInt(500), AnnualRate: decimal.NewFromInt(6), Level1Rate: decimal.NewFromInt(5)},
		{TierID: "tier_starter", Name: "Starter", Rank: 2, MinInvestment: decimal.NewFromInt(1000), AnnualRate: decimal.NewFromInt(8), Level1Rate: decimal.NewFromInt(7), Level2Rate: decimal.NewFromInt(2)},
		{TierID: "tier_builder", Name: "Builder", Rank: 3, MinInvestment: decimal.NewFromInt(2500), AnnualRate: decimal.NewFromInt(10), Level1Rate: decimal.NewFromInt(8), Level2Rate: decimal.NewFromInt(3), Level3Rate: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	return catalog
}

func TestCatalogResolve(t *testing.T) {
	catalog := testCatalog(t)

	cases := []struct {
		name   string
		amount int64
		tierID string
		ok     bool
	}{
		{"below lowest threshold", 499, "", false},
		{"exactly at lowest threshold", 500, "tier_basic", true},
		{"between thresholds", 1100, "tier_starter", true},
		{"exactly at boundary", 2500, "tier_builder", true},
		{"above highest", 99999, "tier_builder", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tier, ok := catalog.Resolve(decimal.NewFromInt(tc.amount))
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, tc.tierID, tier.TierID)
			}
		})
	}
}

func TestCatalogValidation(t *testing.T) {
	_, err := NewTierCatalog([]Tier{
		{TierID: "a", Name: "A", Rank: 2, MinInvestment: decimal.NewFromInt(100)},
	})
	require.Error(t, err, "rank must start at 1")

	_, err = NewTierCatalog([]Tier{
		{TierID: "a", Name: "A", Rank: 1, MinInvestment: decimal.NewFromInt(1000)},
		{TierID: "b", Name: "B", Rank: 2, MinInvestment: decimal.NewFromInt(1000)},
	})
	require.Error(t, err, "thresholds must strictly increase")

	_, err = NewTierCatalog([]Tier{
		{TierID: "a", Name: "A", Rank: 1, MinInvestment: decimal.NewFromInt(100)},
		{TierID: "a", Name: "Dup", Rank: 2, MinInvestment: decimal.NewFromInt(200)},
	})
	require.Error(t, err, "duplicate ids rejected")
}

func TestCatalogProgressClamped(t *testing.T) {
	catalog := testCatalog(t)
	basic, _ := catalog.ByID("tier_basic")
	starter, _ := catalog.ByID("tier_starter")

	require.True(t, catalog.Progress(basic, starter, decimal.NewFromInt(750)).Equal(decimal.NewFromInt(50)))
	require.True(t, catalog.Progress(basic, starter, decimal.NewFromInt(100)).Equal(decimal.Zero))
	require.True(t, catalog.Progress(basic, starter, decimal.NewFromInt(5000)).Equal(decimal.NewFromInt(100)))
}

func TestCatalogNext(t *testing.T) {
	catalog := testCatalog(t)
	basic, _ := catalog.ByID("tier_basic")
	next, ok := catalog.Next(basic)
	require.True(t, ok)
	require.Equal(t, "tier_starter", next.TierID)

	builder, _ := catalog.ByID("tier_builder")
	_, ok = catalog.Next(builder)
	require.False(t, ok, "highest tier has no next")
}

func TestLevelRate(t *testing.T) {
	catalog := testCatalog(t)
	starter, _ := catalog.ByID("tier_starter")
	require.True(t, starter.LevelRate(1).Equal(decimal.NewFromInt(7)))
	require.True(t, starter.LevelRate(2).Equal(decimal.NewFromInt(2)))
	require.True(t, starter.LevelRate(3).IsZero(), "starter pays no level 3")
	require.True(t, starter.LevelRate(4).IsZero())
}

func TestSlotsAtLevel(t *testing.T) {
	require.Equal(t, 3, SlotsAtLevel(3, 1))
	require.Equal(t, 9, SlotsAtLevel(3, 2))
	require.Equal(t, 27, SlotsAtLevel(3, 3))
	require.Equal(t, 0, SlotsAtLevel(3, 0))
	require.Equal(t, 0, SlotsAtLevel(0, 2))
}
