package scanner

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/trenchy69/FLashloanbotonETH/dex"
	"github.com/trenchy69/FLashloanbotonETH/engine"
	"github.com/trenchy69/FLashloanbotonETH/sim"
)

func newFixture(t *testing.T) (*sim.World, *sim.Venue, *sim.Venue, map[engine.PathVariant]engine.Route) {
	t.Helper()
	world := sim.NewWorld()
	base := sim.Account("token/base")
	secondaryA := sim.Account("token/secondary-a")
	secondaryB := sim.Account("token/secondary-b")
	venue1 := sim.NewVenue(world, "venue-1")
	venue2 := sim.NewVenue(world, "venue-2")

	// Only the secondary-a forward loop is priced; b routes fail to quote.
	venue1.SetRate(base, secondaryA, 2, 1)
	venue2.SetRate(secondaryA, base, 310, 600)
	venue2.SetRate(base, secondaryA, 1, 2)
	venue1.SetRate(secondaryA, base, 1, 2)

	routes, err := engine.BuildMenu(base, secondaryA, secondaryB, venue1, venue2)
	require.NoError(t, err)
	return world, venue1, venue2, routes
}

func TestScanOnceFindsClearingRoute(t *testing.T) {
	_, _, _, routes := newFixture(t)

	var triggered []Opportunity
	trigger := func(_ context.Context, opp Opportunity) error {
		triggered = append(triggered, opp)
		return nil
	}

	s, err := New(Config{
		Routes:   routes,
		AmountIn: big.NewInt(300),
	}, nil, trigger, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	found := s.ScanOnce(context.Background())
	require.Len(t, found, 1)

	opp := found[0]
	assert.Equal(t, engine.PathSecondaryAForward, opp.Variant)
	// 300 -> 600 -> 310; obligation is 301, no gas, net 9.
	assert.Equal(t, int64(310), opp.ExpectedOut.Int64())
	assert.Equal(t, int64(301), opp.Obligation.Int64())
	assert.Equal(t, int64(9), opp.NetProfit.Int64())

	require.Len(t, triggered, 1)
	assert.Equal(t, opp.Variant, triggered[0].Variant)
}

func TestScanOnceRespectsProfitFloor(t *testing.T) {
	_, _, _, routes := newFixture(t)

	trigger := func(context.Context, Opportunity) error {
		t.Fatal("trigger must not fire below the floor")
		return nil
	}

	s, err := New(Config{
		Routes:    routes,
		AmountIn:  big.NewInt(300),
		MinProfit: big.NewInt(9),
	}, nil, trigger, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	// Net profit of 9 does not exceed a floor of 9.
	found := s.ScanOnce(context.Background())
	assert.Empty(t, found)
}

// reserveVenue decorates a venue with fixed pool reserves.
type reserveVenue struct {
	dex.Venue
	reserves dex.Reserves
}

func (v *reserveVenue) GetReserves(context.Context, common.Address, common.Address) (*dex.Reserves, error) {
	r := v.reserves
	return &r, nil
}

func TestScanOnceSkipsShallowPools(t *testing.T) {
	world := sim.NewWorld()
	base := sim.Account("token/base")
	secondaryA := sim.Account("token/secondary-a")
	secondaryB := sim.Account("token/secondary-b")

	inner1 := sim.NewVenue(world, "venue-1")
	inner2 := sim.NewVenue(world, "venue-2")
	inner1.SetRate(base, secondaryA, 2, 1)
	inner2.SetRate(secondaryA, base, 310, 600)

	deep := dex.Reserves{Reserve0: big.NewInt(100000), Reserve1: big.NewInt(100000)}
	venue1 := &reserveVenue{Venue: inner1, reserves: deep}
	venue2 := &reserveVenue{Venue: inner2, reserves: deep}

	routes, err := engine.BuildMenu(base, secondaryA, secondaryB, venue1, venue2)
	require.NoError(t, err)

	var fired int
	trigger := func(context.Context, Opportunity) error {
		fired++
		return nil
	}

	s, err := New(Config{
		Routes:       routes,
		AmountIn:     big.NewInt(300),
		DedupeWindow: time.Nanosecond,
	}, nil, trigger, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	found := s.ScanOnce(context.Background())
	require.Len(t, found, 1)
	require.Equal(t, 1, fired)

	// The first hop's pool no longer covers the 300 input, so the same
	// route must be screened out.
	venue1.reserves = dex.Reserves{Reserve0: big.NewInt(300), Reserve1: big.NewInt(100000)}
	found = s.ScanOnce(context.Background())
	assert.Empty(t, found)
	assert.Equal(t, 1, fired)
}

func TestScanOnceDedupesIdenticalOpportunities(t *testing.T) {
	_, _, _, routes := newFixture(t)

	var fired int
	trigger := func(context.Context, Opportunity) error {
		fired++
		return nil
	}

	s, err := New(Config{
		Routes:       routes,
		AmountIn:     big.NewInt(300),
		DedupeWindow: time.Hour,
	}, nil, trigger, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	first := s.ScanOnce(context.Background())
	second := s.ScanOnce(context.Background())

	// The opportunity is still reported each round but triggered once.
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, 1, fired)
}

func TestScannerValidation(t *testing.T) {
	_, _, _, routes := newFixture(t)
	trigger := func(context.Context, Opportunity) error { return nil }
	logger := zaptest.NewLogger(t)

	_, err := New(Config{AmountIn: big.NewInt(1)}, nil, trigger, logger, nil)
	require.Error(t, err)

	_, err = New(Config{Routes: routes, AmountIn: big.NewInt(0)}, nil, trigger, logger, nil)
	require.Error(t, err)

	_, err = New(Config{Routes: routes, AmountIn: big.NewInt(1)}, nil, nil, logger, nil)
	require.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	_, _, _, routes := newFixture(t)
	trigger := func(context.Context, Opportunity) error { return nil }

	s, err := New(Config{
		Routes:   routes,
		AmountIn: big.NewInt(300),
		Interval: time.Millisecond,
	}, nil, trigger, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = s.Run(ctx)
	require.Error(t, err)
}

func TestOpportunityFingerprint(t *testing.T) {
	a := Opportunity{Variant: engine.PathSecondaryAForward, AmountIn: big.NewInt(300), ExpectedOut: big.NewInt(310)}
	b := Opportunity{Variant: engine.PathSecondaryAForward, AmountIn: big.NewInt(300), ExpectedOut: big.NewInt(310)}
	c := Opportunity{Variant: engine.PathSecondaryAReverse, AmountIn: big.NewInt(300), ExpectedOut: big.NewInt(310)}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
