// Package scanner polls the route menu for settlement opportunities and
// triggers the engine when a route clears fees and gas.
package scanner

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trenchy69/FLashloanbotonETH/dex"
	"github.com/trenchy69/FLashloanbotonETH/engine"
	"github.com/trenchy69/FLashloanbotonETH/flashloan"
	"github.com/trenchy69/FLashloanbotonETH/gas"
)

// Opportunity is one route quote that clears the repayment obligation, gas
// and the configured profit floor.
type Opportunity struct {
	Variant     engine.PathVariant
	AmountIn    *big.Int
	ExpectedOut *big.Int
	Obligation  *big.Int
	GasCost     *big.Int
	NetProfit   *big.Int
}

// Fingerprint identifies an opportunity for deduplication: same route, same
// size, same quote.
func (o *Opportunity) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(o.Variant))
	h.Write(buf[:])
	h.Write(o.AmountIn.Bytes())
	h.Write(o.ExpectedOut.Bytes())
	return h.Sum64()
}

// TriggerFunc receives opportunities worth settling.
type TriggerFunc func(ctx context.Context, opp Opportunity) error

// Config tunes the scanner.
type Config struct {
	Routes   map[engine.PathVariant]engine.Route
	AmountIn *big.Int

	// MinProfit is the floor the net result must exceed. Nil means any
	// positive net clears.
	MinProfit *big.Int

	// Interval paces scan rounds.
	Interval time.Duration

	// DedupeWindow suppresses re-triggering an identical opportunity.
	DedupeWindow time.Duration
}

// Scanner quotes every route each round and hands clearing opportunities to
// the trigger.
type Scanner struct {
	cfg     Config
	gas     *gas.Estimator
	trigger TriggerFunc
	limiter *rate.Limiter
	seen    *lru.Cache
	logger  *zap.Logger
	metrics *Metrics

	mu      sync.Mutex
	running bool
}

// Metrics exposes scanner counters.
type Metrics struct {
	rounds        prometheus.Counter
	opportunities prometheus.Counter
	triggered     prometheus.Counter
	triggerErrors prometheus.Counter
	quoteFailures prometheus.Counter
	bestNet       prometheus.Gauge
}

// NewMetrics creates scanner metrics, registering them when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_rounds_total",
			Help: "Completed scan rounds",
		}),
		opportunities: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_opportunities_total",
			Help: "Route quotes that cleared obligation, gas and profit floor",
		}),
		triggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_triggers_total",
			Help: "Opportunities handed to the settlement trigger",
		}),
		triggerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_trigger_errors_total",
			Help: "Triggers that returned an error",
		}),
		quoteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_quote_failures_total",
			Help: "Route quotes that failed",
		}),
		bestNet: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_best_net_profit",
			Help: "Best net profit seen in the latest round, smallest units",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.rounds, m.opportunities, m.triggered, m.triggerErrors, m.quoteFailures, m.bestNet)
	}
	return m
}

// New creates a scanner. The gas estimator may be nil, in which case gas
// cost is treated as zero.
func New(cfg Config, estimator *gas.Estimator, trigger TriggerFunc, logger *zap.Logger, metrics *Metrics) (*Scanner, error) {
	if len(cfg.Routes) == 0 {
		return nil, fmt.Errorf("route menu cannot be empty")
	}
	if cfg.AmountIn == nil || cfg.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("scan amount must be positive")
	}
	if trigger == nil {
		return nil, fmt.Errorf("trigger cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = time.Minute
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	seen, err := lru.New(1024)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		cfg:     cfg,
		gas:     estimator,
		trigger: trigger,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		seen:    seen,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Run scans until the context is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scanner already running")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("Scanner started",
		zap.Int("routes", len(s.cfg.Routes)),
		zap.String("amount_in", s.cfg.AmountIn.String()),
		zap.Duration("interval", s.cfg.Interval),
	)

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.ScanOnce(ctx)
	}
}

// ScanOnce quotes every route and triggers each clearing opportunity.
func (s *Scanner) ScanOnce(ctx context.Context) []Opportunity {
	defer s.metrics.rounds.Inc()

	var found []Opportunity
	best := new(big.Int)

	for variant := engine.PathVariant(0); variant < engine.NumPathVariants; variant++ {
		route, ok := s.cfg.Routes[variant]
		if !ok {
			continue
		}

		opp, err := s.quote(ctx, route)
		if err != nil {
			s.metrics.quoteFailures.Inc()
			s.logger.Debug("Route quote failed",
				zap.String("variant", variant.String()),
				zap.Error(err),
			)
			continue
		}

		if opp.NetProfit.Cmp(best) > 0 {
			best.Set(opp.NetProfit)
		}
		if !s.clears(opp) {
			continue
		}

		s.metrics.opportunities.Inc()
		found = append(found, opp)

		if s.recentlySeen(opp) {
			continue
		}

		s.logger.Info("Opportunity found",
			zap.String("variant", opp.Variant.String()),
			zap.String("amount_in", opp.AmountIn.String()),
			zap.String("expected_out", opp.ExpectedOut.String()),
			zap.String("obligation", opp.Obligation.String()),
			zap.String("gas_cost", opp.GasCost.String()),
			zap.String("net_profit", opp.NetProfit.String()),
		)

		s.metrics.triggered.Inc()
		if err := s.trigger(ctx, opp); err != nil {
			s.metrics.triggerErrors.Inc()
			s.logger.Warn("Trigger failed",
				zap.String("variant", opp.Variant.String()),
				zap.Error(err),
			)
		}
	}

	netFloat, _ := new(big.Float).SetInt(best).Float64()
	s.metrics.bestNet.Set(netFloat)
	return found
}

// quote walks a route hop by hop at the configured size and prices the full
// attempt against it.
func (s *Scanner) quote(ctx context.Context, route engine.Route) (Opportunity, error) {
	amount := s.cfg.AmountIn
	for _, hop := range route.Hops {
		amounts, err := hop.Venue.GetAmountsOut(ctx, amount, []common.Address{hop.AssetIn, hop.AssetOut})
		if err != nil {
			return Opportunity{}, fmt.Errorf("hop %s -> %s on %s: %w",
				hop.AssetIn.Hex(), hop.AssetOut.Hex(), hop.Venue.Name(), err)
		}
		out := amounts[len(amounts)-1]
		if out.Sign() <= 0 {
			return Opportunity{}, fmt.Errorf("hop on %s quotes zero output", hop.Venue.Name())
		}
		if err := screenDepth(ctx, hop, amount, out); err != nil {
			return Opportunity{}, err
		}
		amount = out
	}

	gasCost := new(big.Int)
	if s.gas != nil {
		gasCost = s.gas.EstimateSettlementCost(len(route.Hops))
	}

	obligation := flashloan.Obligation(s.cfg.AmountIn)
	net := new(big.Int).Sub(amount, obligation)
	net.Sub(net, gasCost)

	return Opportunity{
		Variant:     route.Variant,
		AmountIn:    new(big.Int).Set(s.cfg.AmountIn),
		ExpectedOut: amount,
		Obligation:  obligation,
		GasCost:     gasCost,
		NetProfit:   net,
	}, nil
}

// screenDepth rejects a hop whose pool reserves cannot absorb it: the
// input side must hold more than the hop input and the output side more
// than the quoted output. Venues that expose no reserves are not screened.
func screenDepth(ctx context.Context, hop engine.Hop, amountIn, amountOut *big.Int) error {
	reader, ok := hop.Venue.(dex.ReserveReader)
	if !ok {
		return nil
	}
	reserves, err := reader.GetReserves(ctx, hop.AssetIn, hop.AssetOut)
	if err != nil {
		return fmt.Errorf("failed to read reserves on %s: %w", hop.Venue.Name(), err)
	}
	if reserves.Reserve0.Cmp(amountIn) <= 0 || reserves.Reserve1.Cmp(amountOut) <= 0 {
		return fmt.Errorf("pool on %s too shallow for %s in", hop.Venue.Name(), amountIn)
	}
	return nil
}

// clears reports whether the net profit exceeds the configured floor.
func (s *Scanner) clears(opp Opportunity) bool {
	floor := s.cfg.MinProfit
	if floor == nil {
		floor = new(big.Int)
	}
	return opp.NetProfit.Cmp(floor) > 0
}

// recentlySeen dedupes identical opportunities inside the window.
func (s *Scanner) recentlySeen(opp Opportunity) bool {
	key := opp.Fingerprint()
	if last, ok := s.seen.Get(key); ok {
		if time.Since(last.(time.Time)) < s.cfg.DedupeWindow {
			return true
		}
	}
	s.seen.Add(key, time.Now())
	return false
}
