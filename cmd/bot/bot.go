// Package bot assembles the settlement engine, scanner and gas estimator
// from configuration, against a live chain or the in-memory world.
package bot

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/trenchy69/FLashloanbotonETH/config"
	"github.com/trenchy69/FLashloanbotonETH/custody"
	"github.com/trenchy69/FLashloanbotonETH/dex/sushiswap"
	"github.com/trenchy69/FLashloanbotonETH/dex/uniswap"
	"github.com/trenchy69/FLashloanbotonETH/engine"
	"github.com/trenchy69/FLashloanbotonETH/flashloan"
	"github.com/trenchy69/FLashloanbotonETH/gas"
	"github.com/trenchy69/FLashloanbotonETH/scanner"
	"github.com/trenchy69/FLashloanbotonETH/sim"
	"github.com/trenchy69/FLashloanbotonETH/utils/metrics"
	"github.com/trenchy69/FLashloanbotonETH/utils/monitor"
)

// Bot is the assembled application.
type Bot struct {
	cfg       *config.Config
	engine    *engine.Engine
	scanner   *scanner.Scanner
	estimator *gas.Estimator
	monitor   *monitor.SystemMonitor
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// New assembles a bot from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DryRun {
		return newDryRun(cfg, logger)
	}
	return newLive(cfg, logger)
}

func newLive(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	client, err := ethclient.Dial(cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}

	secure, err := config.LoadSecureConfig()
	if err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secure.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	self := config.Address(cfg.Engine)
	ledger, err := custody.NewERC20Ledger(client, self, opts)
	if err != nil {
		return nil, err
	}

	pools := flashloan.NewFactoryRegistry(client, config.Address(cfg.FlashFactory), common.FromHex(cfg.PairInitCodeHash), opts)

	venue1, err := uniswap.NewUniswapV2(client, config.Address(cfg.Venue1.Factory), config.Address(cfg.Venue1.Router), opts)
	if err != nil {
		return nil, err
	}
	venue2, err := sushiswap.NewSushiswapV2(client, config.Address(cfg.Venue2.Factory), config.Address(cfg.Venue2.Router), opts)
	if err != nil {
		return nil, err
	}

	routes, err := engine.BuildMenu(
		config.Address(cfg.Tokens.Base),
		config.Address(cfg.Tokens.SecondaryA),
		config.Address(cfg.Tokens.SecondaryB),
		venue1, venue2,
	)
	if err != nil {
		return nil, err
	}

	estimator := gas.NewEstimator(client, logger, cfg.GasRefreshInterval.Std())

	return assemble(cfg, engine.Params{
		Self:              self,
		Owner:             config.Address(cfg.Owner),
		Beneficiary:       config.Address(cfg.Beneficiary),
		Ledger:            ledger,
		Pools:             pools,
		Routes:            routes,
		DeadlineTolerance: cfg.DeadlineTolerance.Std(),
		Logger:            logger,
	}, estimator, logger)
}

// newDryRun builds the bot over the in-memory world, seeded with a small
// market where the secondary-a forward loop is profitable.
func newDryRun(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	world := sim.NewWorld()

	base := config.Address(cfg.Tokens.Base)
	secondaryA := config.Address(cfg.Tokens.SecondaryA)
	secondaryB := config.Address(cfg.Tokens.SecondaryB)
	self := sim.Account("dry-run/engine")
	owner := sim.Account("dry-run/owner")

	venue1 := sim.NewVenue(world, cfg.Venue1.Name)
	venue2 := sim.NewVenue(world, cfg.Venue2.Name)

	amount := cfg.TradeAmountInt()
	inventory := new(big.Int).Mul(amount, big.NewInt(100))

	// Venue 1 sells secondary-a at 2:1, venue 2 buys it back at a premium
	// that clears fee and floor. Secondary-b round trips at a loss.
	venue1.SetRate(base, secondaryA, 2, 1)
	venue2.SetRate(secondaryA, base, 52, 100)
	venue1.SetRate(base, secondaryB, 3, 1)
	venue2.SetRate(secondaryB, base, 33, 100)
	venue2.SetRate(base, secondaryA, 1, 2)
	venue1.SetRate(secondaryA, base, 49, 100)
	venue2.SetRate(base, secondaryB, 1, 3)
	venue1.SetRate(secondaryB, base, 33, 100)

	world.Mint(secondaryA, venue1.Address(), inventory)
	world.Mint(secondaryB, venue1.Address(), inventory)
	world.Mint(base, venue2.Address(), inventory)
	world.Mint(secondaryA, venue2.Address(), inventory)
	world.Mint(secondaryB, venue2.Address(), inventory)
	world.Mint(base, venue1.Address(), inventory)

	registry := sim.NewRegistry()
	poolA := sim.NewPool(world, base, secondaryA)
	poolB := sim.NewPool(world, base, secondaryB)
	world.Mint(base, poolA.Address(), inventory)
	world.Mint(base, poolB.Address(), inventory)
	registry.Add(poolA)
	registry.Add(poolB)

	routes, err := engine.BuildMenu(base, secondaryA, secondaryB, venue1, venue2)
	if err != nil {
		return nil, err
	}

	b, err := assemble(cfg, engine.Params{
		Self:              self,
		Owner:             owner,
		Ledger:            sim.NewLedger(world, self),
		Pools:             registry,
		Routes:            routes,
		DeadlineTolerance: cfg.DeadlineTolerance.Std(),
		Logger:            logger,
	}, gas.NewEstimator(nil, logger, 0), logger)
	if err != nil {
		return nil, err
	}

	poolA.SetBorrower(b.engine)
	poolB.SetBorrower(b.engine)
	return b, nil
}

func assemble(cfg *config.Config, params engine.Params, estimator *gas.Estimator, logger *zap.Logger) (*Bot, error) {
	params.Metrics = engine.NewMetrics(metrics.Registry())

	eng, err := engine.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	trigger := func(ctx context.Context, opp scanner.Opportunity) error {
		route := params.Routes[opp.Variant]
		return eng.StartArbitrage(ctx, params.Owner, route.BaseAsset(), opp.AmountIn, opp.Variant)
	}

	sc, err := scanner.New(scanner.Config{
		Routes:       params.Routes,
		AmountIn:     cfg.TradeAmountInt(),
		MinProfit:    cfg.MinProfitInt(),
		Interval:     cfg.ScanInterval.Std(),
		DedupeWindow: cfg.DedupeWindow.Std(),
	}, estimator, trigger, logger, scanner.NewMetrics(metrics.Registry()))
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	return &Bot{
		cfg:       cfg,
		engine:    eng,
		scanner:   sc,
		estimator: estimator,
		monitor:   monitor.NewSystemMonitor(logger, metrics.Registry(), 30*time.Second),
		logger:    logger,
	}, nil
}

// Engine exposes the settlement engine for one-shot commands.
func (b *Bot) Engine() *engine.Engine {
	return b.engine
}

// Start runs the scanner, gas refresh and metrics endpoint until the context
// is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting settlement bot",
		zap.Bool("dry_run", b.cfg.DryRun),
		zap.String("trade_amount", b.cfg.TradeAmount),
	)

	b.estimator.Start(ctx)
	b.monitor.Start(ctx)

	if b.cfg.PrometheusEnabled {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := metrics.Serve(ctx, b.cfg.PrometheusEndpoint, b.logger); err != nil {
				b.logger.Error("Metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.scanner.Run(ctx); err != nil && ctx.Err() == nil {
			b.logger.Error("Scanner stopped", zap.Error(err))
		}
	}()

	return nil
}

// Stop waits for background work to drain.
func (b *Bot) Stop() {
	b.logger.Info("Stopping settlement bot")
	b.estimator.Stop()
	b.monitor.Stop()
	b.wg.Wait()
}
