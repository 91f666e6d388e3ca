// internal/app/runner.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/assembler"
	"github.com/HosicoLabs/Litterbox/internal/blockchain/solbc"
	"github.com/HosicoLabs/Litterbox/internal/config"
	"github.com/HosicoLabs/Litterbox/internal/events"
	"github.com/HosicoLabs/Litterbox/internal/metadata"
	"github.com/HosicoLabs/Litterbox/internal/price"
	"github.com/HosicoLabs/Litterbox/internal/scanner"
	"github.com/HosicoLabs/Litterbox/internal/session"
	"github.com/HosicoLabs/Litterbox/internal/status"
	"github.com/HosicoLabs/Litterbox/internal/submit"
	"github.com/HosicoLabs/Litterbox/internal/swap"
	"github.com/HosicoLabs/Litterbox/internal/utils/metrics"
	"github.com/HosicoLabs/Litterbox/internal/wallet"
)

// Runner wires the pipeline for one wallet and owns its lifetime.
type Runner struct {
	logger   *zap.Logger
	config   *config.Config
	signer   wallet.Signer
	bus      *events.Bus
	poller   *price.Poller
	session  *session.Session
	metrics  *metrics.Collector
	shutdown *ShutdownHandler
}

// Option customises a Runner.
type Option func(*options)

type options struct {
	signer     wallet.Signer
	registerer prometheus.Registerer
	httpClient *http.Client
}

// WithSigner replaces the local keypair signer built from config.
func WithSigner(s wallet.Signer) Option {
	return func(o *options) { o.signer = s }
}

// WithRegisterer registers metrics somewhere other than the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithHTTPClient sets the client shared by price, metadata and swap lookups.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// NewRunner builds every component from cfg. Nothing touches the network
// until Start.
func NewRunner(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Runner, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	assetRPC := cfg.Endpoints.AssetRPC
	if assetRPC == "" {
		assetRPC = cfg.RPCURL
	}

	m := metrics.NewCollector(o.registerer)
	client := solbc.NewClient(cfg.RPCURL, logger,
		solbc.WithRetries(cfg.RPCRetries),
		solbc.WithMetrics(m))

	signer := o.signer
	if signer == nil {
		w, err := wallet.FromConfig(cfg.Wallet)
		if err != nil {
			return nil, fmt.Errorf("load wallet: %w", err)
		}
		signer = wallet.NewLocalSigner(w, client, logger)
	}
	owner := signer.PublicKey()

	book := price.NewBook()
	nativeMint, targetMint := cfg.Native.Mint, cfg.Target.Mint
	aggCfg := price.AggregatorConfig{
		ChunkSize:      cfg.Price.ChunkSize,
		ChunkDelay:     cfg.Price.ChunkDelay,
		SourceTimeout:  cfg.Price.SourceTimeout,
		AcceptAnyDelay: cfg.Price.AcceptAnyDelay,
	}
	bulk := []price.Stage{
		{Source: price.NewJupiterV3(cfg.Endpoints.JupiterPriceV3, o.httpClient), AcceptAny: true},
		{Source: price.NewCoinGecko(cfg.Endpoints.CoinGecko, o.httpClient)},
		{Source: price.NewJupiterV2(cfg.Endpoints.JupiterPriceV2, o.httpClient)},
	}
	derived := price.NewQuoteDerived(price.QuoteDerivedConfig{
		BaseURL:        cfg.Endpoints.JupiterPriceQuote,
		NativeMint:     nativeMint,
		TargetMint:     targetMint,
		NativeDecimals: cfg.Native.Decimals,
		TargetDecimals: cfg.Target.Decimals,
		SanityMax:      cfg.Price.QuoteSanityMax,
		NativePrice: func() float64 {
			if p := book.Price(nativeMint); p > 0 {
				return p
			}
			return cfg.Price.FallbackNativePrice
		},
	}, o.httpClient)

	tokens := price.NewAggregator(aggCfg, logger, m, bulk...)
	target := price.NewAggregator(aggCfg, logger, m, append(append([]price.Stage{}, bulk...), price.Stage{Source: derived})...)
	poller := price.NewPoller(book, cfg.Price.PollInterval, logger,
		price.Target{Mint: nativeMint, Resolver: tokens},
		price.Target{Mint: targetMint, Resolver: target})

	bus := events.NewBus(logger, 128)
	poller.OnUpdate(func(mint string, p float64) {
		_ = bus.Publish(events.PricesUpdatedEvent{
			BaseEvent: events.NewBase(events.PricesUpdated),
			Prices:    map[string]float64{mint: p},
		})
	})

	swaps := swap.NewClient(swap.Config{
		QuoteURL:               cfg.Endpoints.SwapQuote,
		InstructionsURL:        cfg.Endpoints.SwapInstructions,
		SlippageBps:            cfg.Swap.SlippageBps,
		MaxPriorityFeeLamports: cfg.Swap.MaxPriorityFeeLamports,
		PriorityLevel:          cfg.Swap.PriorityLevel,
		Retries:                cfg.RPCRetries,
	}, o.httpClient, logger)

	asm := assembler.New(client, swaps, assembler.Config{
		RentPerAccount: cfg.TokenAccountRentExemption,
		NativeMint:     cfg.Native.PubKey(),
		NativeDecimals: cfg.Native.Decimals,
		TargetMint:     cfg.Target.PubKey(),
		FeeFraction:    cfg.FeeFraction,
		FeeCollector:   cfg.FeeCollectorKey(),
	}, logger)

	scan := scanner.New(client, tokens, scanner.Config{
		NativeMint:           cfg.Native.PubKey(),
		NativeDecimals:       cfg.Native.Decimals,
		TargetMint:           cfg.Target.PubKey(),
		LowValueThresholdUSD: cfg.LowValueThresholdUSD,
	}, logger, m)

	sess := session.New(session.Settings{
		NativeMint:     cfg.Native.PubKey(),
		NativeSymbol:   cfg.Native.Symbol,
		TargetMint:     cfg.Target.PubKey(),
		TargetSymbol:   cfg.Target.Symbol,
		ItemsPerPage:   cfg.ItemsPerPage,
		RentPerAccount: cfg.TokenAccountRentExemption,
		FeeFraction:    cfg.FeeFraction,
		RescanDelay:    cfg.RescanDelay,
	}, session.Deps{
		Owner:     owner,
		Scanner:   scan,
		Enricher:  metadata.NewEnricher(assetRPC, o.httpClient, logger),
		Assembler: asm,
		Submitter: submit.New(signer, logger, m),
		Book:      book,
		Poller:    poller,
		Status:    status.NewBoard(cfg.StatusClearAfter),
		Events:    bus,
		Metrics:   m,
		Logger:    logger,
	})

	r := &Runner{
		logger:   logger.Named("runner"),
		config:   cfg,
		signer:   signer,
		bus:      bus,
		poller:   poller,
		session:  sess,
		metrics:  m,
		shutdown: NewShutdownHandler(logger, 5*time.Second),
	}
	r.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return bus.Shutdown(ctx)
	})
	r.shutdown.AddFunc("session", func() error {
		sess.Close()
		return nil
	})
	return r, nil
}

// Start begins price polling.
func (r *Runner) Start() {
	r.logger.Info("Session started",
		zap.String("wallet", r.signer.PublicKey().String()),
		zap.String("cluster", r.config.ClusterID))
	r.session.Start()
}

// RefreshPrices resolves the native and target prices once, in the
// foreground. Used by one-shot commands that do not keep polling.
func (r *Runner) RefreshPrices(ctx context.Context) {
	r.poller.RefreshAll(ctx)
}

func (r *Runner) Session() *session.Session { return r.session }

func (r *Runner) Metrics() *metrics.Collector { return r.metrics }

// Subscribe forwards every pipeline event into ch. Events are dropped while
// ch is full. The handlers are detached on Shutdown before the session stops.
func (r *Runner) Subscribe(ch chan<- events.Event) []events.Subscription {
	h := events.Forward(ch)
	var subs []events.Subscription
	for _, t := range []events.EventType{
		events.ScanStarted,
		events.ScanCompleted,
		events.ScanFailed,
		events.PageEnriched,
		events.PricesUpdated,
		events.StatusChanged,
		events.ConversionFinished,
	} {
		subs = append(subs, r.bus.Subscribe(t, h))
	}
	r.shutdown.AddFunc("subscribers", func() error {
		for _, s := range subs {
			s.Unsubscribe()
		}
		return nil
	})
	return subs
}

// Shutdown stops the session first, then drains the bus.
func (r *Runner) Shutdown(ctx context.Context) error {
	err := r.shutdown.Shutdown(ctx)
	if err != nil {
		r.logger.Warn("Shutdown completed with errors", zap.Error(err))
	}
	return err
}
