package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/propshare/propshare/blockchain_listener"
	"github.com/propshare/propshare/config"
	"github.com/propshare/propshare/handlers"
	"github.com/propshare/propshare/ledger"
	"github.com/propshare/propshare/registry"
	"github.com/propshare/propshare/services"
	"github.com/propshare/propshare/storage"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := buildLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	switch cfg.Store.Driver {
	case "postgres":
		db, err := storage.NewDB(cfg.Store.DSN, cfg.Store.MigrationsDir, log)
		if err != nil {
			log.Fatal("connect to database", zap.Error(err))
		}
		store = db
	case "memory", "":
		store = storage.NewMemory()
	default:
		log.Fatal("unknown store driver", zap.String("driver", cfg.Store.Driver))
	}
	defer store.Close()

	var mirror *ledger.SolanaMirror
	if cfg.Solana.Enabled {
		mirror, err = ledger.NewSolanaMirror(cfg.Solana.RPCURL, cfg.Solana.FeePayerKey, log)
		if err != nil {
			log.Fatal("initialize solana mirror", zap.Error(err))
		}
	}

	tokens := ledger.NewSet()
	payment := ledger.NewMemory("USDP")

	accreditation := registry.NewAccreditation(store, log)
	roles := registry.NewRoles(store)
	ownership := registry.NewOwnership(store, cfg.Platform.PortfolioCache, log)

	// The interface must stay nil when the mirror is disabled; a typed nil
	// would defeat the engine's nil check.
	var saleMirror services.ChainMirror
	if mirror != nil {
		saleMirror = mirror
	}

	propertyService := services.NewPropertyService(store, tokens, roles, log)
	saleService := services.NewSaleService(store, tokens, payment, accreditation, ownership, roles, saleMirror, log)
	marketplaceService := services.NewMarketplaceService(store, tokens, payment, ownership,
		cfg.Platform.MarketplaceFeeBps, cfg.Platform.FeeCollector, log)
	stakingService := services.NewStakingService(store, tokens, ownership, services.StakingConfig{
		RewardRateBps:   cfg.Staking.RewardRateBps,
		FeeBps:          cfg.Staking.FeeBps,
		MinLockDuration: cfg.Staking.MinLockDuration,
		FeeCollector:    cfg.Platform.FeeCollector,
	}, log)
	revenueService := services.NewRevenueService(store, tokens, payment, stakingService, roles, log)
	governanceService := services.NewGovernanceService(store, tokens, roles, services.GovernanceConfig{
		VotingDelay:       cfg.Governance.VotingDelay,
		VotingPeriod:      cfg.Governance.VotingPeriod,
		ExecutionDelay:    cfg.Governance.ExecutionDelay,
		ExecutionGrace:    cfg.Governance.ExecutionGrace,
		ProposalThreshold: cfg.Governance.ProposalThreshold,
		QuorumBps:         cfg.Governance.QuorumBps,
		MajorityBps:       cfg.Governance.MajorityBps,
	}, log)

	for _, load := range []func() error{
		accreditation.Load, roles.Load, ownership.Load,
		propertyService.Load, saleService.Load, marketplaceService.Load,
		stakingService.Load, revenueService.Load, governanceService.Load,
	} {
		if err := load(); err != nil {
			log.Fatal("rehydrate state", zap.Error(err))
		}
	}

	if cfg.Platform.Admin != "" {
		if err := roles.Grant(cfg.Platform.Admin, registry.RoleAdmin); err != nil {
			log.Fatal("grant bootstrap admin", zap.Error(err))
		}
	}

	listener := blockchain_listener.New(tokens, stakingService, ownership, propertyService,
		mirror, cfg.Solana.WSURL, cfg.Platform.AuditInterval, log)
	go listener.Run(ctx)

	propertyHandler := handlers.NewPropertyHandler(propertyService)
	saleHandler := handlers.NewSaleHandler(saleService)
	marketplaceHandler := handlers.NewMarketplaceHandler(marketplaceService)
	stakingHandler := handlers.NewStakingHandler(stakingService)
	revenueHandler := handlers.NewRevenueHandler(revenueService)
	governanceHandler := handlers.NewGovernanceHandler(governanceService)
	registryHandler := handlers.NewRegistryHandler(accreditation, roles, ownership)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)

	r.Route("/properties", func(r chi.Router) {
		r.Post("/", propertyHandler.RegisterProperty)
		r.Get("/", propertyHandler.ListProperties)
		r.Get("/{id}", propertyHandler.GetProperty)

		r.Route("/{id}/sale", func(r chi.Router) {
			r.Put("/", saleHandler.ConfigureSale)
			r.Delete("/", saleHandler.DeactivateSale)
			r.Get("/", saleHandler.SaleInfo)
			r.Post("/purchase", saleHandler.Purchase)
		})

		r.Route("/{id}/staking", func(r chi.Router) {
			r.Post("/stake", stakingHandler.Stake)
			r.Post("/unstake", stakingHandler.Unstake)
			r.Get("/{holder}", stakingHandler.Position)
		})

		r.Route("/{id}/revenue", func(r chi.Router) {
			r.Get("/", revenueHandler.Accumulator)
			r.Post("/distribute", revenueHandler.Distribute)
			r.Post("/claim", revenueHandler.Claim)
			r.Get("/claimable/{holder}", revenueHandler.Claimable)
		})
	})

	r.Route("/marketplace/listings", func(r chi.Router) {
		r.Post("/", marketplaceHandler.CreateListing)
		r.Get("/", marketplaceHandler.ActiveListings)
		r.Get("/{id}", marketplaceHandler.GetListing)
		r.Post("/{id}/fill", marketplaceHandler.FillListing)
		r.Post("/{id}/cancel", marketplaceHandler.CancelListing)
	})

	r.Route("/governance/proposals", func(r chi.Router) {
		r.Post("/", governanceHandler.CreateProposal)
		r.Get("/", governanceHandler.ListByProperty)
		r.Get("/{id}", governanceHandler.GetProposal)
		r.Post("/{id}/votes", governanceHandler.Vote)
		r.Get("/{id}/votes", governanceHandler.GetVotes)
		r.Post("/{id}/refresh", governanceHandler.Refresh)
		r.Post("/{id}/execute", governanceHandler.Execute)
	})

	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/portfolio", registryHandler.Portfolio)
		r.Get("/accreditation", registryHandler.GetAccreditation)
		r.Put("/accreditation", registryHandler.SetAccredited)
		r.Post("/roles", registryHandler.GrantRole)
		r.Delete("/roles/{role}", registryHandler.RevokeRole)
	})

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Info("server listening", zap.String("addr", cfg.HTTP.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
