// Package app assembles the service from configuration: repositories,
// use cases, external clients, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/leagueroom/fantasy-blocks/external/feed"
	"github.com/leagueroom/fantasy-blocks/internal/config"
	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/dispatch"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/pricing"
	"github.com/leagueroom/fantasy-blocks/internal/domain/scoring"
	"github.com/leagueroom/fantasy-blocks/internal/domain/team"
	"github.com/leagueroom/fantasy-blocks/internal/infrastructure/account/gatekeeper"
	"github.com/leagueroom/fantasy-blocks/internal/infrastructure/jobqueue"
	cacherepo "github.com/leagueroom/fantasy-blocks/internal/infrastructure/repository/cache"
	"github.com/leagueroom/fantasy-blocks/internal/infrastructure/repository/memory"
	"github.com/leagueroom/fantasy-blocks/internal/infrastructure/repository/postgres"
	"github.com/leagueroom/fantasy-blocks/internal/interfaces/httpapi"
	basecache "github.com/leagueroom/fantasy-blocks/internal/platform/cache"
	idgen "github.com/leagueroom/fantasy-blocks/internal/platform/id"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
	"github.com/leagueroom/fantasy-blocks/internal/platform/resilience"
	"github.com/leagueroom/fantasy-blocks/internal/usecase"
)

type repositories struct {
	blocks     block.Repository
	fixtures   fixture.Repository
	teams      team.Repository
	players    player.Repository
	prices     pricing.Repository
	entries    fantasy.Repository
	scores     scoring.Repository
	dispatches dispatch.Repository
}

// NewHTTPServer wires every layer and returns a server ready to listen.
// With an empty DB_URL the service runs on seeded in-memory repositories,
// which is the mode integration tests and local demos use.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, error) {
	if logger == nil {
		logger = logging.Default()
	}

	repos, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	blockSvc := usecase.NewBlockService(repos.blocks, repos.fixtures, block.PartitionConfig{
		Gap:      cfg.BlockPartitionGap,
		LockLead: cfg.BlockLockLead,
	}, logger)
	priceSvc := usecase.NewPriceService(repos.prices, repos.players, repos.blocks, cfg.DefaultPlayerPrice, logger)
	entrySvc := usecase.NewEntryService(
		repos.entries,
		repos.blocks,
		repos.players,
		priceSvc,
		fantasy.DefaultRules(),
		idgen.NewRandomGenerator(),
		logger,
	)
	scoringSvc := usecase.NewScoringService(
		repos.blocks,
		repos.entries,
		repos.scores,
		repos.players,
		basecache.NewStore(cfg.CacheTTL),
		cfg.ScoringWorkerCount,
		logger,
	)
	ingestionSvc := usecase.NewIngestionService(repos.fixtures, repos.players, repos.teams, blockSvc, logger)
	dashboardSvc := usecase.NewDashboardService(blockSvc, entrySvc, scoringSvc, fantasy.DefaultRules())
	feedSyncSvc := usecase.NewFeedSyncService(
		feedProvider(cfg, logger),
		ingestionSvc,
		scoringSvc,
		usecase.FeedSyncConfig{Enabled: cfg.FeedEnabled},
		logger,
	)
	schedulerSvc := usecase.NewSchedulerService(
		repos.blocks,
		repos.fixtures,
		feedSyncSvc,
		jobQueue(cfg, logger),
		repos.dispatches,
		usecase.SchedulerConfig{
			FeedSyncInterval:   cfg.SyncScheduleInterval,
			ScoreSyncDelay:     cfg.SyncScoreDelay,
			ScoreRetryInterval: cfg.SyncScoreRetryInterval,
		},
		logger,
	)

	// Blocks are derived data. Rebuild them from whatever fixtures the
	// store already holds so the API serves a schedule right after boot;
	// a feed sync later replaces or extends it.
	if _, err := blockSvc.RebuildFromStoredFixtures(ctx); err != nil {
		logger.WarnContext(ctx, "initial block derivation skipped", "error", err)
	}

	verifier := gatekeeper.NewClient(
		&http.Client{Timeout: cfg.GatekeeperTimeout},
		cfg.GatekeeperBaseURL,
		cfg.GatekeeperIntrospectPath,
		cfg.GatekeeperAdminKey,
		resilience.CircuitBreakerConfig{
			Enabled:          cfg.GatekeeperCircuitEnabled,
			FailureThreshold: cfg.GatekeeperCircuitFailureCount,
			OpenTimeout:      cfg.GatekeeperCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.GatekeeperCircuitHalfOpenMax,
		},
		logger,
	)

	handler := httpapi.NewHandler(
		blockSvc,
		entrySvc,
		priceSvc,
		scoringSvc,
		ingestionSvc,
		dashboardSvc,
		schedulerSvc,
		repos.dispatches,
		logger,
	)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

func buildRepositories(ctx context.Context, cfg config.Config, logger *logging.Logger) (repositories, error) {
	if cfg.DBURL == "" {
		blockRepo := memory.NewBlockRepository()
		repos := repositories{
			blocks:     blockRepo,
			fixtures:   memory.NewFixtureRepository(memory.SeedFixtures()),
			teams:      memory.NewTeamRepository(memory.SeedTeams()),
			players:    memory.NewPlayerRepository(memory.SeedPlayers()),
			prices:     memory.NewPriceRepository(),
			entries:    memory.NewEntryRepository(blockRepo),
			scores:     memory.NewScoringRepository(),
			dispatches: memory.NewDispatchRepository(),
		}
		logger.InfoContext(ctx, "storage ready", "mode", "memory")
		return withCache(repos, cfg), nil
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return repositories{}, err
	}
	if err := postgres.BootstrapSeed(ctx, db); err != nil {
		return repositories{}, fmt.Errorf("bootstrap seed: %w", err)
	}

	repos := repositories{
		blocks:     postgres.NewBlockRepository(db),
		fixtures:   postgres.NewFixtureRepository(db),
		teams:      postgres.NewTeamRepository(db),
		players:    postgres.NewPlayerRepository(db),
		prices:     postgres.NewPriceRepository(db),
		entries:    postgres.NewEntryRepository(db),
		scores:     postgres.NewScoringRepository(db),
		dispatches: postgres.NewJobDispatchRepository(db),
	}
	logger.InfoContext(ctx, "storage ready", "mode", "postgres", "db", dbNameFromURL(cfg.DBURL))
	return withCache(repos, cfg), nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// withCache layers read-through caching over the hot repositories. The
// dispatch repository stays uncached: webhook handlers read their own
// writes and stale dispatch rows would retrigger jobs.
func withCache(repos repositories, cfg config.Config) repositories {
	if !cfg.CacheEnabled {
		return repos
	}

	store := basecache.NewStore(cfg.CacheTTL)
	repos.blocks = cacherepo.NewBlockRepository(repos.blocks, store)
	repos.fixtures = cacherepo.NewFixtureRepository(repos.fixtures, store)
	repos.teams = cacherepo.NewTeamRepository(repos.teams, store)
	repos.players = cacherepo.NewPlayerRepository(repos.players, store)
	repos.prices = cacherepo.NewPriceRepository(repos.prices, store)
	repos.entries = cacherepo.NewEntryRepository(repos.entries, store)
	repos.scores = cacherepo.NewScoringRepository(repos.scores, store)
	return repos
}

func feedProvider(cfg config.Config, logger *logging.Logger) usecase.FeedProvider {
	if !cfg.FeedEnabled {
		return nil
	}

	return feed.NewClient(feed.ClientConfig{
		BaseURL:    cfg.FeedBaseURL,
		Token:      cfg.FeedToken,
		Timeout:    cfg.FeedTimeout,
		MaxRetries: cfg.FeedMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FeedCircuitEnabled,
			FailureThreshold: cfg.FeedCircuitFailureCount,
			OpenTimeout:      cfg.FeedCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FeedCircuitHalfOpenMaxReq,
		},
	})
}

func jobQueue(cfg config.Config, logger *logging.Logger) usecase.JobQueue {
	if !cfg.QStashEnabled {
		return usecase.NewNoopJobQueue()
	}

	return jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
		BaseURL:          cfg.QStashBaseURL,
		Token:            cfg.QStashToken,
		TargetBaseURL:    cfg.QStashTargetBaseURL,
		Retries:          cfg.QStashRetries,
		InternalJobToken: cfg.InternalJobToken,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.QStashCircuitEnabled,
			FailureThreshold: cfg.QStashCircuitFailureCount,
			OpenTimeout:      cfg.QStashCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
		},
	}, logger)
}
