package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/skateduel/internal/config"
	"github.com/mcoot/skateduel/internal/dependencies/clock"
	"github.com/mcoot/skateduel/internal/dependencies/ids"
	"github.com/mcoot/skateduel/internal/events"
	"github.com/mcoot/skateduel/internal/services/arbitration"
	"github.com/mcoot/skateduel/internal/services/auth"
	"github.com/mcoot/skateduel/internal/services/deadline"
	"github.com/mcoot/skateduel/internal/services/match"
	"github.com/mcoot/skateduel/internal/services/reward"
	"github.com/mcoot/skateduel/internal/services/turn"
	"github.com/mcoot/skateduel/internal/storage"
	"github.com/mcoot/skateduel/internal/storage/memory"
	pgstorage "github.com/mcoot/skateduel/internal/storage/postgres"
	redisstorage "github.com/mcoot/skateduel/internal/storage/redis"
	"github.com/mcoot/skateduel/internal/storage/retry"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	IDs       ids.Generator
	Publisher events.Publisher

	// Services
	Deadlines   *deadline.Resolver
	Rewards     *reward.Issuer
	Matches     *match.Manager
	Turns       *turn.Controller
	Arbitration *arbitration.Service
	AuthService *auth.Service
}

// Rules are the tunable match rules shared by every backend
type Rules struct {
	RemoteWindow      time.Duration
	ProposerPolicy    string
	ArbitrationPolicy string
	ArbitrationQuorum int
	Rewards           reward.PolicyTable
}

// DefaultRules returns the standard S.K.A.T.E. rules
func DefaultRules() Rules {
	return Rules{
		RemoteWindow:      deadline.DefaultWindow,
		ArbitrationQuorum: arbitration.DefaultQuorum,
		Rewards:           reward.DefaultPolicy(),
	}
}

// New creates an application from server configuration. The selected
// storage backend is opened (and migrated, for postgres) before services
// are wired; reads go through the retrying decorator.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.ReadRetries
	wrapped := retry.Wrap(store, retryCfg, logger)

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)

	rules := DefaultRules()
	rules.RemoteWindow = cfg.RemoteWindow
	rules.ProposerPolicy = cfg.ProposerPolicy
	rules.ArbitrationPolicy = cfg.ArbitrationPolicy
	rules.ArbitrationQuorum = cfg.ArbitrationQuorum

	authCfg := auth.Config{
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.JWTExpiry,
		Issuer:   cfg.JWTIssuer,
	}

	return newWithDependencies(wrapped, clock.New(), ids.New(), publisher, rules, authCfg, logger), nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Storage {
	case "", config.StorageMemory:
		logger.Info("using in-memory storage")
		return memory.New(), nil

	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.PoolSize = cfg.RedisPoolSize
		store, err := redisstorage.New(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		logger.Info("using redis storage")
		return store, nil

	case config.StoragePostgres:
		if cfg.RunMigrations {
			if err := pgstorage.RunMigrations(cfg.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}
		pgCfg := pgstorage.DefaultConfig()
		pgCfg.DSN = cfg.DatabaseURL
		pgCfg.MaxConns = cfg.DBMaxConns
		store, err := pgstorage.New(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		logger.Info("using postgres storage")
		return store, nil

	default:
		return nil, errors.New("invalid storage backend: must be 'memory', 'redis' or 'postgres'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	gen ids.Generator,
	publisher events.Publisher,
	rules Rules,
	authCfg auth.Config,
	logger *slog.Logger,
) *App {
	deadlines := deadline.NewResolver(clk, rules.RemoteWindow)
	rewards := reward.NewIssuer(store, gen, clk, publisher, rules.Rewards, logger)
	matches := match.NewManager(store, gen, clk, rewards, publisher, logger)
	turns := turn.NewController(store, gen, clk, deadlines, matches, match.PolicyByName(rules.ProposerPolicy), publisher, logger)
	jury := arbitration.NewService(store, gen, clk, turns, arbitration.PolicyByName(rules.ArbitrationPolicy, rules.ArbitrationQuorum), logger)
	authService := auth.New(store, clk, gen, authCfg)

	return &App{
		Storage:     store,
		Clock:       clk,
		IDs:         gen,
		Publisher:   publisher,
		Deadlines:   deadlines,
		Rewards:     rewards,
		Matches:     matches,
		Turns:       turns,
		Arbitration: jury,
		AuthService: authService,
	}
}

// Close flushes the publisher and releases the storage backend
func (a *App) Close() error {
	return errors.Join(a.Publisher.Close(), a.Storage.Close())
}
