package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/defaults"
	"github.com/wonny/acr/internal/ingest"
	"github.com/wonny/acr/internal/store"
	"github.com/wonny/acr/internal/study"
	"github.com/wonny/acr/pkg/config"
	"github.com/wonny/acr/pkg/database"
	"github.com/wonny/acr/pkg/logger"
	"github.com/wonny/acr/pkg/redis"
)

// app holds the shared dependencies of every command
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB // nil without DATABASE_URL
	redis *redis.Client
	cache *redis.Cache
	calc  *composite.Calculator
}

// setup loads config, logger and the optional backing services
func setup() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}

	// 3. Composite policy
	a.calc, err = composite.NewCalculator(cfg.Composite.MinAgencies, cfg.Composite.RoundingBias)
	if err != nil {
		return nil, err
	}

	// 4. Database (optional)
	a.db, err = database.New(cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Debug("Persistence disabled")
	case err != nil:
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		log.Info("Connected to database")
	}

	// 5. Redis (disabled client when REDIS_ENABLED=false)
	a.redis, err = redis.New(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.cache = redis.NewCache(a.redis, "acr")

	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// loader picks the rating source selected by --source
func (a *app) loader() (contracts.RatingLoader, error) {
	switch source {
	case "", "files":
		return ingest.NewFileLoader(a.cfg.Feeds, a.log), nil
	case "db":
		if a.db == nil {
			return nil, database.ErrDisabled
		}
		return ingest.NewPGLoader(a.db.Pool), nil
	default:
		return nil, fmt.Errorf("unknown --source %q (files|db)", source)
	}
}

// loadStore fills the Rating Series Store from the selected source
func (a *app) loadStore(ctx context.Context) (*store.Store, error) {
	l, err := a.loader()
	if err != nil {
		return nil, err
	}
	return ingest.LoadStore(ctx, l, a.log)
}

// universe resolves the bond list: explicit ids first, then UNIVERSE_FILE,
// then every bond in the store
func (a *app) universe(ids string, st *store.Store) (*contracts.Universe, error) {
	if ids != "" {
		var list []string
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				list = append(list, id)
			}
		}
		return ingest.UniverseFromIDs(list), nil
	}
	if a.cfg.Feeds.UniversePath != "" {
		return ingest.ReadUniverseFile(a.cfg.Feeds.UniversePath)
	}
	if st == nil {
		return nil, fmt.Errorf("no universe: pass --ids or set UNIVERSE_FILE")
	}
	return ingest.UniverseFromIDs(st.Bonds()), nil
}

// defaults loads every configured default source against a universe
func (a *app) defaults(u *contracts.Universe) (*defaults.Registry, error) {
	return defaults.Load(a.cfg.Feeds, u, a.log)
}

// repository returns the study repository, or nil without a database
func (a *app) repository() *study.Repository {
	if a.db == nil {
		return nil
	}
	return study.NewRepository(a.db.Pool)
}
