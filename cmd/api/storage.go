package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/alert"
	"github.com/uyirkavalan/uyirkavalan/internal/api/handler"
	"github.com/uyirkavalan/uyirkavalan/internal/audit"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/chat"
	"github.com/uyirkavalan/uyirkavalan/internal/database"
	"github.com/uyirkavalan/uyirkavalan/internal/inbox"
	"github.com/uyirkavalan/uyirkavalan/internal/navigation"
	"github.com/uyirkavalan/uyirkavalan/internal/sos"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
)

// stores holds one repository per domain package.
type stores struct {
	boats     boat.Repository
	audit     audit.Repository
	inbox     inbox.Repository
	sos       sos.Repository
	chat      chat.Repository
	alerts    alert.Repository
	ports     navigation.PortRepository
	tracks    navigation.TrackRepository
	snapshots weather.SnapshotRepository

	checks []handler.ReadinessCheck
	close  func()
}

// openStores builds the repositories for the STORAGE backend.
// "memory" keeps everything in process and loses it on restart.
func openStores(ctx context.Context, backend string, log zerolog.Logger) (*stores, error) {
	switch backend {
	case "memory":
		log.Warn().Msg("using in-memory storage - data is lost on restart")
		return &stores{
			boats:     boat.NewInMemoryRepository(),
			audit:     audit.NewInMemoryRepository(),
			inbox:     inbox.NewInMemoryRepository(),
			sos:       sos.NewInMemoryRepository(),
			chat:      chat.NewInMemoryRepository(),
			alerts:    alert.NewInMemoryRepository(),
			ports:     navigation.NewInMemoryPortRepository(navigation.DefaultPorts(time.Now())...),
			tracks:    navigation.NewInMemoryTrackRepository(),
			snapshots: weather.NewInMemoryRepository(),
			close:     func() {},
		}, nil
	case "", "postgres":
		return openPostgres(ctx, log)
	default:
		return nil, fmt.Errorf("unknown STORAGE backend %q", backend)
	}
}

func openPostgres(ctx context.Context, log zerolog.Logger) (*stores, error) {
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", dbConfig.Redacted()).Msg("database connected")

	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	ports := navigation.NewPostgresPortRepository(pool)
	if err := ports.Seed(ctx, navigation.DefaultPorts(time.Now())); err != nil {
		pool.Close()
		return nil, fmt.Errorf("seed ports: %w", err)
	}

	return &stores{
		boats:     boat.NewPostgresRepository(pool),
		audit:     audit.NewPostgresRepository(pool),
		inbox:     inbox.NewPostgresRepository(pool),
		sos:       sos.NewPostgresRepository(pool),
		chat:      chat.NewPostgresRepository(pool),
		alerts:    alert.NewPostgresRepository(pool),
		ports:     ports,
		tracks:    navigation.NewPostgresTrackRepository(pool),
		snapshots: weather.NewPostgresRepository(pool),
		checks:    []handler.ReadinessCheck{{Name: "database", Check: pingCheck(pool)}},
		close:     pool.Close,
	}, nil
}

func pingCheck(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}
