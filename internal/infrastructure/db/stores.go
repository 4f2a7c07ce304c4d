// Package db selects and opens the store backends named in the configuration.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eduplatform/identity-api/internal/core/ports"
	"github.com/eduplatform/identity-api/internal/infrastructure/db/memory"
	mongostore "github.com/eduplatform/identity-api/internal/infrastructure/db/mongo"
	"github.com/eduplatform/identity-api/internal/infrastructure/db/postgres"
	redisstore "github.com/eduplatform/identity-api/internal/infrastructure/db/redis"
	"github.com/eduplatform/identity-api/internal/infrastructure/http/handlers"
	"github.com/eduplatform/identity-api/internal/pkg/config"
)

// Stores bundles the repositories and the connections behind them.
type Stores struct {
	Accounts      ports.AccountRepository
	Courses       ports.CourseRepository
	RefreshTokens ports.RefreshTokenRepository

	// Health holds one pinger per opened connection.
	Health map[string]handlers.Pinger

	mongoClient *mongo.Client
	redisClient *goredis.Client
	pg          *sqlx.DB
}

// Open connects every backend the configuration uses, prepares indexes and
// schema, and wires the repositories. On error, connections opened so far are
// closed.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Stores, err error) {
	s := &Stores{Health: make(map[string]handlers.Pinger)}
	defer func() {
		if err != nil {
			_ = s.Close(context.Background())
		}
	}()

	var mdb *mongo.Database
	if cfg.Uses(config.StoreMongo) {
		s.mongoClient, mdb, err = mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "identity-api",
		})
		if err != nil {
			return nil, err
		}
		if err = mongostore.EnsureIndexes(ctx, mdb); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		s.Health["mongodb"] = mongostore.Pinger{Client: s.mongoClient}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	}

	switch cfg.AccountStore {
	case config.StoreMongo:
		s.Accounts = mongostore.NewAccountRepository(mdb)
		s.Courses = mongostore.NewCourseRepository(mdb)
	case config.StoreMemory:
		s.Accounts = memory.NewAccountRepository()
		s.Courses = memory.NewCourseRepository()
		log.Warn().Msg("accounts are kept in memory and lost on restart")
	default:
		return nil, fmt.Errorf("unknown account store %q", cfg.AccountStore)
	}

	switch cfg.RefreshTokenStore {
	case config.StoreMongo:
		s.RefreshTokens = mongostore.NewRefreshTokenRepository(mdb)
	case config.StoreRedis:
		s.redisClient, err = redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		s.RefreshTokens = redisstore.NewRefreshTokenStore(s.redisClient, cfg.Redis.ExpiredRetention)
		s.Health["redis"] = redisstore.Pinger{Client: s.redisClient}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	case config.StorePostgres:
		s.pg, err = postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err = postgres.Migrate(ctx, s.pg); err != nil {
			return nil, err
		}
		s.RefreshTokens = postgres.NewRefreshTokenRepository(s.pg)
		s.Health["postgres"] = postgres.Pinger{DB: s.pg}
		log.Info().Msg("connected to postgres")
	case config.StoreMemory:
		s.RefreshTokens = memory.NewRefreshTokenRepository()
		log.Warn().Msg("refresh tokens are kept in memory and lost on restart")
	default:
		return nil, fmt.Errorf("unknown refresh token store %q", cfg.RefreshTokenStore)
	}

	return s, nil
}

// Close releases every open connection and reports all failures.
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	if s.mongoClient != nil {
		errs = append(errs, s.mongoClient.Disconnect(ctx))
	}
	if s.redisClient != nil {
		errs = append(errs, s.redisClient.Close())
	}
	if s.pg != nil {
		errs = append(errs, s.pg.Close())
	}
	return errors.Join(errs...)
}
