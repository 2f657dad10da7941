// Package database opens the store named by the connection URL and hands
// back the repositories built on it.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/personal-tasks/internal/repo"
)

type Stores struct {
	Tasks repo.TaskRepository
	Users repo.UserRepository
	close func(context.Context) error
}

func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// IsMongo reports whether url points at MongoDB rather than Postgres.
func IsMongo(url string) bool {
	return strings.HasPrefix(url, "mongodb://") || strings.HasPrefix(url, "mongodb+srv://")
}

// Open connects, checks the connection and prepares the schema or indexes.
func Open(ctx context.Context, url, mongoDB string, logger *zap.Logger) (*Stores, error) {
	if IsMongo(url) {
		return openMongo(ctx, url, mongoDB, logger)
	}
	return openPostgres(ctx, url, logger)
}

func openPostgres(ctx context.Context, url string, logger *zap.Logger) (*Stores, error) {
	pool, err := pgxpool.New(ctx, url) // Создаем новое соединение к БД
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil { // Пытаемся пингануть БД
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := repo.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Successfully connected to the Database!", zap.String("driver", "postgres"))

	return &Stores{
		Tasks: repo.NewTaskRepo(pool),
		Users: repo.NewUserRepo(pool),
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context, url, dbName string, logger *zap.Logger) (*Stores, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	if err := repo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	logger.Info("Successfully connected to the Database!", zap.String("driver", "mongodb"), zap.String("database", dbName))

	return &Stores{
		Tasks: repo.NewMongoTaskRepo(db),
		Users: repo.NewMongoUserRepo(db),
		close: client.Disconnect,
	}, nil
}
