package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/amqp"
	"quiz-attempt-service/internal/infra/memory"
	mongostore "quiz-attempt-service/internal/infra/mongo"
	pgstore "quiz-attempt-service/internal/infra/postgres"
	redisstore "quiz-attempt-service/internal/infra/redis"
	"quiz-attempt-service/internal/logging"
	"quiz-attempt-service/internal/metrics"
)

// backend is the set of repositories selected by the storage driver plus the
// optional Redis and AMQP collaborators.
type backend struct {
	quizzes     app.QuizRepository
	questions   app.QuestionRepository
	courses     app.CourseRepository
	attempts    app.AttemptRepository
	users       app.UserRepository
	discussions app.DiscussionStore
	locks       app.SubmitLock
	events      app.EventPublisher
	importer    catalogImporter
	closers     []func()
}

type catalogImporter interface {
	ImportCatalog(ctx context.Context, catalog domain.Catalog) error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, logger *logrus.Logger, m *metrics.Metrics) (*backend, error) {
	b := &backend{events: app.NopPublisher{}}
	if err := b.openStorage(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.quizzes = redisstore.NewQuizCache(client, b.quizzes, quizTTL, m)
		b.locks = redisstore.NewSubmitLock(client, config.TTLDuration(cfg.Redis.LockTTL, 30*time.Second))
		b.discussions = redisstore.NewDiscussionStore(client)
		logger.WithField("addr", cfg.Redis.Addr).Info("redis enabled")
	} else {
		b.quizzes = memory.NewQuizCache(b.quizzes, quizTTL, m)
	}

	if cfg.AMQP.URL != "" {
		pub, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pub.Close)
		b.events = pub
		logger.WithField("exchange", cfg.AMQP.Exchange).Info("event publishing enabled")
	}
	return b, nil
}

func (b *backend) openStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	switch cfg.Storage.Driver {
	case "postgres":
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		store := pgstore.NewStore(pool)
		b.quizzes, b.questions, b.courses = store, store, store
		b.attempts, b.users, b.importer = store, store, store
		b.discussions = memory.NewDiscussionStore()
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
		store := mongostore.NewStore(client.Database(cfg.Mongo.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		b.quizzes, b.questions, b.courses = store, store, store
		b.attempts, b.users, b.importer = store, store, store
		b.discussions = store
	case "memory":
		catalog := domain.Catalog{}
		if cfg.Storage.Seed != "" {
			loaded, err := loadCatalog(cfg.Storage.Seed)
			switch {
			case err == nil:
				catalog = loaded
			case errors.Is(err, os.ErrNotExist):
				logger.WithField("seed", cfg.Storage.Seed).Warn("seed catalog not found, starting empty")
			default:
				return err
			}
		}
		store := memory.NewCatalogStoreFrom(catalog)
		b.quizzes, b.questions, b.courses = store, store, store
		b.attempts = memory.NewAttemptStore()
		b.users = memory.NewUserStore()
		b.discussions = memory.NewDiscussionStore()
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	logger.WithField("driver", cfg.Storage.Driver).Info("storage ready")
	return nil
}

func loadCatalog(path string) (domain.Catalog, error) {
	var catalog domain.Catalog
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog, err
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return catalog, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return catalog, nil
}

func newLogger(cfg config.Config) *logrus.Logger {
	return logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
}
