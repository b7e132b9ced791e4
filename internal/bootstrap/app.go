package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"anime-api/internal/app"
	"anime-api/internal/cache"
	"anime-api/internal/config"
	"anime-api/internal/logging"
	mongoClient "anime-api/internal/platform/mongo"
	mysqlClient "anime-api/internal/platform/mysql"
	postgresClient "anime-api/internal/platform/postgres"
	rabbitmqClient "anime-api/internal/platform/rabbitmq"
	redisClient "anime-api/internal/platform/redis"
	"anime-api/internal/pkg/jwtutil"
	"anime-api/internal/pkg/password"
	"anime-api/internal/repository"
	"anime-api/internal/worker"
)

type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      repository.Store
	Redis      *redis.Client
	MQConn     *amqp.Connection
	PostWorker *worker.PostEventWorker

	Auth  *app.AuthService
	Posts *app.PostService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	if err := a.open(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	store, err := OpenStore(ctx, a.Config.Store)
	if err != nil {
		return err
	}
	a.Store = store

	var pageCache *cache.PostPageCache
	if a.Config.Redis.Addr != "" {
		redisCli, err := redisClient.New(ctx, a.Config.Redis)
		if err != nil {
			return err
		}
		a.Redis = redisCli
		pageCache = cache.NewPostPageCache(redisCli, time.Duration(a.Config.Redis.PageTTLSeconds)*time.Second)
	} else {
		a.Logger.Info("redis not configured, post page cache disabled")
	}

	var publisher *rabbitmqClient.PostEventPublisher
	if a.Config.RabbitMQ.URL != "" {
		queue := a.Config.RabbitMQ.PostEventQueue
		mqConn, err := rabbitmqClient.New(ctx, a.Config.RabbitMQ.URL, queue)
		if err != nil {
			return err
		}
		a.MQConn = mqConn
		publisher = rabbitmqClient.NewPostEventPublisher(mqConn, queue)

		var warmer worker.PageWriter
		if pageCache != nil {
			warmer = pageCache
		}
		postWorker := worker.NewPostEventWorker(mqConn, store, warmer, queue, a.Config.Posts.DefaultLimit, a.Logger)
		if err := postWorker.Start(ctx); err != nil {
			return fmt.Errorf("start post event worker failed: %w", err)
		}
		a.PostWorker = postWorker
	} else {
		a.Logger.Info("rabbitmq not configured, post events disabled")
	}

	return a.Wire(pageCache, publisher)
}

// Wire builds the services over the already opened store. Nil cache or
// publisher disables that feature.
func (a *App) Wire(pageCache *cache.PostPageCache, publisher *rabbitmqClient.PostEventPublisher) error {
	issuer, err := jwtutil.NewIssuer(
		a.Config.Auth.JWTSecret,
		time.Duration(a.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	if err != nil {
		return fmt.Errorf("create token issuer failed: %w", err)
	}
	a.Auth = app.NewAuthService(a.Store, password.NewBcryptHasher(a.Config.Auth.BcryptCost), issuer)

	var posts app.PageCache
	if pageCache != nil {
		posts = pageCache
	}
	var events app.PostEventPublisher
	if publisher != nil {
		events = publisher
	}
	a.Posts = app.NewPostService(a.Store, posts, events, a.Config.Posts.DefaultLimit, a.Config.Posts.MaxLimit)
	return nil
}

// OpenStore opens the credential store selected by cfg.Driver and prepares
// its schema.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverJSON:
		store, err := repository.NewJSONStore(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("open json store failed: %w", err)
		}
		return store, nil
	case config.StoreDriverMySQL, config.StoreDriverPostgres:
		open := mysqlClient.New
		if cfg.Driver == config.StoreDriverPostgres {
			open = postgresClient.New
		}
		db, err := open(ctx, cfg.Location)
		if err != nil {
			return nil, err
		}
		store := repository.NewGormStore(db)
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("auto migrate tables failed: %w", err)
		}
		return store, nil
	case config.StoreDriverMongo:
		client, err := mongoClient.New(ctx, cfg.Location)
		if err != nil {
			return nil, err
		}
		store := repository.NewMongoStore(client, cfg.Database)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure mongo indexes failed: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.PostWorker != nil {
		a.PostWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
