package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/pkg/cache"
	"storefront/pkg/objectstore"
	"storefront/pkg/rabbitmq"
)

// resources are the external connections of a running process.
type resources struct {
	deps    app.Dependencies
	closers []func()
}

// Close releases every connection in reverse order of opening.
func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func (r *resources) addCheck(name string, check func(ctx context.Context) error) {
	if r.deps.Checks == nil {
		r.deps.Checks = map[string]func(ctx context.Context) error{}
	}
	r.deps.Checks[name] = check
}

// openStore connects the record store only.
func openStore(cfg *config.Config) (*resources, error) {
	res := &resources{}

	driver := database.DriverType(cfg.DatabaseDriver)
	if driver == database.DriverMemory {
		log.Warn("Using in-memory store; data is lost on exit")
		res.deps.Repos = app.NewMemoryRepositories()
		return res, nil
	}

	db, err := database.Connect(database.Config{
		Driver: driver,
		DSN:    cfg.DatabaseDSN,
		Debug:  cfg.DatabaseDebug,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access database handle")
	}
	res.closers = append(res.closers, func() {
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Warn("Error closing database")
		}
	})
	res.addCheck("database", sqlDB.PingContext)
	res.deps.Repos = app.NewGORMRepositories(db)
	log.WithField("driver", driver).Info("Database connected")
	return res, nil
}

// openResources connects the record store plus every optional service that is
// configured. Optional services left unconfigured stay nil.
func openResources(ctx context.Context, cfg *config.Config) (*resources, error) {
	res, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := res.openOptional(ctx, cfg); err != nil {
		res.Close()
		return nil, err
	}
	return res, nil
}

func (r *resources) openOptional(ctx context.Context, cfg *config.Config) error {
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return err
		}
		r.closers = append(r.closers, func() {
			if err := mq.Close(); err != nil {
				log.WithError(err).Warn("Error closing RabbitMQ")
			}
		})
		if err := mq.ConsumeEvents(rabbitmq.AuditQueue, rabbitmq.AuditEvent); err != nil {
			return err
		}
		r.deps.Events = mq
	} else {
		log.Info("RABBITMQ_URL not set; domain events are not published")
	}

	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client, err := cache.NewRedisClient(pingCtx, cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		r.closers = append(r.closers, func() {
			if err := client.Close(); err != nil {
				log.WithError(err).Warn("Error closing Redis")
			}
		})
		r.addCheck("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
		r.deps.Cache = cache.NewCategoryCache(client, cfg.CategoryCacheTTL)
	}

	if cfg.MinioEndpoint != "" {
		store, err := objectstore.NewImageStore(ctx, objectstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return err
		}
		r.addCheck("objectstore", store.Ping)
		r.deps.Images = store
	} else {
		log.Info("MINIO_ENDPOINT not set; image uploads are disabled")
	}
	return nil
}
