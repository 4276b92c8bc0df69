package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/config"
	"github.com/ELEVATE-Project/project-service-sub000/events"
	"github.com/ELEVATE-Project/project-service-sub000/routes"
	"github.com/ELEVATE-Project/project-service-sub000/services"
	"github.com/ELEVATE-Project/project-service-sub000/store"
	"github.com/ELEVATE-Project/project-service-sub000/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// runtime owns every connection opened at startup.
type runtime struct {
	cfg        *config.Config
	logger     *zap.Logger
	categories store.CategoryStore
	templates  store.TemplateStore
	publisher  events.Publisher
	storage    services.ObjectStorage
	registry   *prometheus.Registry
	closers    []func(context.Context) error
}

func bootstrap(ctx context.Context) (*runtime, error) {
	envFile := config.LoadEnvFile()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := utils.InitLogger(cfg.LogLevel, cfg.Env, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise logger: %w", err)
	}
	if envFile != "" {
		logger.Info("Loaded environment file", zap.String("path", envFile))
	} else {
		logger.Info("No .env file found, using system environment variables")
	}
	cfg.LogSummary(logger)

	rt := &runtime{cfg: cfg, logger: logger}

	if err := rt.connectStores(ctx); err != nil {
		rt.close()
		return nil, err
	}
	if err := rt.connectPublisher(); err != nil {
		rt.close()
		return nil, err
	}
	if err := rt.connectStorage(ctx); err != nil {
		rt.close()
		return nil, err
	}

	rt.registry = prometheus.NewRegistry()
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return rt, nil
}

func (rt *runtime) connectStores(ctx context.Context) error {
	if rt.cfg.StoreDriver == config.StoreDriverMemory {
		rt.logger.Warn("Using in-memory category store; data is lost on restart")
		categories := store.NewMemoryCategoryStore()
		if err := categories.EnsureIndexes(ctx, !rt.cfg.AllowDuplicateNames); err != nil {
			return err
		}
		rt.categories = categories
		rt.templates = store.NewMemoryTemplateStore()
		return nil
	}

	connectCtx, cancel := config.CreateContext(10 * time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(rt.cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	rt.closers = append(rt.closers, client.Disconnect)

	if err := client.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	rt.logger.Info("Connected to MongoDB", zap.String("database", rt.cfg.DatabaseName))

	db := client.Database(rt.cfg.DatabaseName)
	categories := store.NewMongoCategoryStore(db, rt.cfg.MongoUseTransactions)

	indexCtx, cancelIndexes := context.WithTimeout(ctx, 30*time.Second)
	defer cancelIndexes()
	if err := categories.EnsureIndexes(indexCtx, !rt.cfg.AllowDuplicateNames); err != nil {
		return err
	}

	rt.categories = categories
	rt.templates = store.NewMongoTemplateStore(db)
	return nil
}

func (rt *runtime) connectPublisher() error {
	var transport events.Publisher

	switch rt.cfg.EventTransport {
	case config.TransportKafka:
		kafkaPublisher, err := events.NewKafkaPublisher(rt.cfg.KafkaBrokers, rt.cfg.KafkaCategoryTopic)
		if err != nil {
			return err
		}
		transport = kafkaPublisher
	case config.TransportRedis:
		client, err := events.ConnectRedis(rt.cfg.RedisAddr, rt.cfg.RedisPassword)
		if err != nil {
			return err
		}
		transport = events.NewRedisStreamPublisher(client, rt.cfg.RedisCategoryStream)
	default:
		rt.publisher = events.NewLogPublisher(rt.logger.Named("events"))
		return nil
	}

	rt.publisher = events.NewBreakerPublisher(transport, events.DefaultBreakerConfig(), rt.logger.Named("events"))
	rt.logger.Info("Category sync transport ready", zap.String("transport", transport.Name()))
	return nil
}

func (rt *runtime) connectStorage(ctx context.Context) error {
	switch {
	case rt.cfg.EvidenceStorageEnabled():
		b2Storage, err := services.NewB2Storage(ctx, rt.cfg.B2ApplicationKeyID, rt.cfg.B2ApplicationKey, rt.cfg.B2BucketName)
		if err != nil {
			return err
		}
		rt.storage = b2Storage
		rt.logger.Info("Evidence storage ready", zap.String("bucket", rt.cfg.B2BucketName))
	case rt.cfg.StoreDriver == config.StoreDriverMemory:
		rt.storage = services.NewMemoryStorage()
	default:
		rt.logger.Warn("B2 credentials not set; evidence uploads are disabled")
	}
	return nil
}

func (rt *runtime) dependencies() routes.Dependencies {
	return routes.Dependencies{
		Categories: rt.categories,
		Templates:  rt.templates,
		Publisher:  rt.publisher,
		Storage:    rt.storage,
		Registry:   rt.registry,
		Logger:     rt.logger,
	}
}

// close releases resources in reverse order of acquisition.
func (rt *runtime) close() {
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			rt.logger.Warn("Failed to close event publisher", zap.Error(err))
		}
	}

	ctx, cancel := config.CreateContext(5 * time.Second)
	defer cancel()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}
