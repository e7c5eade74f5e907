package bootstrap

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	"github.com/mohammadpnp/crm-import/internal/config"
	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
	"github.com/mohammadpnp/crm-import/internal/infrastructure/db"
	"github.com/mohammadpnp/crm-import/internal/infrastructure/events"
	"github.com/mohammadpnp/crm-import/internal/infrastructure/repository"
)

// App holds the connections and services shared by the API server and the
// file import command.
type App struct {
	Config     config.Config
	Logger     *logrus.Logger
	DB         *gorm.DB
	Pool       *pgxpool.Pool
	Service    app.ImportService
	Authorizer domain.WorkspaceAuthorizer

	producer sarama.SyncProducer
}

func NewApp(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
			return nil, err
		}
	}

	gormDB, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		DB:         gormDB,
		Pool:       pool,
		Authorizer: repository.NewWorkspaceAuthorizer(gormDB),
	}

	var publisher domain.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			pool.Close()
			return nil, err
		}
		a.producer = producer
		publisher = events.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		logger.WithField("topic", cfg.Kafka.Topic).Info("publishing import events to kafka")
	} else {
		logger.Info("no kafka brokers configured, import events are not published")
	}

	a.Service = app.NewImportService(
		repository.NewImportSessionRepository(gormDB),
		repository.NewImportBatchRepository(pool),
		repository.NewRecordStore(gormDB),
		publisher,
		app.ServiceConfig{MaxBatchSize: cfg.Import.MaxBatchSize},
	)
	return a, nil
}

func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.Logger.WithError(err).Warn("failed to close kafka producer")
		}
	}
	a.Pool.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
