package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"examgen/internal/app"
	"examgen/internal/config"
	"examgen/internal/platform/migration"
	mysqlClient "examgen/internal/platform/mysql"
	postgresClient "examgen/internal/platform/postgres"
	rabbitmqClient "examgen/internal/platform/rabbitmq"
	"examgen/internal/repository"
	"examgen/internal/worker"
)

type App struct {
	*Core

	DB           *gorm.DB
	MQConn       *amqp.Connection
	IngestWorker *worker.IngestWorker

	DocumentService *app.DocumentService
	QuestionService *app.QuestionService
	AuthService     *app.AuthService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := NewLogger(os.Stdout, cfg.App)

	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Core: core, StartedAt: time.Now()}

	a.DB, err = OpenDatabase(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if _, err := migration.Run(ctx, a.DB, migration.All(), logger); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("migrate database failed: %w", err)
	}

	var publisher app.IngestJobPublisher
	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		publisher = rabbitmqClient.NewIngestPublisher(a.MQConn, cfg.RabbitMQ.IngestQueue)
	}

	stateRepo := repository.NewDocumentStateRepository(a.DB)
	a.DocumentService = app.NewDocumentService(
		core.Documents,
		core.Artifacts,
		stateRepo,
		core.Ingest,
		publisher,
		cfg.MaxUploadBytes(),
		logger,
	)
	questionRepo := repository.NewQuestionRepository(a.DB)
	a.QuestionService = app.NewQuestionService(
		questionRepo,
		a.DocumentService,
		core.Synthesizer,
		core.Evaluator,
		logger,
	)
	a.AuthService = app.NewAuthService(
		repository.NewReviewerRepository(a.DB),
		questionRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)

	if a.MQConn != nil {
		a.IngestWorker = worker.NewIngestWorker(a.MQConn, a.DocumentService, cfg.RabbitMQ.IngestQueue, logger)
		if err := a.IngestWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start ingest worker failed: %w", err)
		}
	}

	return a, nil
}

// OpenDatabase connects to the configured gorm backend.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	level := gormLogLevel(cfg.Database.LogLevel)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return postgresClient.New(ctx, cfg.PostgresDSN(), level)
	case config.DriverMySQL:
		return mysqlClient.New(ctx, cfg.MySQLDSN(), level)
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", config.ErrInvalidConfig, cfg.Database.Driver)
	}
}

// Migrate opens the database and applies pending migrations.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) (int, error) {
	db, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer closeDB(db)
	return migration.Run(ctx, db, migration.All(), logger)
}

func (a *App) Close() error {
	var errs []error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Core != nil {
		if err := a.Core.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if err := closeDB(a.DB); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
