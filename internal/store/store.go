package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/config"
	"carbon-connect/portal-backend/internal/projects"
	"carbon-connect/portal-backend/internal/verification"
)

// Store owns every repository for the lifetime of the process.
type Store struct {
	Driver   string
	Projects projects.Repository
	Mints    verification.MintStore
	Accounts compliance.Store

	sqlDB  *sql.DB
	logger *zap.Logger
}

// Open builds the repositories for the configured driver. The postgres driver
// shares one connection pool between gorm and database/sql and migrates the
// schema before returning.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Info("Using in-memory store")
		return &Store{
			Driver:   "memory",
			Projects: projects.NewMemoryRepository(),
			Mints:    verification.NewMemoryMintStore(),
			Accounts: compliance.NewMemoryStore(),
			logger:   logger,
		}, nil
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	logger.Info("Connecting to database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("db_name", cfg.DBName))

	sqlDB, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialise gorm: %w", err)
	}

	if err := migrate(ctx, gormDB, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Store{
		Driver:   "postgres",
		Projects: projects.NewGormRepository(gormDB),
		Mints:    verification.NewGormMintStore(gormDB),
		Accounts: compliance.NewPostgresStore(sqlDB),
		sqlDB:    sqlDB,
		logger:   logger,
	}, nil
}

func migrate(ctx context.Context, gormDB *gorm.DB, sqlDB *sql.DB) error {
	return errors.Join(
		projects.Migrate(gormDB.WithContext(ctx)),
		verification.Migrate(gormDB.WithContext(ctx)),
		compliance.Migrate(ctx, sqlDB),
	)
}

// Close releases the connection pool. Safe to call on a memory store.
func (s *Store) Close() error {
	if s.sqlDB == nil {
		return nil
	}
	s.logger.Info("Closing database connections")
	return s.sqlDB.Close()
}
