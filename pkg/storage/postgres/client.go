package postgres

import (
	"context"
	"fmt"

	"quantfeed/config"
	"quantfeed/pkg/market"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 500

type PostgresClient struct {
	DB *gorm.DB
}

func NewClient(dsn string) (*PostgresClient, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresClient{DB: db}, nil
}

// NewClientFromDB wraps an already opened gorm handle (any dialect).
func NewClientFromDB(db *gorm.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

// InitializeAndMigrate connects to Postgres, optionally creates the DB, applies
// pool settings and migrates the ticks table plus one bars table per timeframe.
func InitializeAndMigrate(cfg config.PostgresConfig, env string, createDB bool, timeframes []market.Timeframe) (*PostgresClient, error) {
	if createDB {
		if err := CreateDatabase(cfg, env); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewClient(cfg.DSN(env))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.ConfigurePool(cfg); err != nil {
		return nil, err
	}

	if err := client.AutoMigrate(timeframes); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

// ConfigurePool applies connection pool limits from cfg; zero values keep the driver defaults.
func (p *PostgresClient) ConfigurePool(cfg config.PostgresConfig) error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

// AutoMigrate creates or updates the ticks table and the bars table of every
// given timeframe, with a (symbol, timestamp) index on each.
func (p *PostgresClient) AutoMigrate(timeframes []market.Timeframe) error {
	if err := p.DB.AutoMigrate(&TickRecord{}); err != nil {
		return fmt.Errorf("auto-migrate ticks table: %w", err)
	}

	for _, tf := range timeframes {
		table, err := barTable(tf)
		if err != nil {
			return err
		}
		if err := p.DB.Table(table).AutoMigrate(&BarRecord{}); err != nil {
			return fmt.Errorf("auto-migrate %s table: %w", table, err)
		}
		// Index names are schema-global in Postgres, so each bars table gets its own.
		index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_symbol_timestamp ON %s (\"symbol\", \"timestamp\")", table, table)
		if err := p.DB.Exec(index).Error; err != nil {
			return fmt.Errorf("index %s table: %w", table, err)
		}
	}
	return nil
}

func (p *PostgresClient) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *PostgresClient) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}

func barTable(tf market.Timeframe) (string, error) {
	if !tf.IsValid() {
		return "", fmt.Errorf("unsupported timeframe: %q", tf)
	}
	return tf.TableName(), nil
}
