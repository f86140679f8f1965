package db

import (
	"database/sql"
	"fmt"

	"github.com/bohemiyan/governance/internal/config"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresDB wraps both sql.DB and gorm.DB
type PostgresDB struct {
	DB     *sql.DB
	GormDB *gorm.DB
}

// NewPostgresDB checks connectivity through lib/pq and opens the gorm
// connection the record store runs on.
func NewPostgresDB(cfg *config.Config) (*PostgresDB, error) {
	dsn := cfg.PostgresDSN()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	return &PostgresDB{DB: db, GormDB: gormDB}, nil
}

func (p *PostgresDB) Close() error {
	if err := p.DB.Close(); err != nil {
		return fmt.Errorf("failed to close sql.DB: %w", err)
	}

	sqlDB, err := p.GormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from GORM: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close GORM sql.DB: %w", err)
	}

	return nil
}
