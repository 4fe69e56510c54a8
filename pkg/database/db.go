package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB is the database surface the repositories depend on. It is satisfied by
// DatabaseInstance and narrow enough to fake in tests.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
	Close() error
}

type DatabaseInstance struct {
	*sqlx.DB
	logger ectologger.Logger
}

func NewDatabaseInstance(db *sqlx.DB, logger ectologger.Logger) *DatabaseInstance {
	return &DatabaseInstance{
		DB:     db,
		logger: logger,
	}
}

// Unwrap returns the underlying sqlx handle for callers that need the full
// sqlx surface (health checks, migration driver construction).
func (db *DatabaseInstance) Unwrap() *sqlx.DB {
	return db.DB
}

// ConnectConfig holds PostgreSQL connection settings.
type ConnectConfig struct {
	Driver            string
	Host              string
	Port              string
	UserName          string
	Password          string
	Name              string
	SSLMode           string
	ReconnectAttempts int
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
}

// DSN renders the lib/pq connection string.
func (c ConnectConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.UserName, c.Password, c.Name, c.SSLMode)
}

// Connect opens a PostgreSQL connection pool, retrying the initial ping a
// configured number of times before giving up.
func Connect(ctx context.Context, cfg ConnectConfig, logger ectologger.Logger) (*DatabaseInstance, error) {
	attempts := cfg.ReconnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var db *sqlx.DB
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
		if err == nil {
			break
		}
		logger.WithError(err).Warnf("Failed to connect to database (attempt %d/%d)", attempt, attempts)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Infof("Connected to database %s on %s:%s", cfg.Name, cfg.Host, cfg.Port)

	return NewDatabaseInstance(db, logger), nil
}
