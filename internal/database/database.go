package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/01moynul/bashrometer-golang/internal/config"
)

// OpenDB creates and verifies the MySQL connection pool described by cfg.
func OpenDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	// 1. Open a new connection pool.
	db, err := sql.Open("mysql", cfg.DBDSN)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql pool")
	}

	// 2. Configure the connection pool settings.
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	// 3. Ping the database to verify the connection.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}

	zap.L().Info("database connection pool established",
		zap.Int("max_open_conns", cfg.DBMaxOpenConns),
		zap.Duration("conn_max_lifetime", cfg.DBConnMaxLifetime),
	)
	return db, nil
}
