package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"sns-crosspost/infrastructure/configuration"
	"sns-crosspost/infrastructure/logger"

	_ "github.com/lib/pq"
)

// NewPostgreSQLDB opens the primary store connection using the loaded configuration.
func NewPostgreSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Psql
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot open PostgreSQL connection")
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot ping PostgreSQL")
		return nil, err
	}
	return db, nil
}
