package db

import (
	"database/sql"
	"fmt"
	"time"

	"rfq/internal/config"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// NewPostgresDB opens the pool and pings it, retrying while the server is
// still starting up.
func NewPostgresDB(cfg *config.PostgresConfig) (*sql.DB, error) {
	log.Info("Connecting to postgres")
	db, err := sql.Open("postgres", cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("db.NewPostgresDB: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		pingErr := db.Ping()
		if pingErr != nil {
			log.WithError(pingErr).WithField("attempt", attempt).Warn("Postgres is not reachable yet")
		}
		return pingErr
	}, backoff.WithMaxRetries(policy, cfg.ConnectRetries))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db.NewPostgresDB: %w", err)
	}

	return db, nil
}
