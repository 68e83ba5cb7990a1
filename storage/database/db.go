package database

import (
	"context"
	_ "embed"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
)

//go:embed schema.sql
var schemaSQL string

// Open connects a pgx pool to the configured Postgres database.
func Open(ctx context.Context, conf *core.Config) (*pgxpool.Pool, error) {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.Database.Address(),
		Path:     conf.Database.Name,
		RawQuery: q.Encode(),
	}

	pool, err := pgxpool.New(ctx, u.String())
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, pool *pgxpool.Pool) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// EnsureSchema applies the embedded schema. All statements are
// IF NOT EXISTS so reapplying is safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return errors.Wrap(err, "applying schema")
	}
	return nil
}
