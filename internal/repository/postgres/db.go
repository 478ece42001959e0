package postgres

import (
	"context"

	"github.com/channelgate/channelgate/internal/config"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	subscriber_id BIGINT PRIMARY KEY,
	plan_tier     TEXT        NOT NULL DEFAULT 'basic',
	expiry_time   TIMESTAMPTZ NOT NULL,
	granted_by    BIGINT      NOT NULL,
	profile_name  TEXT        NOT NULL DEFAULT '',
	is_active     BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_expiry
	ON subscriptions (expiry_time) WHERE is_active;
`

// NewDB connects to Postgres and ensures the schema exists. The engine
// cannot operate without durable state, so callers treat a failure here as
// fatal at process start.
func NewDB(ctx context.Context, cfg config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to postgres").
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, ierr.WithError(err).
			WithHint("Failed to ensure subscriptions schema").
			Mark(ierr.ErrDatabase)
	}

	return db, nil
}
