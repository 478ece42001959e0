package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/channelgate/channelgate/internal/types"
	"github.com/jmoiron/sqlx"
)

type subscriptionRepository struct {
	db             *sqlx.DB
	retirementMode types.RetirementMode
	logger         *logger.Logger
}

// NewSubscriptionRepository creates a postgres-backed subscription repository.
// The retirement mode decides whether Retire deactivates or deletes rows.
func NewSubscriptionRepository(db *sqlx.DB, retirementMode types.RetirementMode, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{
		db:             db,
		retirementMode: retirementMode,
		logger:         logger,
	}
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	// ON CONFLICT keeps created_at from the original row so renewals never
	// reset the first-grant timestamp, and keeps the previous profile
	// snapshot when the renewal did not capture one.
	const query = `
		INSERT INTO subscriptions (
			subscriber_id, plan_tier, expiry_time, granted_by,
			profile_name, is_active, created_at, updated_at
		) VALUES (
			:subscriber_id, :plan_tier, :expiry_time, :granted_by,
			:profile_name, :is_active, :created_at, :updated_at
		)
		ON CONFLICT (subscriber_id) DO UPDATE SET
			plan_tier    = EXCLUDED.plan_tier,
			expiry_time  = EXCLUDED.expiry_time,
			granted_by   = EXCLUDED.granted_by,
			profile_name = COALESCE(NULLIF(EXCLUDED.profile_name, ''), subscriptions.profile_name),
			is_active    = EXCLUDED.is_active,
			updated_at   = EXCLUDED.updated_at
		RETURNING subscriber_id, plan_tier, expiry_time, granted_by,
			profile_name, is_active, created_at, updated_at`

	rows, err := r.db.NamedQueryContext(ctx, query, sub)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to upsert subscription").
			WithReportableDetails(map[string]interface{}{
				"subscriber_id": sub.SubscriberID,
			}).
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("upsert returned no row").
			Mark(ierr.ErrDatabase)
	}

	var result subscription.Subscription
	if err := rows.StructScan(&result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan upserted subscription").
			Mark(ierr.ErrDatabase)
	}

	return &result, nil
}

func (r *subscriptionRepository) GetActiveBySubscriber(ctx context.Context, subscriberID int64) (*subscription.Subscription, error) {
	const query = `
		SELECT subscriber_id, plan_tier, expiry_time, granted_by,
			profile_name, is_active, created_at, updated_at
		FROM subscriptions
		WHERE subscriber_id = $1 AND is_active AND expiry_time > $2`

	var sub subscription.Subscription
	err := r.db.GetContext(ctx, &sub, query, subscriberID, time.Now().UTC())
	if err == sql.ErrNoRows {
		return nil, ierr.NewErrorf("no active subscription for subscriber %d", subscriberID).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query subscription").
			Mark(ierr.ErrDatabase)
	}

	return &sub, nil
}

func (r *subscriptionRepository) FindExpiredActive(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	const query = `
		SELECT subscriber_id, plan_tier, expiry_time, granted_by,
			profile_name, is_active, created_at, updated_at
		FROM subscriptions
		WHERE is_active AND expiry_time <= $1`

	var subs []*subscription.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, now); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query expired subscriptions").
			Mark(ierr.ErrDatabase)
	}

	return subs, nil
}

func (r *subscriptionRepository) Retire(ctx context.Context, subscriberID int64) error {
	var (
		res sql.Result
		err error
	)
	if r.retirementMode == types.RetirementModeSoft {
		const query = `UPDATE subscriptions SET is_active = FALSE, updated_at = $2 WHERE subscriber_id = $1 AND is_active`
		res, err = r.db.ExecContext(ctx, query, subscriberID, time.Now().UTC())
	} else {
		const query = `DELETE FROM subscriptions WHERE subscriber_id = $1`
		res, err = r.db.ExecContext(ctx, query, subscriberID)
	}
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to retire subscription").
			WithReportableDetails(map[string]interface{}{
				"subscriber_id":   subscriberID,
				"retirement_mode": string(r.retirementMode),
			}).
			Mark(ierr.ErrDatabase)
	}

	// Zero affected rows means the record was already retired or never
	// existed; both are a no-op success.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.logger.Debugw("retire was a no-op", "subscriber_id", subscriberID)
	}

	return nil
}

func (r *subscriptionRepository) ListAll(ctx context.Context, sortByExpiry bool) ([]*subscription.Subscription, error) {
	query := `
		SELECT subscriber_id, plan_tier, expiry_time, granted_by,
			profile_name, is_active, created_at, updated_at
		FROM subscriptions`
	if sortByExpiry {
		query += ` ORDER BY expiry_time ASC`
	}

	var subs []*subscription.Subscription
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}

	return subs, nil
}
