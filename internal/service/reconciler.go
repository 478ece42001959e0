package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/channelgate/channelgate/internal/api/dto"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/sourcegraph/conc"
)

// perRecordTimeout bounds the gateway and store calls for one record so a
// hung call cannot stall the whole cycle indefinitely.
const perRecordTimeout = 30 * time.Second

// ErrCycleInProgress is returned by RunCycle when a cycle is already
// running. Cycles never overlap; the caller simply waits for the next tick.
var ErrCycleInProgress = ierr.NewError("reconciliation cycle already in progress").
	WithHint("A reconciliation cycle is already running").
	Mark(ierr.ErrInvalidOperation)

// Reconciler periodically sweeps expired-but-active subscriptions, revokes
// channel access and retires the records. Failures leave records in place
// for the next cycle, so retirement is at-least-once.
type Reconciler struct {
	ServiceParams
	log *logger.Logger
	now func() time.Time

	// cycleMu serializes cycles; a tick that fires while a cycle is still
	// running is skipped rather than queued.
	cycleMu sync.Mutex

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewReconciler creates a new reconciler
func NewReconciler(params ServiceParams) *Reconciler {
	return &Reconciler{
		ServiceParams: params,
		log:           params.Logger,
		now:           func() time.Time { return time.Now().UTC() },
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start launches the periodic sweep. Safe to call once; subsequent calls are
// no-ops.
func (r *Reconciler) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Stop stops scheduling new cycles and waits for an in-flight cycle to
// finish. Abandoning mid-cycle work would also be safe given the
// at-least-once guarantee, but waiting keeps shutdown logs coherent.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		<-r.doneCh
	})
}

func (r *Reconciler) run() {
	defer close(r.doneCh)

	interval := r.Config.Subscription.ReconcileInterval
	r.log.Infow("reconciler started", "interval", interval)

	if r.Config.Subscription.ReconcileOnStart {
		r.runCycleLogged()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.log.Infow("reconciler stopped")
			return
		case <-ticker.C:
			r.runCycleLogged()
		}
	}
}

func (r *Reconciler) runCycleLogged() {
	res, err := r.RunCycle(context.Background())
	if err != nil {
		if ierr.Is(err, ErrCycleInProgress) {
			r.log.Warnw("skipping reconciliation tick, previous cycle still running")
			return
		}
		r.log.Errorw("reconciliation cycle failed", "error", err)
		return
	}
	if res.Expired > 0 {
		r.log.Infow("reconciliation cycle completed",
			"expired", res.Expired, "retired", res.Retired, "failed", res.Failed)
	}
}

// RunCycle executes one reconciliation cycle. A store failure on the expiry
// query aborts the whole cycle with no side effects; per-record failures are
// scoped to their record.
func (r *Reconciler) RunCycle(ctx context.Context) (*dto.ReconcileResponse, error) {
	if !r.cycleMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer r.cycleMu.Unlock()

	expired, err := r.SubRepo.FindExpiredActive(ctx, r.now())
	if err != nil {
		return nil, err
	}

	res := &dto.ReconcileResponse{Expired: len(expired)}
	for _, sub := range expired {
		if err := r.processRecord(ctx, sub); err != nil {
			// The record stays active and expired; the next cycle retries.
			r.log.Errorw("failed to retire subscription, will retry next cycle",
				"subscriber_id", sub.SubscriberID, "error", err)
			res.Failed++
			continue
		}
		res.Retired++
	}

	return res, nil
}

// processRecord revokes channel access and retires one record. Any failure
// before retirement aborts this record only.
func (r *Reconciler) processRecord(ctx context.Context, sub *subscription.Subscription) error {
	ctx, cancel := context.WithTimeout(ctx, perRecordTimeout)
	defer cancel()

	if err := r.Gateway.RevokeAccess(ctx, sub.SubscriberID); err != nil {
		return err
	}
	// Lift the ban immediately so a renewal lets the subscriber rejoin with
	// a fresh invite and no manual unban.
	if err := r.Gateway.RestoreEligibility(ctx, sub.SubscriberID); err != nil {
		return err
	}

	if err := r.SubRepo.Retire(ctx, sub.SubscriberID); err != nil {
		return err
	}

	r.log.Infow("retired expired subscription",
		"subscriber_id", sub.SubscriberID,
		"plan_tier", sub.PlanTier,
		"expired_at", sub.ExpiryTime,
	)

	r.notifyRetirement(sub)
	return nil
}

// notifyRetirement fans out the expiry notifications. Every attempt is
// independent and best-effort; failures are logged, never propagated.
func (r *Reconciler) notifyRetirement(sub *subscription.Subscription) {
	if r.Notifier == nil {
		return
	}

	expiredAt := sub.ExpiryTime.Format(time.RFC1123)
	targets := []struct {
		recipient int64
		text      string
	}{
		{
			recipient: r.Config.Admin.AdminID,
			text: fmt.Sprintf("Subscriber %d's %s plan expired on %s and was removed from the channel.",
				sub.SubscriberID, sub.PlanTier, expiredAt),
		},
		{
			recipient: sub.SubscriberID,
			text:      fmt.Sprintf("Your premium access expired on %s.", expiredAt),
		},
	}
	if r.Config.Admin.AuditChannelID != 0 {
		targets = append(targets, struct {
			recipient int64
			text      string
		}{
			recipient: r.Config.Admin.AuditChannelID,
			text: fmt.Sprintf("Removed expired subscriber %d (plan %s, expired %s).",
				sub.SubscriberID, sub.PlanTier, expiredAt),
		})
	}

	var wg conc.WaitGroup
	for _, t := range targets {
		t := t
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			if err := r.Notifier.Send(ctx, t.recipient, t.text); err != nil {
				r.log.Warnw("retirement notification failed",
					"recipient_id", t.recipient, "error", err)
			}
		})
	}
	wg.Wait()
}
