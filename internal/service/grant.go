package service

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/api/dto"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/channelgate/channelgate/internal/types"
	"github.com/samber/lo"
)

// sideEffectTimeout bounds best-effort notifier and profile lookups so a
// slow Telegram API never stalls a grant.
const sideEffectTimeout = 10 * time.Second

// GrantService validates admin-issued grant requests and maintains
// subscription records.
type GrantService interface {
	// Grant creates or renews a subscription. Renewal re-extends expiry from
	// the call's own now; repeating a call is safe and never additive.
	Grant(ctx context.Context, req *dto.GrantRequest) (*dto.SubscriptionResponse, error)
	// GetStatus returns the subscriber's active subscription, or ErrNotFound.
	GetStatus(ctx context.Context, subscriberID int64) (*dto.SubscriptionResponse, error)
	// ListAll returns every subscription sorted by expiry, for reporting.
	ListAll(ctx context.Context) ([]*dto.SubscriptionResponse, error)
}

type grantService struct {
	ServiceParams
	log *logger.Logger
	now func() time.Time
}

// NewGrantService creates a new grant service
func NewGrantService(params ServiceParams) GrantService {
	return &grantService{
		ServiceParams: params,
		log:           params.Logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *grantService) Grant(ctx context.Context, req *dto.GrantRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.RequesterID != s.Config.Admin.AdminID {
		return nil, ierr.NewErrorf("requester %d is not the administrator", req.RequesterID).
			WithHint("You are not authorized to use this command.").
			Mark(ierr.ErrPermissionDenied)
	}

	expr, err := types.ParseDurationExpr(req.DurationExpr)
	if err != nil {
		return nil, err
	}

	tier := req.PlanTier
	if tier == "" {
		tier = types.DefaultPlanTier
	}

	now := s.now()
	sub := &subscription.Subscription{
		SubscriberID: req.SubscriberID,
		PlanTier:     tier,
		ExpiryTime:   expr.ExpiryFrom(now),
		GrantedBy:    req.RequesterID,
		ProfileName:  s.lookupProfile(ctx, req.SubscriberID),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result, err := s.SubRepo.Upsert(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.log.Infow("granted subscription",
		"subscriber_id", result.SubscriberID,
		"plan_tier", result.PlanTier,
		"expiry_time", result.ExpiryTime,
		"granted_by", result.GrantedBy,
	)

	s.notifySubscriber(ctx, result)
	s.audit(ctx, fmt.Sprintf(
		"Granted %s access to %d until %s (by %d)",
		result.PlanTier, result.SubscriberID,
		result.ExpiryTime.Format(time.RFC1123), result.GrantedBy,
	))

	return dto.NewSubscriptionResponse(result), nil
}

func (s *grantService) GetStatus(ctx context.Context, subscriberID int64) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetActiveBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *grantService) ListAll(ctx context.Context) ([]*dto.SubscriptionResponse, error) {
	subs, err := s.SubRepo.ListAll(ctx, true)
	if err != nil {
		return nil, err
	}
	return lo.Map(subs, func(sub *subscription.Subscription, _ int) *dto.SubscriptionResponse {
		return dto.NewSubscriptionResponse(sub)
	}), nil
}

// lookupProfile captures a display-name snapshot. Failures are logged and
// ignored; the snapshot is advisory only.
func (s *grantService) lookupProfile(ctx context.Context, subscriberID int64) string {
	if s.Profiles == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	name, err := s.Profiles.LookupProfile(ctx, subscriberID)
	if err != nil {
		s.log.Debugw("profile lookup failed", "subscriber_id", subscriberID, "error", err)
		return ""
	}
	return name
}

// notifySubscriber tells the subscriber about the new expiry and how to get
// in. Best-effort; a failure never fails the grant.
func (s *grantService) notifySubscriber(ctx context.Context, sub *subscription.Subscription) {
	if s.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	text := fmt.Sprintf(
		"Your %s access is active until %s.\n\nJoin here: %s",
		sub.PlanTier, sub.ExpiryTime.Format(time.RFC1123), s.Config.Telegram.InviteLink,
	)
	if err := s.Notifier.Send(ctx, sub.SubscriberID, text); err != nil {
		s.log.Warnw("subscriber notification failed",
			"subscriber_id", sub.SubscriberID, "error", err)
	}
}

// audit sends a line to the audit channel when one is configured.
func (s *grantService) audit(ctx context.Context, text string) {
	if s.Notifier == nil || s.Config.Admin.AuditChannelID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	if err := s.Notifier.Send(ctx, s.Config.Admin.AuditChannelID, text); err != nil {
		s.log.Warnw("audit notification failed", "error", err)
	}
}
