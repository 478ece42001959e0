package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository for tests.
type InMemorySubscriptionStore struct {
	mu             sync.RWMutex
	subs           map[int64]*subscription.Subscription
	retirementMode types.RetirementMode

	// Error injection hooks; when set, the matching call fails once
	// per assignment until cleared.
	FailFindExpired bool
	FailRetire      bool
	FailUpsert      bool
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore(mode types.RetirementMode) *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subs:           make(map[int64]*subscription.Subscription),
		retirementMode: mode,
	}
}

// Helper to copy a subscription so callers never share store memory
func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	return &copied
}

func storeUnavailable() error {
	return ierr.NewError("injected store failure").Mark(ierr.ErrDatabase)
}

func (s *InMemorySubscriptionStore) Upsert(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpsert {
		return nil, storeUnavailable()
	}

	merged := copySubscription(sub)
	if existing, ok := s.subs[sub.SubscriberID]; ok {
		merged.CreatedAt = existing.CreatedAt
		if merged.ProfileName == "" {
			merged.ProfileName = existing.ProfileName
		}
	}
	s.subs[sub.SubscriberID] = merged

	return copySubscription(merged), nil
}

func (s *InMemorySubscriptionStore) GetActiveBySubscriber(ctx context.Context, subscriberID int64) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[subscriberID]
	if !ok || !sub.IsActive || sub.IsExpired(time.Now().UTC()) {
		return nil, ierr.NewErrorf("no active subscription for subscriber %d", subscriberID).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

// Get returns the raw record regardless of state, for test assertions.
func (s *InMemorySubscriptionStore) Get(subscriberID int64) *subscription.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySubscription(s.subs[subscriberID])
}

func (s *InMemorySubscriptionStore) FindExpiredActive(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailFindExpired {
		return nil, storeUnavailable()
	}

	var expired []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.EligibleForRetirement(now) {
			expired = append(expired, copySubscription(sub))
		}
	}
	return expired, nil
}

func (s *InMemorySubscriptionStore) Retire(ctx context.Context, subscriberID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailRetire {
		return storeUnavailable()
	}

	sub, ok := s.subs[subscriberID]
	if !ok {
		return nil
	}

	if s.retirementMode == types.RetirementModeHard {
		delete(s.subs, subscriberID)
		return nil
	}
	sub.IsActive = false
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemorySubscriptionStore) ListAll(ctx context.Context, sortByExpiry bool) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*subscription.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		all = append(all, copySubscription(sub))
	}
	if sortByExpiry {
		sort.Slice(all, func(i, j int) bool {
			return all[i].ExpiryTime.Before(all[j].ExpiryTime)
		})
	}
	return all, nil
}
