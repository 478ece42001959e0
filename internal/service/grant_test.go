package service

import (
	"testing"
	"time"

	"github.com/channelgate/channelgate/internal/api/dto"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/testutil"
	"github.com/channelgate/channelgate/internal/types"
	"github.com/stretchr/testify/suite"
)

type GrantServiceTestSuite struct {
	testutil.BaseServiceTestSuite
	grantService GrantService
	now          time.Time
}

func TestGrantService(t *testing.T) {
	suite.Run(t, new(GrantServiceTestSuite))
}

func (s *GrantServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	// Anchor the injected clock near real time so the store's derived
	// "active and unexpired" checks agree with the fixtures.
	s.now = time.Now().UTC()
	s.grantService = NewGrantService(s.serviceParams())
	s.setNow(s.now)
}

func (s *GrantServiceTestSuite) serviceParams() ServiceParams {
	return ServiceParams{
		Logger:   s.GetLogger(),
		Config:   s.GetConfig(),
		SubRepo:  s.GetStore(),
		Gateway:  s.GetGateway(),
		Notifier: s.GetNotifier(),
		Profiles: s.GetProfiles(),
	}
}

func (s *GrantServiceTestSuite) setNow(now time.Time) {
	s.grantService.(*grantService).now = func() time.Time { return now }
}

func (s *GrantServiceTestSuite) adminID() int64 {
	return s.GetConfig().Admin.AdminID
}

func (s *GrantServiceTestSuite) TestGrantSuccess() {
	sub, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "1hour",
		PlanTier:     types.PlanTierPremium,
	})
	s.NoError(err)
	s.True(sub.IsActive)
	s.Equal(int64(42), sub.SubscriberID)
	s.Equal(types.PlanTierPremium, sub.PlanTier)
	s.Equal(s.now.Add(time.Hour), sub.ExpiryTime)
	s.Equal(s.adminID(), sub.GrantedBy)
	s.Equal(s.now, sub.CreatedAt)

	// The subscriber is told about the new expiry and the invite link.
	msgs := s.GetNotifier().MessagesFor(42)
	s.Len(msgs, 1)
	s.Contains(msgs[0].Text, s.GetConfig().Telegram.InviteLink)
}

func (s *GrantServiceTestSuite) TestGrantDefaultsPlanTier() {
	sub, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.NoError(err)
	s.Equal(types.DefaultPlanTier, sub.PlanTier)
}

func (s *GrantServiceTestSuite) TestGrantUnauthorized() {
	_, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID() + 1,
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	// No write, no notification.
	s.Nil(s.GetStore().Get(42))
	s.Empty(s.GetNotifier().Messages())
}

func (s *GrantServiceTestSuite) TestGrantInvalidDuration() {
	for _, expr := range []string{"0day", "day", "7years", ""} {
		_, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
			RequesterID:  s.adminID(),
			SubscriberID: 42,
			DurationExpr: expr,
		})
		s.Error(err, "expr %q", expr)
		s.True(ierr.IsValidation(err), "expr %q", expr)
	}
	s.Nil(s.GetStore().Get(42))
}

func (s *GrantServiceTestSuite) TestGrantRenewalKeepsCreatedAt() {
	_, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.NoError(err)

	// The renewal re-extends expiry from its own invocation time; it is not
	// additive to the previous expiry.
	later := s.now.Add(10 * time.Minute)
	s.setNow(later)
	renewed, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.NoError(err)
	s.Equal(later.Add(7*24*time.Hour), renewed.ExpiryTime)
	s.Equal(s.now, renewed.CreatedAt)

	all, err := s.grantService.ListAll(s.GetContext())
	s.NoError(err)
	s.Len(all, 1)
}

func (s *GrantServiceTestSuite) TestGrantReactivatesRetiredRecord() {
	_, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "1hour",
	})
	s.NoError(err)
	s.NoError(s.GetStore().Retire(s.GetContext(), 42))
	s.False(s.GetStore().Get(42).IsActive)

	_, err = s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "1hour",
	})
	s.NoError(err)
	s.True(s.GetStore().Get(42).IsActive)
}

func (s *GrantServiceTestSuite) TestGrantNotificationFailureDoesNotFailGrant() {
	s.GetNotifier().FailSend = true

	sub, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.NoError(err)
	s.True(sub.IsActive)
}

func (s *GrantServiceTestSuite) TestGrantProfileSnapshot() {
	s.GetProfiles().Names[42] = "Alice"

	sub, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.NoError(err)
	s.Equal("Alice", sub.ProfileName)
}

func (s *GrantServiceTestSuite) TestGrantProfileFailureIgnored() {
	s.GetProfiles().FailAll = true

	sub, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.NoError(err)
	s.Empty(sub.ProfileName)
}

func (s *GrantServiceTestSuite) TestGrantRenewalKeepsProfileSnapshotOnLookupFailure() {
	s.GetProfiles().Names[42] = "Alice"
	_, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.NoError(err)

	// The renewal's lookup fails; the snapshot from the first grant stays.
	s.GetProfiles().FailAll = true
	renewed, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "1month",
	})
	s.NoError(err)
	s.Equal("Alice", renewed.ProfileName)
	s.Equal("Alice", s.GetStore().Get(42).ProfileName)
}

func (s *GrantServiceTestSuite) TestGrantStoreFailure() {
	s.GetStore().FailUpsert = true

	_, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.Error(err)
	s.True(ierr.IsDatabase(err))
	s.Empty(s.GetNotifier().Messages())
}

func (s *GrantServiceTestSuite) TestGrantAuditsWhenConfigured() {
	s.GetConfig().Admin.AuditChannelID = 999

	_, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "7day",
	})
	s.NoError(err)
	s.Len(s.GetNotifier().MessagesFor(999), 1)
}

func (s *GrantServiceTestSuite) TestGetStatus() {
	_, err := s.grantService.GetStatus(s.GetContext(), 42)
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	granted, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
		RequesterID:  s.adminID(),
		SubscriberID: 42,
		DurationExpr: "1hour",
	})
	s.NoError(err)

	status, err := s.grantService.GetStatus(s.GetContext(), 42)
	s.NoError(err)
	s.True(status.IsActive)
	s.Equal(granted.ExpiryTime, status.ExpiryTime)
}

func (s *GrantServiceTestSuite) TestListAllSortedByExpiry() {
	for i, expr := range []string{"2week", "7day", "1month"} {
		_, err := s.grantService.Grant(s.GetContext(), &dto.GrantRequest{
			RequesterID:  s.adminID(),
			SubscriberID: int64(100 + i),
			DurationExpr: expr,
		})
		s.NoError(err)
	}

	all, err := s.grantService.ListAll(s.GetContext())
	s.NoError(err)
	s.Len(all, 3)
	s.Equal(int64(101), all[0].SubscriberID) // 7day
	s.Equal(int64(100), all[1].SubscriberID) // 2week
	s.Equal(int64(102), all[2].SubscriberID) // 1month
}
