package testutil

import (
	"context"

	"github.com/channelgate/channelgate/internal/config"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/channelgate/channelgate/internal/types"
	"github.com/stretchr/testify/suite"
)

// BaseServiceTestSuite wires the in-memory store and stub collaborators that
// service tests build on.
type BaseServiceTestSuite struct {
	suite.Suite
	cfg      *config.Configuration
	logger   *logger.Logger
	store    *InMemorySubscriptionStore
	gateway  *StubGateway
	notifier *StubNotifier
	profiles *StubProfileResolver
}

// SetupTest initializes fresh collaborators before each test.
func (s *BaseServiceTestSuite) SetupTest() {
	s.cfg = config.GetDefaultConfig()
	s.logger = logger.GetLogger()
	s.store = NewInMemorySubscriptionStore(types.RetirementModeSoft)
	s.gateway = &StubGateway{}
	s.notifier = &StubNotifier{}
	s.profiles = &StubProfileResolver{Names: map[int64]string{}}
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return context.Background()
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetStore() *InMemorySubscriptionStore {
	return s.store
}

func (s *BaseServiceTestSuite) GetGateway() *StubGateway {
	return s.gateway
}

func (s *BaseServiceTestSuite) GetNotifier() *StubNotifier {
	return s.notifier
}

func (s *BaseServiceTestSuite) GetProfiles() *StubProfileResolver {
	return s.profiles
}
