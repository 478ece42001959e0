package service

import (
	"github.com/channelgate/channelgate/internal/config"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/logger"
)

// ServiceParams holds the dependencies shared by the services.
type ServiceParams struct {
	Logger   *logger.Logger
	Config   *config.Configuration
	SubRepo  subscription.Repository
	Gateway  MembershipGateway
	Notifier Notifier
	Profiles ProfileResolver
}
