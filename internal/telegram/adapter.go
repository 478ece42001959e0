package telegram

import (
	"context"

	"github.com/channelgate/channelgate/internal/config"
	"github.com/channelgate/channelgate/internal/logger"
)

// MembershipAdapter drives channel membership through the Bot API. Revoking
// is ban-then-unban so an expired subscriber can rejoin via a fresh invite
// after a renewal without a manual unban.
type MembershipAdapter struct {
	client    *Client
	channelID int64
	logger    *logger.Logger
}

// NewMembershipAdapter creates the membership gateway for the gated channel.
func NewMembershipAdapter(client *Client, cfg config.TelegramConfig, log *logger.Logger) *MembershipAdapter {
	return &MembershipAdapter{
		client:    client,
		channelID: cfg.ChannelID,
		logger:    log,
	}
}

// RevokeAccess removes the subscriber from the gated channel. Banning an
// already-removed member succeeds, which keeps retries harmless.
func (a *MembershipAdapter) RevokeAccess(ctx context.Context, subscriberID int64) error {
	return a.client.BanChatMember(ctx, a.channelID, subscriberID)
}

// RestoreEligibility lifts the ban so a future renewal needs no manual step.
func (a *MembershipAdapter) RestoreEligibility(ctx context.Context, subscriberID int64) error {
	return a.client.UnbanChatMember(ctx, a.channelID, subscriberID)
}

// NotifierAdapter sends messages to subscribers, the admin, or the audit
// channel through the Bot API.
type NotifierAdapter struct {
	client *Client
}

// NewNotifierAdapter creates the notifier.
func NewNotifierAdapter(client *Client) *NotifierAdapter {
	return &NotifierAdapter{client: client}
}

// Send delivers a message to the given recipient chat.
func (a *NotifierAdapter) Send(ctx context.Context, recipientID int64, text string) error {
	return a.client.SendMessage(ctx, recipientID, text)
}

// ProfileAdapter resolves display names for profile snapshots. Lookups are
// best-effort; a user who never talked to the bot may be unreachable.
type ProfileAdapter struct {
	client *Client
	logger *logger.Logger
}

// NewProfileAdapter creates the profile resolver.
func NewProfileAdapter(client *Client, log *logger.Logger) *ProfileAdapter {
	return &ProfileAdapter{client: client, logger: log}
}

// LookupProfile returns the subscriber's display name, or an error when the
// user is not reachable through the Bot API.
func (a *ProfileAdapter) LookupProfile(ctx context.Context, subscriberID int64) (string, error) {
	chat, err := a.client.GetChat(ctx, subscriberID)
	if err != nil {
		return "", err
	}

	name := chat.FirstName
	if chat.LastName != "" {
		name = chat.FirstName + " " + chat.LastName
	}
	if name == "" {
		name = chat.Username
	}
	return name, nil
}
