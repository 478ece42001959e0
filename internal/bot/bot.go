package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/channelgate/channelgate/internal/config"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/channelgate/channelgate/internal/relay"
	"github.com/channelgate/channelgate/internal/service"
	"github.com/channelgate/channelgate/internal/telegram"
)

// handleTimeout bounds the processing of one incoming update.
const handleTimeout = 5 * time.Minute

// Bot is the Telegram command surface. It long-polls for updates and
// dispatches commands to the services; it owns no business logic itself.
type Bot struct {
	cfg      *config.Configuration
	client   *telegram.Client
	grants   service.GrantService
	exports  service.ExportService
	relay    *relay.Service
	sessions *relay.SessionStore
	log      *logger.Logger

	username string

	stopOnce sync.Once
	cancel   context.CancelFunc
	doneCh   chan struct{}
}

// New creates the bot.
func New(
	cfg *config.Configuration,
	client *telegram.Client,
	grants service.GrantService,
	exports service.ExportService,
	relaySvc *relay.Service,
	log *logger.Logger,
) *Bot {
	var sessions *relay.SessionStore
	if cfg.Relay.Enabled {
		sessions = relay.NewSessionStore(cfg.Relay.SessionTTL)
	}
	return &Bot{
		cfg:      cfg,
		client:   client,
		grants:   grants,
		exports:  exports,
		relay:    relaySvc,
		sessions: sessions,
		log:      log,
		doneCh:   make(chan struct{}),
	}
}

// Start verifies connectivity and launches the polling loop.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return err
	}
	b.username = me.Username
	b.log.Infow("bot connected", "username", me.Username, "id", me.ID)

	ctx, b.cancel = context.WithCancel(context.Background())
	go b.poll(ctx)
	return nil
}

// Stop stops the polling loop and waits for it to exit.
func (b *Bot) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		<-b.doneCh
	})
}

// poll long-polls getUpdates, backing off exponentially on transport errors
// and resetting the backoff after each successful poll.
func (b *Bot) poll(ctx context.Context) {
	defer close(b.doneCh)

	retry := backoff.NewExponentialBackOff()
	retry.MaxInterval = time.Minute
	retry.MaxElapsedTime = 0 // keep polling forever

	var offset int64
	for {
		if ctx.Err() != nil {
			b.log.Infow("bot polling stopped")
			return
		}

		updates, err := b.client.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				b.log.Infow("bot polling stopped")
				return
			}
			wait := retry.NextBackOff()
			b.log.Warnw("getUpdates failed, backing off", "wait", wait, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()

		for _, update := range updates {
			offset = update.UpdateID + 1
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		// Bare URLs start the relay flow, everything else is ignored.
		if b.relayEnabled() && relay.IsDirectURL(text) {
			b.handleRelayURL(ctx, msg, text)
		}
		return
	}

	command, args := b.parseCommand(text)
	if command == "" {
		// Addressed to a different bot in a group chat.
		return
	}
	switch command {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.handleHelp(ctx, msg)
	case "addpremium":
		b.handleAddPremium(ctx, msg, args)
	case "listusers":
		b.handleListUsers(ctx, msg)
	case "status":
		b.handleStatus(ctx, msg)
	case "plans":
		b.handlePlans(ctx, msg)
	case "export":
		b.handleExport(ctx, msg)
	case "download":
		b.handleDownload(ctx, msg, args)
	case "rename":
		b.handleRename(ctx, msg, args)
	case "upload":
		b.handleUpload(ctx, msg)
	default:
		b.reply(ctx, msg, "Unknown command. Send /help for the list of commands.")
	}
}

// parseCommand splits "/cmd@bot arg1 arg2" into the bare command name and
// its arguments, ignoring commands addressed to another bot.
func (b *Bot) parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	command := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(command, "@"); at >= 0 {
		if b.username != "" && !strings.EqualFold(command[at+1:], b.username) {
			return "", nil
		}
		command = command[:at]
	}
	return strings.ToLower(command), fields[1:]
}

func (b *Bot) relayEnabled() bool {
	return b.relay != nil && b.sessions != nil
}

func (b *Bot) isAdmin(userID int64) bool {
	return userID == b.cfg.Admin.AdminID
}

// reply sends a message back to the chat the update came from; failures are
// logged and swallowed like any other notification.
func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string) {
	if err := b.client.SendMessage(ctx, msg.Chat.ID, text); err != nil {
		b.log.Warnw("failed to send reply", "chat_id", msg.Chat.ID, "error", err)
	}
}
