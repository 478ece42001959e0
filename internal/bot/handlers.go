package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/channelgate/channelgate/internal/api/dto"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/relay"
	"github.com/channelgate/channelgate/internal/telegram"
	"github.com/channelgate/channelgate/internal/types"
	"github.com/shopspring/decimal"
)

func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) {
	b.reply(ctx, msg, welcomeMessage)
}

func (b *Bot) handleHelp(ctx context.Context, msg *telegram.Message) {
	b.reply(ctx, msg, helpMessage)
}

func (b *Bot) handleAddPremium(ctx context.Context, msg *telegram.Message, args []string) {
	if len(args) < 2 {
		b.reply(ctx, msg, "Usage: /addpremium <user_id> <duration> [tier]\nExample: /addpremium 123456 7day premium")
		return
	}

	subscriberID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(ctx, msg, "Invalid user ID. Please provide a numeric user ID.")
		return
	}

	req := &dto.GrantRequest{
		RequesterID:  msg.From.ID,
		SubscriberID: subscriberID,
		DurationExpr: strings.ToLower(args[1]),
	}
	if len(args) >= 3 {
		req.PlanTier = types.PlanTier(strings.ToLower(args[2]))
	}

	sub, err := b.grants.Grant(ctx, req)
	if err != nil {
		b.replyError(ctx, msg, err, "Failed to add premium user.")
		return
	}

	b.reply(ctx, msg, fmt.Sprintf(
		"User %d has been added to %s until %s.\n\nShare this invite link:\n%s",
		sub.SubscriberID, sub.PlanTier,
		sub.ExpiryTime.Format(time.RFC1123), b.cfg.Telegram.InviteLink,
	))
}

func (b *Bot) handleListUsers(ctx context.Context, msg *telegram.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(ctx, msg, unauthorizedMessage)
		return
	}

	subs, err := b.grants.ListAll(ctx)
	if err != nil {
		b.replyError(ctx, msg, err, "Failed to list users.")
		return
	}
	if len(subs) == 0 {
		b.reply(ctx, msg, "No premium users found.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Premium users:\n\n")
	for i, sub := range subs {
		state := "active"
		if !sub.IsActive {
			state = "retired"
		}
		name := sub.ProfileName
		if name == "" {
			name = "-"
		}
		sb.WriteString(fmt.Sprintf("%d. %d (%s): %s, %s, expires %s\n",
			i+1, sub.SubscriberID, name, sub.PlanTier, state,
			sub.ExpiryTime.Format(time.RFC1123)))
	}
	b.reply(ctx, msg, sb.String())
}

func (b *Bot) handleStatus(ctx context.Context, msg *telegram.Message) {
	sub, err := b.grants.GetStatus(ctx, msg.From.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			b.reply(ctx, msg, "You have no active subscription.")
			return
		}
		b.replyError(ctx, msg, err, "Failed to look up your subscription.")
		return
	}

	b.reply(ctx, msg, fmt.Sprintf(
		"Your %s access is active until %s.",
		sub.PlanTier, sub.ExpiryTime.Format(time.RFC1123),
	))
}

func (b *Bot) handlePlans(ctx context.Context, msg *telegram.Message) {
	prices := b.cfg.Subscription.PlanPrices
	if len(prices) == 0 {
		b.reply(ctx, msg, "No plans are configured. Contact the administrator.")
		return
	}

	tiers := make([]string, 0, len(prices))
	for tier := range prices {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)

	var sb strings.Builder
	sb.WriteString("Available plans:\n\n")
	for _, tier := range tiers {
		price, err := decimal.NewFromString(prices[tier])
		if err != nil {
			b.log.Warnw("invalid plan price in config", "tier", tier, "price", prices[tier])
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: $%s/month\n", tier, price.StringFixed(2)))
	}
	sb.WriteString("\nContact the administrator to purchase access.")
	b.reply(ctx, msg, sb.String())
}

func (b *Bot) handleExport(ctx context.Context, msg *telegram.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(ctx, msg, unauthorizedMessage)
		return
	}

	data, filename, err := b.exports.ExportCSV(ctx)
	if err != nil {
		b.replyError(ctx, msg, err, "Failed to export subscriptions.")
		return
	}

	tmpPath := filepath.Join(os.TempDir(), filename)
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		b.log.Errorw("failed to write export file", "error", err)
		b.reply(ctx, msg, "Failed to export subscriptions.")
		return
	}
	defer os.Remove(tmpPath)

	if err := b.client.SendDocument(ctx, msg.Chat.ID, tmpPath, filename, "Subscription export"); err != nil {
		b.log.Errorw("failed to upload export", "error", err)
		b.reply(ctx, msg, "Failed to upload the export file.")
	}
}

func (b *Bot) handleDownload(ctx context.Context, msg *telegram.Message, args []string) {
	if !b.relayEnabled() {
		b.reply(ctx, msg, "File relay is disabled.")
		return
	}
	if len(args) < 1 {
		b.reply(ctx, msg, "Please provide a direct link.\nExample: /download <url>")
		return
	}
	b.handleRelayURL(ctx, msg, args[0])
}

func (b *Bot) handleRelayURL(ctx context.Context, msg *telegram.Message, rawURL string) {
	info, err := b.relay.Probe(ctx, rawURL)
	if err != nil {
		b.replyError(ctx, msg, err, "Please make sure this is a valid direct download link.")
		return
	}

	session := &relay.Session{
		ChatID:       msg.Chat.ID,
		URL:          rawURL,
		OriginalName: info.Name,
		Size:         info.Size,
		ContentType:  info.ContentType,
	}
	b.sessions.Put(session)

	size := "unknown"
	if info.Size > 0 {
		size = relay.FormatFileSize(info.Size)
	}
	b.reply(ctx, msg, fmt.Sprintf(
		"File detected\n\nName: %s\nSize: %s\nType: %s\n\nSend /upload to transfer it, or /rename <new name> first.",
		info.Name, size, info.ContentType,
	))
}

func (b *Bot) handleRename(ctx context.Context, msg *telegram.Message, args []string) {
	if !b.relayEnabled() {
		b.reply(ctx, msg, "File relay is disabled.")
		return
	}
	if len(args) < 1 {
		b.reply(ctx, msg, "Please provide a new filename. Example:\n/rename myfile.mp4")
		return
	}

	session := b.sessions.Get(msg.Chat.ID)
	if session == nil {
		b.reply(ctx, msg, "No file pending for upload. Please send a URL first.")
		return
	}

	name := strings.Join(args, " ")
	if !validFilename(name) {
		b.reply(ctx, msg, "Invalid filename. Please use a plain name without path separators.")
		return
	}

	session.NewName = name
	b.sessions.Put(session)
	b.reply(ctx, msg, fmt.Sprintf("Filename changed to: %s\n\nSend /upload to start the transfer.", session.NewName))
}

func (b *Bot) handleUpload(ctx context.Context, msg *telegram.Message) {
	if !b.relayEnabled() {
		b.reply(ctx, msg, "File relay is disabled.")
		return
	}

	session := b.sessions.Get(msg.Chat.ID)
	if session == nil {
		b.reply(ctx, msg, "No file to upload. Please send a URL first.")
		return
	}

	b.reply(ctx, msg, "Downloading, please wait...")

	filePath, err := b.relay.Download(ctx, session)
	if err != nil {
		b.replyError(ctx, msg, err, "Download failed. Invalid link or network error.")
		return
	}
	defer b.relay.Cleanup(filePath)

	b.reply(ctx, msg, "Uploading to Telegram...")

	caption := "Upload complete!\n\nOriginal URL: " + session.URL
	if err := b.client.SendDocument(ctx, msg.Chat.ID, filePath, session.FinalName(), caption); err != nil {
		b.log.Errorw("relay upload failed", "chat_id", msg.Chat.ID, "error", err)
		b.reply(ctx, msg, "Upload failed. Please try again later.")
		return
	}

	b.sessions.Delete(msg.Chat.ID)
}

// validFilename reports whether a rename target is a bare filename. Names
// with separators or ".." segments could resolve outside the relay temp dir.
func validFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return true
}

// replyError maps service errors to user-facing replies: hints for
// validation and authorization problems, the fallback text for everything
// else.
func (b *Bot) replyError(ctx context.Context, msg *telegram.Message, err error, fallback string) {
	switch {
	case ierr.IsPermissionDenied(err):
		b.reply(ctx, msg, unauthorizedMessage)
	case ierr.IsValidation(err):
		if hint := ierr.Hint(err); hint != "" {
			b.reply(ctx, msg, hint)
			return
		}
		b.reply(ctx, msg, fallback)
	default:
		b.log.Errorw("command failed", "error", err)
		b.reply(ctx, msg, fallback)
	}
}
