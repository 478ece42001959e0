package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/channelgate/channelgate/internal/config"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
)

// Client is a minimal Telegram Bot API client covering the methods this
// service needs. Regular calls retry transient failures; the long-poll
// client does not retry because the bot loop applies its own backoff.
type Client struct {
	cfg        config.TelegramConfig
	logger     *logger.Logger
	httpClient *retryablehttp.Client
	pollClient *retryablehttp.Client
}

// NewClient creates a new Telegram Bot API client.
func NewClient(cfg config.TelegramConfig, log *logger.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.RetryWaitMin = 500 * time.Millisecond
	httpClient.RetryWaitMax = 5 * time.Second
	httpClient.HTTPClient.Timeout = cfg.RequestTimeout
	httpClient.Logger = log.GetRetryableHTTPLogger()

	pollClient := retryablehttp.NewClient()
	pollClient.RetryMax = 0
	pollClient.HTTPClient.Timeout = cfg.PollTimeout + 10*time.Second
	pollClient.Logger = log.GetRetryableHTTPLogger()

	return &Client{
		cfg:        cfg,
		logger:     log,
		httpClient: httpClient,
		pollClient: pollClient,
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.cfg.APIBaseURL, c.cfg.BotToken, method)
}

// call posts params as JSON to the given Bot API method and decodes the
// result envelope into out when out is non-nil.
func (c *Client) call(ctx context.Context, client *retryablehttp.Client, method string, params interface{}, out interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode request parameters").
			Mark(ierr.ErrHTTPClient)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Telegram API call %s failed", method).
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp.Body, method, out)
}

func (c *Client) decodeResponse(r io.Reader, method string, out interface{}) error {
	var envelope apiResponse
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to decode Telegram API response for %s", method).
			Mark(ierr.ErrHTTPClient)
	}

	if !envelope.OK {
		return ierr.NewErrorf("telegram api error on %s: %s", method, envelope.Description).
			WithReportableDetails(map[string]interface{}{
				"method":     method,
				"error_code": envelope.ErrorCode,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	if out != nil && envelope.Result != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return ierr.WithError(err).
				WithHintf("Failed to decode Telegram API result for %s", method).
				Mark(ierr.ErrHTTPClient)
		}
	}

	return nil
}

// GetMe returns the bot's own identity; used as a startup connectivity check.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, c.httpClient, "getMe", map[string]interface{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// SendMessage sends a plain-text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	return c.call(ctx, c.httpClient, "sendMessage", params, nil)
}

// BanChatMember removes a user from a chat.
func (c *Client) BanChatMember(ctx context.Context, chatID, userID int64) error {
	params := map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	}
	return c.call(ctx, c.httpClient, "banChatMember", params, nil)
}

// UnbanChatMember lifts a ban so the user can rejoin via a fresh invite.
// only_if_banned keeps the call idempotent for users who already left.
func (c *Client) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	params := map[string]interface{}{
		"chat_id":        chatID,
		"user_id":        userID,
		"only_if_banned": true,
	}
	return c.call(ctx, c.httpClient, "unbanChatMember", params, nil)
}

// GetChat fetches chat details; for a user id this is their private chat.
func (c *Client) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	var chat Chat
	params := map[string]interface{}{"chat_id": chatID}
	if err := c.call(ctx, c.httpClient, "getChat", params, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetChatMember fetches a user's membership record in a chat.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	var member ChatMember
	params := map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	}
	if err := c.call(ctx, c.httpClient, "getChatMember", params, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// GetUpdates long-polls for updates with ids greater than or equal to offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	params := map[string]interface{}{
		"offset":  offset,
		"timeout": int(c.cfg.PollTimeout.Seconds()),
	}
	var updates []Update
	if err := c.call(ctx, c.pollClient, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendDocument uploads a local file to a chat as a document.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filePath, filename, caption string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to open document for upload").
			Mark(ierr.ErrSystem)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return ierr.WithError(err).Mark(ierr.ErrHTTPClient)
		}
	}
	if filename == "" {
		filename = filepath.Base(filePath)
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	if _, err := io.Copy(part, file); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to read document for upload").
			Mark(ierr.ErrSystem)
	}
	if err := writer.Close(); err != nil {
		return ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), buf.Bytes())
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	// Uploads can exceed the regular request timeout; rely on the caller's
	// context instead of the poll client's generous timeout alone.
	resp, err := c.pollClient.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Telegram document upload failed").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp.Body, "sendDocument", nil)
}
