package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rg/danmakubot/internal/messaging"
)

// BotAPI is the subset of *tgbotapi.BotAPI the client uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Client struct {
	api         BotAPI
	pollTimeout int
}

// NewClient connects to the Bot API, optionally through proxyURL
// (socks5://, socks5h://, http:// or https://).
func NewClient(token string, pollTimeout int, proxyURL string) (*Client, error) {
	httpClient, err := newHTTPClient(proxyURL)
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot.Debug = false
	slog.Info("Authorized on Telegram account", "username", bot.Self.UserName)

	return NewClientWithAPI(bot, pollTimeout), nil
}

// NewClientWithAPI wraps an existing BotAPI, mainly for tests.
func NewClientWithAPI(api BotAPI, pollTimeout int) *Client {
	return &Client{
		api:         api,
		pollTimeout: pollTimeout,
	}
}

func (c *Client) SendMessage(out *messaging.OutgoingMessage) error {
	msg := tgbotapi.NewMessage(out.ChatID, out.Text)
	msg.ParseMode = string(out.ParseMode)
	if out.Keyboard != nil && len(out.Keyboard.Rows) > 0 {
		msg.ReplyMarkup = buildKeyboard(out.Keyboard)
	}

	if _, err := c.api.Send(msg); err != nil {
		if msg.ParseMode == "" {
			return fmt.Errorf("failed to send message: %w", err)
		}
		// Telegram rejects the whole message on a single bad entity.
		slog.Warn("Formatted send failed, retrying as plain text", "chat_id", out.ChatID, "error", err)
		msg.ParseMode = ""
		msg.Text = PlainFromMarkdownV2(out.Text)
		if _, err := c.api.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}

	return nil
}

func (c *Client) AnswerCallback(callbackID, text string) error {
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// Start long-polls for updates until ctx is cancelled.
func (c *Client) Start(ctx context.Context, handlers messaging.Handlers) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout

	updates := c.api.GetUpdatesChan(u)
	slog.Info("Telegram bot started, listening for updates")

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			slog.Info("Telegram bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.dispatch(update, handlers)
		}
	}
}

func (c *Client) dispatch(update tgbotapi.Update, handlers messaging.Handlers) {
	switch {
	case update.Message != nil:
		if handlers.OnMessage == nil || update.Message.From == nil {
			return
		}
		if err := handlers.OnMessage(convertMessage(update.Message)); err != nil {
			slog.Error("Error handling message", "chat_id", update.Message.Chat.ID, "error", err)
		}
	case update.CallbackQuery != nil:
		if handlers.OnCallback == nil {
			return
		}
		cb := convertCallback(update.CallbackQuery)
		if err := handlers.OnCallback(cb); err != nil {
			slog.Error("Error handling callback", "chat_id", cb.ChatID, "data", cb.Data, "error", err)
		}
	}
}
