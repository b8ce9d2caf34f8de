package messaging

import (
	"context"
	"strings"
	"time"
)

// Platform is a chat service the bot talks through.
type Platform interface {
	SendMessage(msg *OutgoingMessage) error
	AnswerCallback(callbackID, text string) error
	Start(ctx context.Context, handlers Handlers) error
}

type MessageHandler func(msg *IncomingMessage) error

type CallbackHandler func(cb *CallbackQuery) error

// Handlers groups the entry points a Platform dispatches to.
type Handlers struct {
	OnMessage  MessageHandler
	OnCallback CallbackHandler
}

type IncomingMessage struct {
	ChatID    int64
	MessageID int
	From      User
	Text      string
	Timestamp time.Time
}

// Command returns the leading /command of the message without any @botname
// suffix, or "" if the message is not a command.
func (m *IncomingMessage) Command() string {
	if !strings.HasPrefix(m.Text, "/") {
		return ""
	}
	fields := strings.Fields(m.Text)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if at := strings.Index(cmd, "@"); at != -1 {
		cmd = cmd[:at]
	}
	return cmd
}

// Args returns the whitespace-separated words after the command.
func (m *IncomingMessage) Args() []string {
	fields := strings.Fields(m.Text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// CallbackQuery is a press on an inline keyboard button.
type CallbackQuery struct {
	ID        string
	ChatID    int64
	MessageID int
	From      User
	Data      string
}

type ParseMode string

const (
	ParseModePlain      ParseMode = ""
	ParseModeMarkdownV2 ParseMode = "MarkdownV2"
)

// OutgoingMessage represents a message to be sent by the bot
type OutgoingMessage struct {
	ChatID    int64
	Text      string
	ParseMode ParseMode
	Keyboard  *Keyboard // Optional: inline buttons under the message
}

type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, one slice per row.
type Keyboard struct {
	Rows [][]Button
}

func NewKeyboard(rows ...[]Button) *Keyboard {
	return &Keyboard{Rows: rows}
}

type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return "unknown"
	}
	return name
}
