package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rg/danmakubot/internal/messaging"
)

func convertMessage(tgMsg *tgbotapi.Message) *messaging.IncomingMessage {
	msg := &messaging.IncomingMessage{
		MessageID: tgMsg.MessageID,
		Text:      tgMsg.Text,
		Timestamp: time.Unix(int64(tgMsg.Date), 0),
	}
	if tgMsg.Chat != nil {
		msg.ChatID = tgMsg.Chat.ID
	}
	if tgMsg.From != nil {
		msg.From = convertUser(tgMsg.From)
	}
	return msg
}

func convertCallback(q *tgbotapi.CallbackQuery) *messaging.CallbackQuery {
	cb := &messaging.CallbackQuery{
		ID:   q.ID,
		Data: q.Data,
	}
	if q.From != nil {
		cb.From = convertUser(q.From)
	}
	if q.Message != nil {
		cb.MessageID = q.Message.MessageID
		if q.Message.Chat != nil {
			cb.ChatID = q.Message.Chat.ID
		}
	}
	return cb
}

func convertUser(u *tgbotapi.User) messaging.User {
	return messaging.User{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func buildKeyboard(kb *messaging.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
