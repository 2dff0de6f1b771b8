// Package telegram принимает апдейты бота и раздаёт их обработчикам,
// сохраняя порядок сообщений внутри одного чата.
package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Update aliases models.Update for brevity.
type Update = models.Update

// Sender отправляет сообщения. *bot.Bot удовлетворяет интерфейсу.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

var _ Sender = (*bot.Bot)(nil)

// HandlerFunc processes a single update.
type HandlerFunc func(ctx context.Context, s Sender, upd *models.Update)

// ChatID возвращает чат апдейта или 0.
func ChatID(u *models.Update) int64 {
	if u.Message != nil {
		return u.Message.Chat.ID
	}
	if u.CallbackQuery != nil && u.CallbackQuery.Message.Message != nil {
		return u.CallbackQuery.Message.Message.Chat.ID
	}
	return 0
}

// UserID возвращает автора апдейта или 0.
func UserID(u *models.Update) int64 {
	if m := u.Message; m != nil && m.From != nil {
		return m.From.ID
	}
	if cb := u.CallbackQuery; cb != nil {
		return cb.From.ID
	}
	return 0
}

// Reply отправляет текст в чат апдейта.
func Reply(ctx context.Context, s Sender, upd *models.Update, text string) error {
	chat := ChatID(upd)
	if chat == 0 || s == nil {
		return nil
	}
	_, err := s.SendMessage(ctx, &bot.SendMessageParams{ChatID: chat, Text: text})
	return err
}
