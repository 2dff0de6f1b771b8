// Package handlers содержит обработчики команд и текстовых запросов бота.
package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot/models"

	"llmexec/internal/adapter/telegram"
)

const startText = "Отправьте текст, и я передам его модели. Команды: /ping"

// Commands routes slash commands; everything else goes to fallback.
func Commands(fallback telegram.HandlerFunc, log *slog.Logger) telegram.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
		msg := upd.Message
		if msg == nil || !strings.HasPrefix(msg.Text, "/") {
			fallback(ctx, s, upd)
			return
		}
		cmd := strings.TrimPrefix(strings.Fields(msg.Text)[0], "/")
		// /start@botname в группах
		cmd, _, _ = strings.Cut(cmd, "@")

		var text string
		switch cmd {
		case "start", "help":
			text = startText
		case "ping":
			text = "pong"
		default:
			text = "неизвестная команда"
		}
		if err := telegram.Reply(ctx, s, upd, text); err != nil {
			log.Warn("send reply", slog.String("command", cmd), slog.Any("error", err))
		}
	}
}
