package handlers

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot/models"

	"llmexec/internal/adapter/telegram"
	"llmexec/internal/llm"
	"llmexec/internal/service"
	"llmexec/internal/shared"
)

// MaxMessageLen лимит Telegram на длину текста одного сообщения (в символах).
const MaxMessageLen = 4096

// Completer is the part of service.Service the bot needs.
type Completer interface {
	Complete(ctx context.Context, in llm.Input) (service.Result, error)
}

// Prompt отправляет текст сообщения модели одним пользовательским сообщением
// и отвечает результатом. Длинный ответ делится на несколько сообщений.
func Prompt(svc Completer, log *slog.Logger) telegram.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
		msg := upd.Message
		if msg == nil || strings.TrimSpace(msg.Text) == "" {
			return
		}
		res, err := svc.Complete(ctx, llm.Text(msg.Text))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			_ = telegram.Reply(ctx, s, upd, failureText(err))
			return
		}
		for _, part := range Split(res.Text, MaxMessageLen) {
			if err := telegram.Reply(ctx, s, upd, part); err != nil {
				log.Warn("send reply", slog.String("request_id", res.ID.String()), slog.Any("error", err))
				return
			}
		}
	}
}

func failureText(err error) string {
	switch shared.KindOf(err) {
	case shared.KindRateLimited:
		return "модель перегружена, попробуйте позже"
	case shared.KindTimeout:
		return "модель не ответила вовремя"
	case shared.KindInvalidRequest:
		return "запрос отклонён"
	default:
		return "ошибка запроса к модели"
	}
}

// Split делит text на части не длиннее limit символов, предпочитая разрывы
// по переводу строки. Пустой текст даёт одну часть "(пустой ответ)",
// при limit <= 0 текст не делится.
func Split(text string, limit int) []string {
	if text == "" {
		return []string{"(пустой ответ)"}
	}
	if limit <= 0 {
		return []string{text}
	}
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if i := strings.LastIndexByte(text[:cut], '\n'); i > 0 {
			cut = i + 1
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

// byteOffset возвращает смещение в байтах после n-го символа.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
