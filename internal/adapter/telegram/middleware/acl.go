package middleware

import (
	"context"

	"github.com/go-telegram/bot/models"

	"llmexec/internal/adapter/telegram"
)

// ACL проверяет доступ по списку разрешённых Telegram user IDs
type ACL struct{ allowed map[int64]struct{} }

// NewACL создаёт ACL по списку ID. Пустой список запрещает всех.
func NewACL(ids []int64) *ACL {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return &ACL{allowed: m}
}

// IsAllowed сообщает, имеет ли пользователь доступ
func (a *ACL) IsAllowed(id int64) bool { _, ok := a.allowed[id]; return ok }

// Middleware блокирует выполнение хендлера для неразрешённых пользователей.
// Апдейты без автора (каналы, служебные) пропускаются.
func (a *ACL) Middleware(next telegram.HandlerFunc) telegram.HandlerFunc {
	return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
		uid := telegram.UserID(upd)
		if uid == 0 || a.IsAllowed(uid) {
			next(ctx, s, upd)
			return
		}
		_ = telegram.Reply(ctx, s, upd, "доступ запрещен")
	}
}
