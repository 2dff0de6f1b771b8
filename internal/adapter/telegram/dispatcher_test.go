package telegram

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/go-telegram/bot/models"
)

func update(id, chat int64, text string) *models.Update {
	return &models.Update{ID: id, Message: &models.Message{Chat: models.Chat{ID: chat}, Text: text}}
}

func TestDispatcher_KeepsChatOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got = map[int64][]int64{}
	)
	h := func(ctx context.Context, s Sender, upd *models.Update) {
		mu.Lock()
		defer mu.Unlock()
		got[ChatID(upd)] = append(got[ChatID(upd)], upd.ID)
	}
	d := NewDispatcher(nil, 4, h, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx := context.Background()
	for i := int64(1); i <= 50; i++ {
		d.Dispatch(ctx, update(i, 100+i%3, "x"))
		d.Dispatch(ctx, update(1000+i, -7, "y"))
	}
	d.Close()

	for chat, ids := range got {
		for i := 1; i < len(ids); i++ {
			if ids[i] < ids[i-1] {
				t.Fatalf("chat %d out of order: %v", chat, ids)
			}
		}
	}
	if len(got[-7]) != 50 {
		t.Fatalf("chat -7 got %d updates", len(got[-7]))
	}
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	calls := 0
	h := func(ctx context.Context, s Sender, upd *models.Update) {
		calls++
		if upd.ID == 1 {
			panic("boom")
		}
	}
	d := NewDispatcher(nil, 1, h, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.Dispatch(context.Background(), update(1, 5, "a"))
	d.Dispatch(context.Background(), update(2, 5, "b"))
	d.Close()

	if calls != 2 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestIDs(t *testing.T) {
	upd := &models.Update{Message: &models.Message{Chat: models.Chat{ID: 42}, From: &models.User{ID: 7}}}
	if ChatID(upd) != 42 || UserID(upd) != 7 {
		t.Fatalf("chat=%d user=%d", ChatID(upd), UserID(upd))
	}
	if ChatID(&models.Update{}) != 0 || UserID(&models.Update{}) != 0 {
		t.Fatal("empty update must yield zero ids")
	}
}
