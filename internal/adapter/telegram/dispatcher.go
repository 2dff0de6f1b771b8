package telegram

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-telegram/bot/models"
)

type ctxUpdate struct {
	ctx context.Context
	upd *models.Update
}

// Dispatcher routes updates to worker goroutines keeping chat order.
// Запрос к модели может идти десятки секунд, поэтому чаты обрабатываются параллельно.
type Dispatcher struct {
	sender  Sender
	handler HandlerFunc
	log     *slog.Logger
	chans   []chan ctxUpdate
	wg      sync.WaitGroup
	once    sync.Once
}

// NewDispatcher creates dispatcher with given worker count.
func NewDispatcher(s Sender, workers int, h HandlerFunc, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{sender: s, handler: h, log: log, chans: make([]chan ctxUpdate, workers)}
	for i := range d.chans {
		d.chans[i] = make(chan ctxUpdate, 100)
		d.wg.Add(1)
		go d.worker(d.chans[i])
	}
	return d
}

// Dispatch sends update to appropriate worker based on chat ID.
// Блокируется, пока очередь воркера заполнена или ctx не отменён.
func (d *Dispatcher) Dispatch(ctx context.Context, upd *models.Update) {
	idx := 0
	if chatID := ChatID(upd); chatID != 0 {
		idx = int(abs(chatID) % int64(len(d.chans)))
	}
	select {
	case d.chans[idx] <- ctxUpdate{ctx: ctx, upd: upd}:
	case <-ctx.Done():
		d.log.Warn("telegram update dropped", slog.Int64("update_id", upd.ID))
	}
}

// Close stops accepting updates and waits for queued ones to finish.
// Dispatch must not be called after Close.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		for _, ch := range d.chans {
			close(ch)
		}
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker(in <-chan ctxUpdate) {
	defer d.wg.Done()
	for item := range in {
		d.handle(item)
	}
}

func (d *Dispatcher) handle(item ctxUpdate) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("telegram handler panic", slog.Int64("update_id", item.upd.ID), slog.Any("panic", r))
		}
	}()
	d.handler(item.ctx, d.sender, item.upd)
}

func abs(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}
