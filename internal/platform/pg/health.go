package pg

import (
	"context"
	"fmt"
	"time"

	"llmexec/pkg/retry"
)

// HealthCheckOptions содержит опции ожидания БД.
type HealthCheckOptions struct {
	// MaxRetries - максимальное количество попыток (0 = до отмены контекста)
	MaxRetries int
	// InitialInterval - начальная задержка между попытками
	InitialInterval time.Duration
	// MaxInterval - максимальная задержка, интервал удваивается до неё
	MaxInterval time.Duration
	// PingTimeout - таймаут для каждой попытки ping
	PingTimeout time.Duration
}

// DefaultHealthCheckOptions возвращает опции по умолчанию.
func DefaultHealthCheckOptions() HealthCheckOptions {
	return HealthCheckOptions{
		MaxRetries:      10,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		PingTimeout:     5 * time.Second,
	}
}

// WaitForDB вызывает ping, пока он не вернёт nil, с экспоненциальной задержкой.
func WaitForDB(ctx context.Context, ping func(context.Context) error, opts HealthCheckOptions) error {
	interval := opts.InitialInterval
	for attempt := 1; ; attempt++ {
		err := pingOnce(ctx, ping, opts.PingTimeout)
		if err == nil {
			return nil
		}
		if opts.MaxRetries > 0 && attempt >= opts.MaxRetries {
			return fmt.Errorf("database not available after %d attempts: %w", attempt, err)
		}
		if serr := retry.Sleep(ctx, interval, nil); serr != nil {
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt, serr)
		}
		interval = nextInterval(interval, opts)
	}
}

func pingOnce(ctx context.Context, ping func(context.Context) error, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return ping(ctx)
}

func nextInterval(cur time.Duration, opts HealthCheckOptions) time.Duration {
	next := cur * 2
	if next <= 0 {
		next = opts.InitialInterval
	}
	if opts.MaxInterval > 0 && next > opts.MaxInterval {
		return opts.MaxInterval
	}
	return next
}
