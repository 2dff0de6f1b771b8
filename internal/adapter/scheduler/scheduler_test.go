package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestScheduler_RunsCronJob(t *testing.T) {
	s := New(context.Background(), quiet())
	var runs int64

	_, err := s.AddJob("@every 1s", func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}, JobOptions{Name: "tick"})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return atomic.LoadInt64(&runs) >= 1 }, 3*time.Second, 10*time.Millisecond,
		"задача не выполнилась")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(context.Background(), quiet())
	_, err := s.AddJob("not a schedule", func(context.Context) error { return nil }, JobOptions{Name: "bad"})
	assert.ErrorContains(t, err, `"bad"`)
}

func TestParser_AcceptsFiveAndSixFields(t *testing.T) {
	for _, expr := range []string{"@daily", "0 3 * * *", "0 0 3 * * *", "@every 90m"} {
		_, err := Parser.Parse(expr)
		assert.NoError(t, err, expr)
	}
}

func TestRunNow_Timeout(t *testing.T) {
	s := New(context.Background(), quiet())
	var deadline bool
	s.RunNow(func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return errors.New("logged, not returned")
	}, JobOptions{Name: "once", Timeout: time.Second})
	assert.True(t, deadline)
}

type fakePruner struct {
	before time.Time
	n      int64
	err    error
}

func (f *fakePruner) Prune(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return f.n, f.err
}

func TestPruneJob(t *testing.T) {
	now := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	p := &fakePruner{n: 5}

	err := PruneJob(p, 24*time.Hour, func() time.Time { return now }, quiet())(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), p.before)

	p.err = errors.New("locked")
	err = PruneJob(p, time.Hour, nil, nil)(context.Background())
	assert.ErrorIs(t, err, p.err)
}
