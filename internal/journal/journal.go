// Package journal records one entry per executed request so operators can see
// how many attempts a request took and why it failed.
package journal

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"llmexec/internal/llm"
)

//go:embed migrations
var migrations embed.FS

// Status is the final state of a request.
type Status string

const (
	StatusOK       Status = "ok"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Entry is one journal row. Prompts are stored only as a digest.
type Entry struct {
	ID         uuid.UUID     `json:"id"`
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	PromptHash string        `json:"prompt_hash"`
	Status     Status        `json:"status"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Store persists entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// Prune deletes entries created before the cutoff and reports how many.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// NewEntry fills ID and CreatedAt.
func NewEntry(now time.Time) Entry {
	return Entry{ID: uuid.New(), CreatedAt: now.UTC()}
}

// Digest returns a stable SHA-256 of the prompt.
func Digest(in llm.Input) string {
	b, _ := json.Marshal(in)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Nop discards everything. Used when the journal is disabled.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
func (Nop) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
func (Nop) Prune(context.Context, time.Time) (int64, error) { return 0, nil }
func (Nop) Ping(context.Context) error { return nil }
func (Nop) Close() error { return nil }
