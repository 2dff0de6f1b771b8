// Package llm defines the prompt and response types shared by model clients
// and the request executor.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    Role   `json:"role" yaml:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content" yaml:"content" binding:"required"`
}

// Input is the prompt passed to a Client. Clients must not modify it.
type Input struct {
	System   string    `json:"system,omitempty" yaml:"system,omitempty"`
	Messages []Message `json:"messages" yaml:"messages" binding:"required,min=1,dive"`
}

// Text builds an Input holding a single user message.
func Text(prompt string) Input {
	return Input{Messages: []Message{{Role: RoleUser, Content: prompt}}}
}

// ErrEmptyInput is returned by Validate for an input without messages.
var ErrEmptyInput = errors.New("llm: input has no messages")

// Validate checks that the input carries at least one non-empty message with a known role.
func (in Input) Validate() error {
	if len(in.Messages) == 0 {
		return ErrEmptyInput
	}
	for i, m := range in.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("llm: message %d: unknown role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("llm: message %d: empty content", i)
		}
	}
	return nil
}

// SystemPrompt joins Input.System with the content of any system messages.
func (in Input) SystemPrompt() string {
	parts := make([]string, 0, 1)
	if in.System != "" {
		parts = append(parts, in.System)
	}
	for _, m := range in.Messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Turns returns the non-system messages in order.
func (in Input) Turns() []Message {
	out := make([]Message, 0, len(in.Messages))
	for _, m := range in.Messages {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// ContentPart is one block of a multi-part response.
type ContentPart struct {
	Type string
	Text string
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is what a Client returns. Content is the textual payload and may
// be a string, []byte, fmt.Stringer, []ContentPart or nil; see Normalize.
type Response struct {
	Content    any
	Model      string
	StopReason string
	Usage      Usage
}

// Client invokes a model. Implementations may return any error; the executor
// decides which ones are worth retrying.
type Client interface {
	Invoke(ctx context.Context, in Input) (*Response, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, in Input) (*Response, error)

// Invoke calls f(ctx, in).
func (f ClientFunc) Invoke(ctx context.Context, in Input) (*Response, error) {
	return f(ctx, in)
}

// Params are generation settings shared by all backends. Zero values leave
// the provider default in place.
type Params struct {
	Temperature *float64
	MaxTokens   int
}
