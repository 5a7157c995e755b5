// ABOUTME: Completer interface and call parameters for language model backends
// ABOUTME: Keeps the chat coordinator independent of any provider SDK

package llm

import (
	"context"
	"errors"

	"github.com/2389/hearth/internal/store"
)

// Params controls a single completion call.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// MaxHistory caps how many trailing non-system messages are sent to
	// the model. Zero means the whole conversation goes. The stored log
	// is never truncated, only the request.
	MaxHistory int
}

// DefaultParams returns the parameters used when no configuration
// overrides them.
func DefaultParams() Params {
	return Params{
		Model:       "gpt-3.5-turbo",
		Temperature: 0.7,
		MaxTokens:   1000,
	}
}

// ErrEmptyCompletion is returned when the model replies with no content.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Completer produces the assistant's next message for a conversation.
// The conversation includes the system prompt at index 0 and ends with
// the user message being answered.
type Completer interface {
	Complete(ctx context.Context, conv store.Conversation, params Params) (store.Message, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, conv store.Conversation, params Params) (store.Message, error)

func (f CompleterFunc) Complete(ctx context.Context, conv store.Conversation, params Params) (store.Message, error) {
	return f(ctx, conv, params)
}

// Trim applies params.MaxHistory to conv: system messages always stay,
// and only the most recent MaxHistory other messages are kept.
func Trim(conv store.Conversation, params Params) store.Conversation {
	if params.MaxHistory <= 0 {
		return conv
	}
	rest := conv.WithoutSystem()
	if len(rest) <= params.MaxHistory {
		return conv
	}
	rest = rest[len(rest)-params.MaxHistory:]

	out := make(store.Conversation, 0, len(rest)+1)
	for _, m := range conv {
		if m.Role == store.RoleSystem {
			out = append(out, m)
		}
	}
	return append(out, rest...)
}
