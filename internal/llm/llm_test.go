// ABOUTME: Tests for completion parameters and history trimming
// ABOUTME: Exercises Trim, CompleterFunc and role mapping

package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/2389/hearth/internal/store"
)

func conversation(n int) store.Conversation {
	conv := store.Conversation{{Role: store.RoleSystem, Content: "prompt"}}
	for i := 0; i < n; i++ {
		role := store.RoleUser
		if i%2 == 1 {
			role = store.RoleAssistant
		}
		conv = append(conv, store.Message{Role: role, Content: string(rune('a' + i))})
	}
	return conv
}

func TestDefaultParams(t *testing.T) {
	params := DefaultParams()
	assert.Equal(t, "gpt-3.5-turbo", params.Model)
	assert.Equal(t, 0.7, params.Temperature)
	assert.Equal(t, 1000, params.MaxTokens)
	assert.Zero(t, params.MaxHistory)
}

func TestTrim_NoLimitKeepsEverything(t *testing.T) {
	conv := conversation(6)
	got := Trim(conv, Params{MaxHistory: 0})
	assert.Equal(t, conv, got)
}

func TestTrim_KeepsSystemAndRecentTail(t *testing.T) {
	conv := conversation(6)
	got := Trim(conv, Params{MaxHistory: 2})

	require.Len(t, got, 3)
	assert.Equal(t, store.RoleSystem, got[0].Role)
	assert.Equal(t, conv[5], got[1])
	assert.Equal(t, conv[6], got[2])
}

func TestTrim_UnderLimitUnchanged(t *testing.T) {
	conv := conversation(2)
	got := Trim(conv, Params{MaxHistory: 10})
	assert.Equal(t, conv, got)
}

func TestCompleterFunc(t *testing.T) {
	var gotParams Params
	c := CompleterFunc(func(_ context.Context, conv store.Conversation, params Params) (store.Message, error) {
		gotParams = params
		return store.Message{Role: store.RoleAssistant, Content: "ok"}, nil
	})

	msg, err := c.Complete(context.Background(), conversation(1), Params{Model: "test-model"})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, "test-model", gotParams.Model)
}

func TestToMessageContent_RoleMapping(t *testing.T) {
	conv := store.Conversation{
		{Role: store.RoleSystem, Content: "s"},
		{Role: store.RoleUser, Content: "u"},
		{Role: store.RoleAssistant, Content: "a"},
	}
	got := toMessageContent(conv)

	require.Len(t, got, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, got[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, got[2].Role)
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIOptions{Model: "gpt-3.5-turbo"})
	assert.Error(t, err)
}
