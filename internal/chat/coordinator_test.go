// ABOUTME: Tests for the turn coordinator
// ABOUTME: Covers turn flow, fan-out, failures, history and serialization

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hearth/internal/llm"
	"github.com/2389/hearth/internal/store"
)

// setupCoordinator builds a coordinator over a real file store and the
// given completer.
func setupCoordinator(t *testing.T, completer llm.Completer) (*Coordinator, *store.FileStore) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir(), "test prompt", slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	coord := NewCoordinator(st, completer, llm.Params{Model: "test"}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	return coord, st
}

func echoCompleter() llm.Completer {
	return llm.CompleterFunc(func(_ context.Context, conv store.Conversation, _ llm.Params) (store.Message, error) {
		last := conv[len(conv)-1]
		return store.Message{Role: store.RoleAssistant, Content: "echo: " + last.Content}, nil
	})
}

// collect drains n events from ch, failing the test on timeout.
func collect(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	for len(out) < n {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "channel closed after %d of %d events", len(out), n)
			out = append(out, ev)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestCoordinator_FullTurn(t *testing.T) {
	coord, st := setupCoordinator(t, echoCompleter())
	ch, connID := coord.Subscribe("client")
	defer coord.Unsubscribe("client", connID)

	coord.HandleMessage("client", connID, "hello")

	events := collect(t, ch, 3)
	assert.Equal(t, EventTyping, events[0].Name)
	assert.Equal(t, true, events[0].Data)
	assert.Equal(t, EventTyping, events[2].Name)
	assert.Equal(t, false, events[2].Data)

	require.Equal(t, EventAIResponse, events[1].Name)
	payload, ok := events[1].Data.(ResponsePayload)
	require.True(t, ok)
	assert.Equal(t, "echo: hello", payload.Message)
	_, err := time.Parse(time.RFC3339, payload.Timestamp)
	assert.NoError(t, err)

	// Both sides of the turn are durable.
	conv, err := st.Read(context.Background(), "client")
	require.NoError(t, err)
	require.Len(t, conv, 3)
	assert.Equal(t, store.RoleUser, conv[1].Role)
	assert.Equal(t, "hello", conv[1].Content)
	assert.Equal(t, store.RoleAssistant, conv[2].Role)
	assert.Equal(t, "echo: hello", conv[2].Content)
}

func TestCoordinator_FanOutToAllConnections(t *testing.T) {
	coord, _ := setupCoordinator(t, echoCompleter())
	ch1, conn1 := coord.Subscribe("client")
	ch2, conn2 := coord.Subscribe("client")
	other, connOther := coord.Subscribe("someone-else")
	defer coord.Unsubscribe("client", conn1)
	defer coord.Unsubscribe("client", conn2)
	defer coord.Unsubscribe("someone-else", connOther)

	coord.HandleMessage("client", conn1, "hi")

	// The originating connection sees the whole turn.
	events := collect(t, ch1, 3)
	assert.Equal(t, EventTyping, events[0].Name)
	assert.Equal(t, EventAIResponse, events[1].Name)
	assert.Equal(t, EventTyping, events[2].Name)

	// Other connections of the same client get the reply only.
	events = collect(t, ch2, 1)
	require.Equal(t, EventAIResponse, events[0].Name)
	payload := events[0].Data.(ResponsePayload)
	assert.Equal(t, "echo: hi", payload.Message)
	select {
	case ev := <-ch2:
		t.Fatalf("unexpected extra event for passive connection: %v", ev)
	default:
	}

	// Other clients hear nothing.
	select {
	case ev := <-other:
		t.Fatalf("unexpected event for other client: %v", ev)
	default:
	}
}

func TestCoordinator_CompletionFailureSendsApology(t *testing.T) {
	failing := llm.CompleterFunc(func(context.Context, store.Conversation, llm.Params) (store.Message, error) {
		return store.Message{}, errors.New("backend down")
	})
	coord, st := setupCoordinator(t, failing)
	ch, connID := coord.Subscribe("client")
	defer coord.Unsubscribe("client", connID)

	coord.HandleMessage("client", connID, "hello")

	events := collect(t, ch, 3)
	assert.Equal(t, EventTyping, events[0].Name)
	require.Equal(t, EventAIResponse, events[1].Name)
	payload := events[1].Data.(ResponsePayload)
	assert.Equal(t, apologyText, payload.Message)
	assert.Equal(t, EventTyping, events[2].Name)
	assert.Equal(t, false, events[2].Data)

	// A failed turn leaves the log untouched: just the seeded system prompt.
	conv, err := st.Read(context.Background(), "client")
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, store.RoleSystem, conv[0].Role)
}

// appendFailStore delegates everything but Append, which always fails.
type appendFailStore struct {
	store.Store
}

func (s appendFailStore) Append(context.Context, string, ...store.Message) (store.Conversation, error) {
	return nil, errors.New("disk full")
}

func TestCoordinator_StorageFailureSendsApology(t *testing.T) {
	coord, st := setupCoordinator(t, echoCompleter())
	coord.store = appendFailStore{Store: st}
	ch, connID := coord.Subscribe("client")
	defer coord.Unsubscribe("client", connID)

	coord.HandleMessage("client", connID, "hello")

	// The model answered, but the reply never reaches the client because
	// the turn could not be recorded.
	events := collect(t, ch, 3)
	assert.Equal(t, EventTyping, events[0].Name)
	require.Equal(t, EventAIResponse, events[1].Name)
	payload := events[1].Data.(ResponsePayload)
	assert.Equal(t, apologyText, payload.Message)
	assert.Equal(t, EventTyping, events[2].Name)
	assert.Equal(t, false, events[2].Data)

	// The stored log is untouched: just the seed from Load.
	conv, err := st.Read(context.Background(), "client")
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, store.RoleSystem, conv[0].Role)
}

func TestCoordinator_HistoryGoesToRequesterOnly(t *testing.T) {
	coord, st := setupCoordinator(t, echoCompleter())

	_, err := st.Append(context.Background(), "client", store.Message{Role: store.RoleUser, Content: "earlier"})
	require.NoError(t, err)

	ch1, conn1 := coord.Subscribe("client")
	ch2, conn2 := coord.Subscribe("client")
	defer coord.Unsubscribe("client", conn1)
	defer coord.Unsubscribe("client", conn2)

	coord.HandleHistoryRequest(context.Background(), "client", conn1)

	events := collect(t, ch1, 1)
	require.Equal(t, EventLoadHistory, events[0].Name)
	conv, ok := events[0].Data.(store.Conversation)
	require.True(t, ok)
	require.Len(t, conv, 1) // system prompt filtered out
	assert.Equal(t, "earlier", conv[0].Content)

	select {
	case ev := <-ch2:
		t.Fatalf("history leaked to another connection: %v", ev)
	default:
	}
}

func TestCoordinator_HistorySeedsNewClient(t *testing.T) {
	coord, st := setupCoordinator(t, echoCompleter())
	ch, connID := coord.Subscribe("fresh")
	defer coord.Unsubscribe("fresh", connID)

	coord.HandleHistoryRequest(context.Background(), "fresh", connID)

	events := collect(t, ch, 1)
	require.Equal(t, EventLoadHistory, events[0].Name)
	assert.Empty(t, events[0].Data)

	// The seeded log is on disk even though the client saw none of it.
	conv, err := st.Read(context.Background(), "fresh")
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, store.RoleSystem, conv[0].Role)
}

func TestCoordinator_TurnSurvivesDisconnect(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := llm.CompleterFunc(func(_ context.Context, conv store.Conversation, _ llm.Params) (store.Message, error) {
		close(started)
		<-release
		return store.Message{Role: store.RoleAssistant, Content: "late reply"}, nil
	})
	coord, st := setupCoordinator(t, slow)

	_, connID := coord.Subscribe("client")
	done := make(chan struct{})
	go func() {
		coord.HandleMessage("client", connID, "hello")
		close(done)
	}()

	<-started
	coord.Unsubscribe("client", connID)
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("turn did not complete after disconnect")
	}

	conv, err := st.Read(context.Background(), "client")
	require.NoError(t, err)
	require.Len(t, conv, 3)
	assert.Equal(t, "late reply", conv[2].Content)
}

func TestCoordinator_TurnsSerializedPerClient(t *testing.T) {
	var active, maxActive int32
	completer := llm.CompleterFunc(func(_ context.Context, conv store.Conversation, _ llm.Params) (store.Message, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return store.Message{Role: store.RoleAssistant, Content: "ok"}, nil
	})
	coord, st := setupCoordinator(t, completer)
	ch, connID := coord.Subscribe("client")
	defer coord.Unsubscribe("client", connID)
	go func() {
		for range ch {
		}
	}()

	const turns = 5
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			coord.HandleMessage("client", connID, fmt.Sprintf("msg %d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive), "turns for one client overlapped")

	conv, err := st.Read(context.Background(), "client")
	require.NoError(t, err)
	assert.Len(t, conv, 1+2*turns)

	// Turns alternate user/assistant with no interleaving.
	for i := 1; i < len(conv); i += 2 {
		assert.Equal(t, store.RoleUser, conv[i].Role)
		assert.Equal(t, store.RoleAssistant, conv[i+1].Role)
	}
}

func TestCoordinator_DistinctClientsRunInParallel(t *testing.T) {
	gate := make(chan struct{})
	var waiting sync.WaitGroup
	waiting.Add(2)
	completer := llm.CompleterFunc(func(_ context.Context, conv store.Conversation, _ llm.Params) (store.Message, error) {
		waiting.Done()
		<-gate
		return store.Message{Role: store.RoleAssistant, Content: "ok"}, nil
	})
	coord, _ := setupCoordinator(t, completer)

	var wg sync.WaitGroup
	for _, id := range []string{"alice", "bob"} {
		_, connID := coord.Subscribe(id)
		wg.Add(1)
		go func(id, connID string) {
			defer wg.Done()
			coord.HandleMessage(id, connID, "hello")
		}(id, connID)
	}

	// Both completions must be in flight at once before the gate opens.
	ok := make(chan struct{})
	go func() { waiting.Wait(); close(ok) }()
	select {
	case <-ok:
	case <-time.After(5 * time.Second):
		t.Fatal("clients did not run concurrently")
	}
	close(gate)
	wg.Wait()
}

func TestCoordinator_SlowConnectionDropsEventsNotTurns(t *testing.T) {
	coord, _ := setupCoordinator(t, echoCompleter())
	_, connID := coord.Subscribe("client")
	defer coord.Unsubscribe("client", connID)

	// Never drain the connection; every turn must still complete.
	for i := 0; i < eventBufferSize; i++ {
		coord.HandleMessage("client", connID, "flood")
	}
}
