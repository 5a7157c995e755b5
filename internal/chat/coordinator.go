// ABOUTME: Turn coordinator wiring the conversation store to the model
// ABOUTME: Fans events out to every connection a client has open

package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/hearth/internal/llm"
	"github.com/2389/hearth/internal/store"
)

const (
	// eventBufferSize is the channel buffer for each connection.
	eventBufferSize = 64

	// apologyText goes to the client when a turn fails. It is delivered
	// like a normal reply but never persisted.
	apologyText = "Sorry, I ran into a problem answering that. Please try again."
)

// Coordinator runs chat turns. A turn asks the model for a reply to the
// log plus the new user message, records both on success, and fans the
// reply out to every connection the client has open. Turns for one
// client run strictly one at a time; turns for different clients run
// freely in parallel.
type Coordinator struct {
	store     store.Store
	completer llm.Completer
	params    llm.Params
	logger    *slog.Logger

	mu    sync.RWMutex
	conns map[string]map[string]chan Event // clientID -> connID -> ch
	turns map[string]*sync.Mutex
}

// NewCoordinator wires a coordinator over the given store and completer.
func NewCoordinator(st store.Store, completer llm.Completer, params llm.Params, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:     st,
		completer: completer,
		params:    params,
		logger:    logger.With("component", "chat"),
		conns:     make(map[string]map[string]chan Event),
		turns:     make(map[string]*sync.Mutex),
	}
}

// Subscribe registers a connection for a client's events. The returned
// channel receives every event addressed to the client until Unsubscribe
// closes it.
func (c *Coordinator) Subscribe(clientID string) (<-chan Event, string) {
	connID := uuid.New().String()
	ch := make(chan Event, eventBufferSize)

	c.mu.Lock()
	if _, ok := c.conns[clientID]; !ok {
		c.conns[clientID] = make(map[string]chan Event)
	}
	c.conns[clientID][connID] = ch
	c.mu.Unlock()

	c.logger.Debug("connection subscribed", "client", clientID, "conn", connID)
	return ch, connID
}

// Unsubscribe removes a connection and closes its channel. A turn in
// flight keeps running; its result simply has one fewer recipient.
func (c *Coordinator) Unsubscribe(clientID, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs, ok := c.conns[clientID]
	if !ok {
		return
	}
	ch, ok := subs[connID]
	if !ok {
		return
	}
	delete(subs, connID)
	if len(subs) == 0 {
		delete(c.conns, clientID)
	}
	close(ch)

	c.logger.Debug("connection unsubscribed", "client", clientID, "conn", connID)
}

// Connections reports how many connections the client currently has.
func (c *Coordinator) Connections(clientID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns[clientID])
}

// HandleMessage runs one full turn for the client and returns when the
// reply (or apology) has been delivered. Typing indicators and apologies
// go to the originating connection only; the reply itself is broadcast
// to every connection the client has open. The method ignores the
// caller's lifetime deliberately: a client that disconnects mid-turn
// still gets the exchange recorded, and any remaining connections get
// the reply.
func (c *Coordinator) HandleMessage(clientID, connID, text string) {
	turn := c.turnLock(clientID)
	turn.Lock()
	defer turn.Unlock()

	ctx := context.Background()
	logger := c.logger.With("client", clientID)

	c.send(clientID, connID, typingEvent(true))

	fail := func(stage string, err error) {
		logger.Error("turn failed", "stage", stage, "error", err)
		c.send(clientID, connID, responseEvent(apologyText, timestamp()))
		c.send(clientID, connID, typingEvent(false))
	}

	conv, err := c.store.Load(ctx, clientID)
	if err != nil {
		fail("load", err)
		return
	}

	userMsg := store.Message{Role: store.RoleUser, Content: text}
	reply, err := c.completer.Complete(ctx, conv.Append(userMsg), c.params)
	if err != nil {
		fail("complete", err)
		return
	}

	// Nothing is persisted until the model has answered, and both sides
	// of the exchange land in one write, so a failed turn leaves the log
	// exactly as it was.
	if _, err := c.store.Append(ctx, clientID, userMsg, reply); err != nil {
		fail("append", err)
		return
	}

	c.publish(clientID, responseEvent(reply.Content, timestamp()))
	c.send(clientID, connID, typingEvent(false))
}

// HandleHistoryRequest sends the client's visible conversation to the
// requesting connection only.
func (c *Coordinator) HandleHistoryRequest(ctx context.Context, clientID, connID string) {
	conv, err := c.store.Load(ctx, clientID)
	if err != nil {
		c.logger.Error("failed to load history", "client", clientID, "error", err)
		return
	}
	c.send(clientID, connID, historyEvent(conv))
}

// publish fans an event out to all of a client's connections. Sends are
// non-blocking: a connection that stopped draining loses events rather
// than stalling the turn.
func (c *Coordinator) publish(clientID string, ev Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for connID, ch := range c.conns[clientID] {
		select {
		case ch <- ev:
		default:
			c.logger.Debug("dropped event for slow connection",
				"client", clientID, "conn", connID, "event", ev.Name)
		}
	}
}

// send delivers an event to one connection.
func (c *Coordinator) send(clientID, connID string, ev Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ch, ok := c.conns[clientID][connID]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		c.logger.Debug("dropped event for slow connection",
			"client", clientID, "conn", connID, "event", ev.Name)
	}
}

func (c *Coordinator) turnLock(clientID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.turns[clientID]
	if !ok {
		l = &sync.Mutex{}
		c.turns[clientID] = l
	}
	return l
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
