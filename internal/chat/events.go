// ABOUTME: Wire event names and payload types for the chat socket protocol
// ABOUTME: Every frame is {"event": name, "data": payload} in both directions

package chat

import "github.com/2389/hearth/internal/store"

// Event names understood on the socket. Clients send EventChatMessage and
// EventRequestHistory; the server sends the rest.
const (
	EventChatMessage    = "chat message"
	EventRequestHistory = "request history"
	EventTyping         = "typing"
	EventAIResponse     = "ai response"
	EventLoadHistory    = "load history"
)

// Event is an outbound frame.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// ResponsePayload carries an assistant reply.
type ResponsePayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// typingEvent reports whether the assistant is composing a reply.
func typingEvent(active bool) Event {
	return Event{Name: EventTyping, Data: active}
}

// responseEvent wraps an assistant reply with its send time.
func responseEvent(message, timestamp string) Event {
	return Event{Name: EventAIResponse, Data: ResponsePayload{Message: message, Timestamp: timestamp}}
}

// historyEvent carries the visible conversation, system prompt excluded.
func historyEvent(conv store.Conversation) Event {
	return Event{Name: EventLoadHistory, Data: conv.WithoutSystem()}
}
