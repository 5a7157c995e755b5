// Package chat runs conversations between websocket clients and the
// language model.
//
// # Protocol
//
// Every frame on the socket is a JSON object {"event": name, "data":
// payload}. Clients send "chat message" (a string) and "request
// history"; the server answers with "typing" (a bool), "ai response"
// ({message, timestamp}) and "load history" (the visible log, system
// prompt excluded).
//
// # Coordinator
//
// The Coordinator keeps a registry of open connections per client and
// fans replies out to all of them, so two tabs from the same client
// stay in sync. Typing indicators and apologies go only to the
// connection that sent the message. A per-client lock serializes
// turns, and nothing is persisted until the model answers: a failed
// turn leaves the stored log exactly as it was. Turns run on their own
// goroutine with a background context, so a client that disconnects
// mid-turn still gets the exchange into its log.
package chat
