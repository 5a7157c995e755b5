// Package gateway assembles and runs the hearth server.
//
// New wires the conversation store, the model client and the chat
// coordinator, then hangs the HTTP surface off one mux:
//
//   - /            the embedded chat UI
//   - /ws          the websocket chat endpoint
//   - /health      liveness
//   - /health/ready readiness (store answering)
//   - /transcript/ read-only HTML transcripts
//
// Run serves until its context is canceled, then shuts down with a five
// second grace period. The listener is plain TCP by default; with
// tailscale enabled the server joins the tailnet via tsnet instead,
// optionally with HTTPS certificates or a public funnel.
package gateway
