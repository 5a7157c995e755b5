// Package web embeds the static chat page. The UI is a single HTML file
// with vanilla JS that speaks the socket protocol from internal/chat and
// reconnects with backoff when the server goes away.
package web
