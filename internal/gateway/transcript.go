// ABOUTME: Read-only HTML transcripts of stored conversations
// ABOUTME: Renders the visible log as markdown via goldmark

package gateway

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/hearth/internal/store"
)

const transcriptPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Transcript</title>
<style>
body { max-width: 48rem; margin: 2rem auto; padding: 0 1rem; font-family: system-ui, sans-serif; line-height: 1.5; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; color: #444; }
</style>
</head>
<body>
%s
</body>
</html>`

// handleTranscript serves GET /transcript/ (an index of clients) and
// GET /transcript/{client} (one conversation, system prompt excluded).
func (g *Gateway) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientID := strings.TrimPrefix(r.URL.Path, "/transcript/")
	if clientID == "" {
		g.serveTranscriptIndex(w, r)
		return
	}

	// An unknown client reads as the seeded default, so the page is an
	// empty transcript rather than an error.
	conv, err := g.store.Read(r.Context(), clientID)
	if err != nil {
		g.logger.Error("failed to read transcript", "client", clientID, "error", err)
		http.Error(w, "failed to read conversation", http.StatusInternalServerError)
		return
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# Conversation with %s\n\n", clientID)
	for _, m := range conv.WithoutSystem() {
		speaker := "You"
		if m.Role == store.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&md, "**%s:**\n\n%s\n\n---\n\n", speaker, m.Content)
	}

	g.writeMarkdown(w, md.String())
}

// serveTranscriptIndex lists every client with a stored conversation.
func (g *Gateway) serveTranscriptIndex(w http.ResponseWriter, r *http.Request) {
	ids, err := g.store.List(r.Context())
	if err != nil {
		g.logger.Error("failed to list conversations", "error", err)
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	sort.Strings(ids)

	var md strings.Builder
	md.WriteString("# Conversations\n\n")
	if len(ids) == 0 {
		md.WriteString("No conversations yet.\n")
	}
	for _, id := range ids {
		fmt.Fprintf(&md, "- [%s](/transcript/%s)\n", id, id)
	}

	g.writeMarkdown(w, md.String())
}

func (g *Gateway) writeMarkdown(w http.ResponseWriter, md string) {
	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &htmlBuf); err != nil {
		g.logger.Error("failed to convert markdown", "error", err)
		http.Error(w, "failed to render transcript", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, transcriptPage, htmlBuf.String())
}
