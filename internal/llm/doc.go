// Package llm abstracts the language model behind a small Completer
// interface.
//
// The chat layer only ever sees Completer, so tests can substitute a
// CompleterFunc and the provider can change without touching chat code.
// OpenAIClient is the production implementation, built on langchaingo's
// OpenAI bindings; a custom base URL points it at any API-compatible
// server. Each attempt runs under a timeout and a failed call is retried
// once before the error surfaces.
package llm
