// Package store provides persistent per-client conversation logs.
//
// # Model
//
// A conversation is an append-only list of messages, oldest first. Every
// conversation begins life with a single system message carrying the
// configured prompt; user and assistant turns are appended after it.
//
// # FileStore
//
// FileStore keeps one pretty-printed JSON file per client under a flat
// storage directory, with the client ID sanitized into the filename.
// Appends rewrite the whole file under a per-client lock, and a cache of
// the last successfully written log keeps the hot path off disk. The
// files are plain enough to read, edit, or delete by hand; a file that
// stops parsing is logged and the client is reseeded on next contact.
package store
