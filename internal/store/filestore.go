// ABOUTME: File-backed Store keeping one JSON log per client
// ABOUTME: Whole-file writes with a per-client lock and an in-memory cache

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/2389/hearth/internal/identity"
)

// FileStore persists each client's conversation as a pretty-printed JSON
// file named <clientID>.json in a single directory. Every append rewrites
// the whole file; an in-memory cache holds the last successfully written
// log per client so reads rarely hit disk.
type FileStore struct {
	dir          string
	systemPrompt string
	logger       *slog.Logger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	cache  map[string]Conversation
	closed bool
}

// NewFileStore opens (creating if needed) the storage directory and
// discovers existing conversation files.
func NewFileStore(dir, systemPrompt string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	s := &FileStore{
		dir:          dir,
		systemPrompt: systemPrompt,
		logger:       logger,
		locks:        make(map[string]*sync.Mutex),
		cache:        make(map[string]Conversation),
	}

	ids, err := s.scan()
	if err != nil {
		return nil, err
	}
	logger.Info("conversation storage ready", "dir", dir, "conversations", len(ids))
	return s, nil
}

// seed returns the conversation every new client starts with.
func (s *FileStore) seed() Conversation {
	return Conversation{{Role: RoleSystem, Content: s.systemPrompt}}
}

// lockFor returns the mutex serializing access to one client's file.
func (s *FileStore) lockFor(clientID string) (*sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	l, ok := s.locks[clientID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[clientID] = l
	}
	return l, nil
}

func (s *FileStore) path(clientID string) string {
	return filepath.Join(s.dir, identity.Sanitize(clientID)+".json")
}

// Load implements Store. A client with no file, or with a file that no
// longer parses, gets a freshly seeded conversation persisted in its place.
func (s *FileStore) Load(ctx context.Context, clientID string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock, err := s.lockFor(clientID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.currentLocked(clientID)
	if err == nil {
		return conv.Clone(), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	conv = s.seed()
	if err := s.writeLocked(clientID, conv); err != nil {
		return nil, err
	}
	return conv.Clone(), nil
}

// Append implements Store. All messages go into one file rewrite, and
// the cache is updated only after that write succeeds, so a failure
// leaves the previous log intact with none of msgs applied.
func (s *FileStore) Append(ctx context.Context, clientID string, msgs ...Message) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock, err := s.lockFor(clientID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.currentLocked(clientID)
	if errors.Is(err, ErrNotFound) {
		conv = s.seed()
	} else if err != nil {
		return nil, err
	}

	next := conv.Append(msgs...)
	if err := s.writeLocked(clientID, next); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// Read implements Store. A client with no file gets the seeded default
// back without anything being written.
func (s *FileStore) Read(ctx context.Context, clientID string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock, err := s.lockFor(clientID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.currentLocked(clientID)
	if errors.Is(err, ErrNotFound) {
		return s.seed(), nil
	}
	if err != nil {
		return nil, err
	}
	return conv.Clone(), nil
}

// List implements Store. IDs are derived from filenames, so they are the
// sanitized form of whatever the client presented.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.scan()
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// currentLocked returns the client's log from cache or disk. The caller
// must hold the client's lock.
func (s *FileStore) currentLocked(clientID string) (Conversation, error) {
	s.mu.Lock()
	conv, ok := s.cache[clientID]
	s.mu.Unlock()
	if ok {
		return conv, nil
	}

	data, err := os.ReadFile(s.path(clientID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading conversation %s: %w", clientID, err)
	}

	if err := json.Unmarshal(data, &conv); err != nil {
		// A mangled file is unrecoverable for chat purposes. Start the
		// client over rather than wedging them permanently.
		s.logger.Warn("conversation file corrupt, reseeding",
			"client", clientID, "error", err)
		return nil, ErrNotFound
	}

	s.mu.Lock()
	s.cache[clientID] = conv
	s.mu.Unlock()
	return conv, nil
}

// writeLocked rewrites the client's file and, on success, the cache.
// The caller must hold the client's lock.
func (s *FileStore) writeLocked(clientID string, conv Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", clientID, err)
	}
	if err := os.WriteFile(s.path(clientID), data, 0o644); err != nil {
		return fmt.Errorf("writing conversation %s: %w", clientID, err)
	}
	s.mu.Lock()
	s.cache[clientID] = conv
	s.mu.Unlock()
	return nil
}

// scan lists client IDs from the storage directory.
func (s *FileStore) scan() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing storage directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
