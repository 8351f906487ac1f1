// Package inmemory provides the default process-local collaborator.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/model"
)

// Store implements collab.Store with maps. Stored bytes are copied on the
// way in and out.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
	migrations  map[string]collab.Migration
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]json.RawMessage),
		migrations:  make(map[string]collab.Migration),
	}
}

func (s *Store) Get(_ context.Context, collection, id string) (*collab.Document, error) {
	if err := collab.CheckKey(collection, &id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", model.ErrNotFound, collection, id)
	}
	return &collab.Document{ID: id, Data: clone(data)}, nil
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]collab.Document, error) {
	return s.GetWhere(ctx, collection, nil)
}

func (s *Store) GetWhere(_ context.Context, collection string, f collab.Filter) ([]collab.Document, error) {
	if err := collab.CheckKey(collection, nil); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := []collab.Document{}
	for id, data := range s.collections[collection] {
		ok, err := collab.Match(data, f)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, collab.Document{ID: id, Data: clone(data)})
		}
	}
	collab.SortByID(docs)
	return docs, nil
}

func (s *Store) Set(_ context.Context, collection, id string, data json.RawMessage) error {
	if err := collab.CheckKey(collection, &id); err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s/%s is not valid JSON", model.ErrInvalidInput, collection, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string]json.RawMessage)
		s.collections[collection] = c
	}
	c[id] = clone(data)
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	if err := collab.CheckKey(collection, &id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return fmt.Errorf("%w: %s/%s", model.ErrNotFound, collection, id)
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *Store) Count(ctx context.Context, collection string, f collab.Filter) (int, error) {
	docs, err := s.GetWhere(ctx, collection, f)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *Store) GetLastMigration(_ context.Context, plugin string) (*collab.Migration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.migrations[plugin]
	if !ok {
		return nil, fmt.Errorf("%w: migration for %s", model.ErrNotFound, plugin)
	}
	return &m, nil
}

func (s *Store) RecordMigration(_ context.Context, plugin, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.migrations[plugin] = collab.Migration{Plugin: plugin, Hash: hash, AppliedAt: at}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func clone(b json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

var _ collab.Store = (*Store)(nil)
