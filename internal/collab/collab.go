// Package collab defines the narrow storage interface the core uses to reach
// its persistent collaborator, plus migration tracking.
package collab

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/rcliao/agentcore/internal/model"
)

// Document is one JSON record in a collection.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Filter is an AND of exact matches on top-level JSON string fields.
// An empty filter matches everything.
type Filter map[string]string

// Collaborator is the get/set/query interface over named collections.
// Missing documents are reported with model.ErrNotFound. Multi-document
// results are ordered by id ascending.
type Collaborator interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	GetAll(ctx context.Context, collection string) ([]Document, error)
	GetWhere(ctx context.Context, collection string, f Filter) ([]Document, error)
	Set(ctx context.Context, collection, id string, data json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string, f Filter) (int, error)
	Close() error
}

// Migration records the last schema applied for a plugin.
type Migration struct {
	Plugin    string    `json:"plugin"`
	Hash      string    `json:"hash"`
	AppliedAt time.Time `json:"applied_at"`
}

// MigrationTracker remembers which schema hash each plugin last applied.
// GetLastMigration returns model.ErrNotFound when the plugin never migrated.
type MigrationTracker interface {
	GetLastMigration(ctx context.Context, plugin string) (*Migration, error)
	RecordMigration(ctx context.Context, plugin, hash string, at time.Time) error
}

// Store is a collaborator that also tracks migrations.
type Store interface {
	Collaborator
	MigrationTracker
}

// Hash returns the hex sha256 of a schema.
func Hash(schema []byte) string {
	sum := sha256.Sum256(schema)
	return hex.EncodeToString(sum[:])
}

// Migrate runs apply when the schema hash differs from the last one recorded
// for plugin, then records the new hash. It reports whether apply ran.
func Migrate(ctx context.Context, t MigrationTracker, plugin string, schema []byte, apply func(context.Context) error) (bool, error) {
	if plugin == "" {
		return false, fmt.Errorf("%w: plugin name is required", model.ErrInvalidInput)
	}
	hash := Hash(schema)

	last, err := t.GetLastMigration(ctx, plugin)
	switch {
	case err == nil && last.Hash == hash:
		return false, nil
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return false, fmt.Errorf("read migration %s: %w", plugin, err)
	}

	if apply != nil {
		if err := apply(ctx); err != nil {
			return false, fmt.Errorf("apply migration %s: %w", plugin, err)
		}
	}
	if err := t.RecordMigration(ctx, plugin, hash, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("record migration %s: %w", plugin, err)
	}
	return true, nil
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CheckFilter rejects field names that cannot be pushed down safely.
func CheckFilter(f Filter) error {
	for k := range f {
		if !fieldName.MatchString(k) {
			return fmt.Errorf("%w: bad filter field %q", model.ErrInvalidInput, k)
		}
	}
	return nil
}

// CheckKey validates a collection name and, when non-nil, a document id.
func CheckKey(collection string, id *string) error {
	if collection == "" {
		return fmt.Errorf("%w: collection is required", model.ErrInvalidInput)
	}
	if id != nil && *id == "" {
		return fmt.Errorf("%w: document id is required", model.ErrInvalidInput)
	}
	return nil
}

// Match reports whether a JSON object satisfies f.
func Match(data json.RawMessage, f Filter) (bool, error) {
	if len(f) == 0 {
		return true, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return false, fmt.Errorf("decode document: %w", err)
	}
	for k, want := range f {
		got, ok := obj[k].(string)
		if !ok || got != want {
			return false, nil
		}
	}
	return true, nil
}

// SortByID orders documents by id ascending.
func SortByID(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

// Put marshals v and stores it under id.
func Put(ctx context.Context, c Collaborator, collection, id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return c.Set(ctx, collection, id, b)
}

// Decode unmarshals every document into a T.
func Decode[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Data, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
