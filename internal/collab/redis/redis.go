// Package redis implements the persistent collaborator on Redis hashes.
//
// Each collection is one hash "{prefix}:col:{collection}" mapping document id
// to JSON. Migrations live in the hash "{prefix}:migrations". Filters are
// evaluated client side.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/model"
)

const defaultPrefix = "agentcore"

// Store implements collab.Store using Redis.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// New wraps an existing client. An empty prefix defaults to "agentcore".
func New(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, prefix string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

func (s *Store) colKey(collection string) string {
	return fmt.Sprintf("%s:col:%s", s.prefix, collection)
}

func (s *Store) migrationsKey() string {
	return s.prefix + ":migrations"
}

func (s *Store) Get(ctx context.Context, collection, id string) (*collab.Document, error) {
	if err := collab.CheckKey(collection, &id); err != nil {
		return nil, err
	}
	val, err := s.client.HGet(ctx, s.colKey(collection), id).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: %s/%s", model.ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, err
	}
	return &collab.Document{ID: id, Data: json.RawMessage(val)}, nil
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]collab.Document, error) {
	return s.GetWhere(ctx, collection, nil)
}

func (s *Store) GetWhere(ctx context.Context, collection string, f collab.Filter) ([]collab.Document, error) {
	if err := collab.CheckKey(collection, nil); err != nil {
		return nil, err
	}
	all, err := s.client.HGetAll(ctx, s.colKey(collection)).Result()
	if err != nil {
		return nil, err
	}

	docs := []collab.Document{}
	for id, val := range all {
		data := json.RawMessage(val)
		ok, err := collab.Match(data, f)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, collab.Document{ID: id, Data: data})
		}
	}
	collab.SortByID(docs)
	return docs, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data json.RawMessage) error {
	if err := collab.CheckKey(collection, &id); err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s/%s is not valid JSON", model.ErrInvalidInput, collection, id)
	}
	return s.client.HSet(ctx, s.colKey(collection), id, string(data)).Err()
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := collab.CheckKey(collection, &id); err != nil {
		return err
	}
	n, err := s.client.HDel(ctx, s.colKey(collection), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", model.ErrNotFound, collection, id)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, collection string, f collab.Filter) (int, error) {
	if len(f) == 0 {
		if err := collab.CheckKey(collection, nil); err != nil {
			return 0, err
		}
		n, err := s.client.HLen(ctx, s.colKey(collection)).Result()
		return int(n), err
	}
	docs, err := s.GetWhere(ctx, collection, f)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *Store) GetLastMigration(ctx context.Context, plugin string) (*collab.Migration, error) {
	val, err := s.client.HGet(ctx, s.migrationsKey(), plugin).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: migration for %s", model.ErrNotFound, plugin)
	}
	if err != nil {
		return nil, err
	}
	var m collab.Migration
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return nil, fmt.Errorf("decode migration %s: %w", plugin, err)
	}
	return &m, nil
}

func (s *Store) RecordMigration(ctx context.Context, plugin, hash string, at time.Time) error {
	b, err := json.Marshal(collab.Migration{Plugin: plugin, Hash: hash, AppliedAt: at.UTC()})
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.migrationsKey(), plugin, string(b)).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ collab.Store = (*Store)(nil)
