// Package memory stores long-term memories, session summaries and the room
// message log for one agent on top of a collab.Collaborator.
//
// Reads that return long-term memories bump their access bookkeeping and are
// serialized with writes. The Peek and summary/message accessors are pure
// reads and may run concurrently.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/model"
)

// Collection names in the collaborator.
const (
	LongTermCollection = "long_term_memories"
	SummaryCollection  = "session_summaries"
	MessageCollection  = "messages"
)

// Embedder turns text into a vector. *embedding.Cache satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service is the memory store of one agent.
type Service struct {
	store   collab.Collaborator
	agentID string

	embedder Embedder
	dims     int
	logger   *slog.Logger
	now      func() time.Time

	mu sync.RWMutex

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option configures a Service.
type Option func(*Service)

// WithEmbedder embeds memory content on insert and enables text search.
func WithEmbedder(e Embedder) Option {
	return func(s *Service) {
		s.embedder = e
	}
}

// WithDimensions rejects embeddings whose length is not n.
func WithDimensions(n int) Option {
	return func(s *Service) {
		s.dims = n
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service for agentID.
func New(store collab.Collaborator, agentID string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil collaborator", model.ErrInvalidInput)
	}
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent id is required", model.ErrInvalidInput)
	}
	s := &Service{
		store:   store,
		agentID: agentID,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AgentID returns the owning agent.
func (s *Service) AgentID() string { return s.agentID }

// CanSearch reports whether text search is available.
func (s *Service) CanSearch() bool { return s.embedder != nil }

func (s *Service) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// timestamp returns the current UTC time without a monotonic reading so
// values compare equal after a JSON round trip.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Round(0)
}

func (s *Service) checkDims(vec []float32) error {
	if s.dims > 0 && len(vec) > 0 && len(vec) != s.dims {
		return fmt.Errorf("%w: got %d, want %d", model.ErrDimensionMismatch, len(vec), s.dims)
	}
	return nil
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if err := s.checkDims(vec); err != nil {
		return nil, err
	}
	return vec, nil
}
