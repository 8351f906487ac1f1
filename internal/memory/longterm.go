package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/embedding"
	"github.com/rcliao/agentcore/internal/model"
)

// ScoredMemory is a long-term memory with its similarity to a query.
type ScoredMemory struct {
	model.LongTermMemory
	Similarity float64 `json:"similarity"`
}

// ListParams filters PeekLongTermMemories. An empty EntityID lists every
// entity; Limit <= 0 means no limit.
type ListParams struct {
	EntityID          string
	Category          model.Category
	Limit             int
	IncludeSuperseded bool
}

// StoreLongTermMemory inserts m without deduplication. Missing id and
// timestamps are filled in; content is embedded when an embedder is
// configured and m carries no embedding.
func (s *Service) StoreLongTermMemory(ctx context.Context, m model.LongTermMemory) (*model.LongTermMemory, error) {
	rec, err := s.prepare(ctx, m)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := collab.Put(ctx, s.store, LongTermCollection, rec.ID, rec); err != nil {
		return nil, fmt.Errorf("store long-term memory: %w", err)
	}
	s.logger.Debug("stored long-term memory", "id", rec.ID, "entity", rec.EntityID, "category", rec.Category)
	return &rec, nil
}

func (s *Service) prepare(ctx context.Context, m model.LongTermMemory) (model.LongTermMemory, error) {
	m.Content = strings.TrimSpace(m.Content)
	switch {
	case m.EntityID == "":
		return m, fmt.Errorf("%w: entity id is required", model.ErrInvalidInput)
	case m.Content == "":
		return m, fmt.Errorf("%w: content is required", model.ErrInvalidInput)
	case !model.ValidCategories[m.Category]:
		return m, fmt.Errorf("%w: unknown category %q", model.ErrInvalidInput, m.Category)
	case m.Confidence < 0 || m.Confidence > 1:
		return m, fmt.Errorf("%w: confidence %v outside [0,1]", model.ErrInvalidInput, m.Confidence)
	}
	if err := s.checkDims(m.Embedding); err != nil {
		return m, err
	}
	if len(m.Embedding) == 0 && s.embedder != nil {
		vec, err := s.embed(ctx, m.Content)
		if err != nil {
			return m, err
		}
		m.Embedding = vec
	}

	now := s.timestamp()
	if m.ID == "" {
		m.ID = s.newID()
	}
	m.AgentID = s.agentID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	return m, nil
}

// GetLongTermMemories returns up to limit current memories about entityID,
// highest confidence first, newer first on ties. Every returned record has
// its access count and last-accessed time bumped, and the bumped values are
// returned. A zero limit returns an empty result.
func (s *Service) GetLongTermMemories(ctx context.Context, entityID string, limit int) ([]model.LongTermMemory, error) {
	if err := checkQuery(entityID, limit); err != nil {
		return nil, err
	}
	if limit == 0 {
		return []model.LongTermMemory{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx, entityID)
	if err != nil {
		return nil, err
	}
	recs = current(recs)
	sortByConfidence(recs)
	if len(recs) > limit {
		recs = recs[:limit]
	}
	if err := s.touch(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetRelevantMemories returns up to limit current memories about entityID
// whose embedding has cosine similarity >= minSimilarity with query, most
// similar first. Records without an embedding are skipped. Returned records
// are access-bumped like GetLongTermMemories.
func (s *Service) GetRelevantMemories(ctx context.Context, entityID string, query []float32, limit int, minSimilarity float64) ([]ScoredMemory, error) {
	if err := checkQuery(entityID, limit); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query embedding is required", model.ErrInvalidInput)
	}
	if err := s.checkDims(query); err != nil {
		return nil, err
	}
	if limit == 0 {
		return []ScoredMemory{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx, entityID)
	if err != nil {
		return nil, err
	}

	scored := []ScoredMemory{}
	for _, r := range current(recs) {
		if len(r.Embedding) == 0 {
			continue
		}
		if len(r.Embedding) != len(query) {
			return nil, fmt.Errorf("%w: memory %s has %d dims, query has %d",
				model.ErrDimensionMismatch, r.ID, len(r.Embedding), len(query))
		}
		sim := embedding.CosineSimilarity(query, r.Embedding)
		if sim < minSimilarity {
			continue
		}
		scored = append(scored, ScoredMemory{LongTermMemory: r, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return ranksBefore(scored[i].LongTermMemory, scored[j].LongTermMemory)
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	recs = make([]model.LongTermMemory, len(scored))
	for i := range scored {
		recs[i] = scored[i].LongTermMemory
	}
	if err := s.touch(ctx, recs); err != nil {
		return nil, err
	}
	for i := range scored {
		scored[i].LongTermMemory = recs[i]
	}
	return scored, nil
}

// SearchLongTermMemories embeds text and runs GetRelevantMemories with it.
func (s *Service) SearchLongTermMemories(ctx context.Context, entityID, text string, limit int, minSimilarity float64) ([]ScoredMemory, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", model.ErrModel)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: search text is required", model.ErrInvalidInput)
	}
	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.GetRelevantMemories(ctx, entityID, vec, limit, minSimilarity)
}

// PeekLongTermMemories lists memories in retrieval order without touching
// access bookkeeping. Used by the CLI, export and the extraction evaluator.
func (s *Service) PeekLongTermMemories(ctx context.Context, p ListParams) ([]model.LongTermMemory, error) {
	if p.Category != "" && !model.ValidCategories[p.Category] {
		return nil, fmt.Errorf("%w: unknown category %q", model.ErrInvalidInput, p.Category)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.load(ctx, p.EntityID)
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		if !p.IncludeSuperseded && r.Superseded() {
			continue
		}
		if p.Category != "" && r.Category != p.Category {
			continue
		}
		out = append(out, r)
	}
	sortByConfidence(out)
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

// LongTermMemory returns one memory by id without touching bookkeeping.
func (s *Service) LongTermMemory(ctx context.Context, id string) (*model.LongTermMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ctx, id)
}

// SupersedeLongTermMemory stores replacement as the successor of oldID and
// marks the old record superseded. The old record is kept.
func (s *Service) SupersedeLongTermMemory(ctx context.Context, oldID string, replacement model.LongTermMemory) (*model.LongTermMemory, error) {
	replacement.ID = ""
	replacement.Supersedes = oldID
	rec, err := s.prepare(ctx, replacement)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	if old.Superseded() {
		return nil, fmt.Errorf("%w: memory %s is already superseded", model.ErrInvalidInput, oldID)
	}
	if err := collab.Put(ctx, s.store, LongTermCollection, rec.ID, rec); err != nil {
		return nil, fmt.Errorf("store replacement: %w", err)
	}
	now := s.timestamp()
	old.SupersededAt = &now
	old.UpdatedAt = now
	if err := collab.Put(ctx, s.store, LongTermCollection, old.ID, old); err != nil {
		return nil, fmt.Errorf("mark superseded: %w", err)
	}
	return &rec, nil
}

// DeleteLongTermMemory is an administrative hard delete.
func (s *Service) DeleteLongTermMemory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, LongTermCollection, id)
}

func (s *Service) get(ctx context.Context, id string) (*model.LongTermMemory, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory id is required", model.ErrInvalidInput)
	}
	doc, err := s.store.Get(ctx, LongTermCollection, id)
	if err != nil {
		return nil, err
	}
	recs, err := collab.Decode[model.LongTermMemory]([]collab.Document{*doc})
	if err != nil {
		return nil, err
	}
	if recs[0].AgentID != s.agentID {
		return nil, fmt.Errorf("%w: memory %s", model.ErrNotFound, id)
	}
	return &recs[0], nil
}

// load returns every memory of this agent, optionally for one entity.
func (s *Service) load(ctx context.Context, entityID string) ([]model.LongTermMemory, error) {
	f := collab.Filter{"agent_id": s.agentID}
	if entityID != "" {
		f["entity_id"] = entityID
	}
	docs, err := s.store.GetWhere(ctx, LongTermCollection, f)
	if err != nil {
		return nil, fmt.Errorf("load long-term memories: %w", err)
	}
	return collab.Decode[model.LongTermMemory](docs)
}

// touch bumps access bookkeeping on recs in place and persists them.
// Callers hold the write lock.
func (s *Service) touch(ctx context.Context, recs []model.LongTermMemory) error {
	now := s.timestamp()
	for i := range recs {
		recs[i].AccessCount++
		recs[i].LastAccessedAt = &now
		if err := collab.Put(ctx, s.store, LongTermCollection, recs[i].ID, recs[i]); err != nil {
			return fmt.Errorf("update access count: %w", err)
		}
	}
	return nil
}

func checkQuery(entityID string, limit int) error {
	if entityID == "" {
		return fmt.Errorf("%w: entity id is required", model.ErrInvalidInput)
	}
	if limit < 0 {
		return fmt.Errorf("%w: negative limit %d", model.ErrInvalidInput, limit)
	}
	return nil
}

func current(recs []model.LongTermMemory) []model.LongTermMemory {
	out := recs[:0]
	for _, r := range recs {
		if !r.Superseded() {
			out = append(out, r)
		}
	}
	return out
}

// ranksBefore orders by confidence, then created_at, then id, all descending.
func ranksBefore(a, b model.LongTermMemory) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func sortByConfidence(recs []model.LongTermMemory) {
	sort.SliceStable(recs, func(i, j int) bool { return ranksBefore(recs[i], recs[j]) })
}
