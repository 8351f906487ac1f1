package memory

import (
	"context"
	"fmt"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/model"
)

// Export is the JSON document written by `agentcore export`.
type Export struct {
	AgentID   string                 `json:"agent_id"`
	Memories  []model.LongTermMemory `json:"memories"`
	Summaries []model.SessionSummary `json:"summaries,omitempty"`
}

// Stats holds per-collection counts for this agent.
type Stats struct {
	AgentID            string `json:"agent_id"`
	LongTermMemories   int    `json:"long_term_memories"`
	SupersededMemories int    `json:"superseded_memories"`
	Entities           int    `json:"entities"`
	SessionSummaries   int    `json:"session_summaries"`
	Messages           int    `json:"messages"`
}

// ExportAll returns every memory (superseded included) and summary of the
// agent, optionally restricted to one entity. Bookkeeping is not touched.
func (s *Service) ExportAll(ctx context.Context, entityID string) (*Export, error) {
	mems, err := s.PeekLongTermMemories(ctx, ListParams{EntityID: entityID, IncludeSuperseded: true})
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f := collab.Filter{"agent_id": s.agentID}
	if entityID != "" {
		f["entity_id"] = entityID
	}
	docs, err := s.store.GetWhere(ctx, SummaryCollection, f)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	sums, err := collab.Decode[model.SessionSummary](docs)
	if err != nil {
		return nil, err
	}
	return &Export{AgentID: s.agentID, Memories: mems, Summaries: sums}, nil
}

// Import stores memories from an export under this agent, keeping their ids
// and timestamps. Records whose id already exists are skipped.
func (s *Service) Import(ctx context.Context, mems []model.LongTermMemory) (int, error) {
	imported := 0
	for _, m := range mems {
		if m.ID != "" {
			if _, err := s.LongTermMemory(ctx, m.ID); err == nil {
				continue
			}
		}
		if _, err := s.StoreLongTermMemory(ctx, m); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

// Stats returns collection counts for this agent.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	mems, err := s.PeekLongTermMemories(ctx, ListParams{IncludeSuperseded: true})
	if err != nil {
		return nil, err
	}

	st := &Stats{AgentID: s.agentID}
	entities := map[string]bool{}
	for _, m := range mems {
		if m.Superseded() {
			st.SupersededMemories++
			continue
		}
		st.LongTermMemories++
		entities[m.EntityID] = true
	}
	st.Entities = len(entities)

	s.mu.RLock()
	defer s.mu.RUnlock()

	f := collab.Filter{"agent_id": s.agentID}
	if st.SessionSummaries, err = s.store.Count(ctx, SummaryCollection, f); err != nil {
		return nil, err
	}
	if st.Messages, err = s.store.Count(ctx, MessageCollection, f); err != nil {
		return nil, err
	}
	return st, nil
}
