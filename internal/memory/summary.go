package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/model"
)

// StoreSessionSummary saves sum as the only summary of its room, replacing
// every earlier one. Older summaries are dropped, not merged.
func (s *Service) StoreSessionSummary(ctx context.Context, sum model.SessionSummary) (*model.SessionSummary, error) {
	sum.Summary = strings.TrimSpace(sum.Summary)
	if sum.RoomID == "" {
		return nil, fmt.Errorf("%w: room id is required", model.ErrInvalidInput)
	}
	if sum.Summary == "" {
		return nil, fmt.Errorf("%w: summary text is required", model.ErrInvalidInput)
	}
	if sum.MessageCount < 0 || sum.LastMessageOffset < 0 {
		return nil, fmt.Errorf("%w: negative message count or offset", model.ErrInvalidInput)
	}
	if err := s.checkDims(sum.Embedding); err != nil {
		return nil, err
	}
	if len(sum.Embedding) == 0 && s.embedder != nil {
		vec, err := s.embed(ctx, sum.Summary)
		if err != nil {
			return nil, err
		}
		sum.Embedding = vec
	}

	now := s.timestamp()
	sum.ID = s.newID()
	sum.AgentID = s.agentID
	sum.CreatedAt = now
	sum.UpdatedAt = now
	if sum.EndTime.IsZero() {
		sum.EndTime = now
	}
	if sum.StartTime.IsZero() {
		sum.StartTime = sum.EndTime
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior, err := s.store.GetWhere(ctx, SummaryCollection, s.roomFilter(sum.RoomID))
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	if err := collab.Put(ctx, s.store, SummaryCollection, sum.ID, sum); err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}
	for _, d := range prior {
		if err := s.store.Delete(ctx, SummaryCollection, d.ID); err != nil {
			return nil, fmt.Errorf("drop superseded summary %s: %w", d.ID, err)
		}
	}
	s.logger.Debug("stored session summary", "room", sum.RoomID, "messages", sum.MessageCount, "replaced", len(prior))
	return &sum, nil
}

// GetCurrentSessionSummary returns the summary of roomID or model.ErrNotFound.
func (s *Service) GetCurrentSessionSummary(ctx context.Context, roomID string) (*model.SessionSummary, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: room id is required", model.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.store.GetWhere(ctx, SummaryCollection, s.roomFilter(roomID))
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	sums, err := collab.Decode[model.SessionSummary](docs)
	if err != nil {
		return nil, err
	}
	if len(sums) == 0 {
		return nil, fmt.Errorf("%w: no summary for room %s", model.ErrNotFound, roomID)
	}

	// ulid ids sort by creation time
	latest := sums[0]
	for _, sum := range sums[1:] {
		if sum.ID > latest.ID {
			latest = sum
		}
	}
	return &latest, nil
}

func (s *Service) roomFilter(roomID string) collab.Filter {
	return collab.Filter{"agent_id": s.agentID, "room_id": roomID}
}
