package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/model"
)

// AppendMessage adds msg to its room's log. The stored copy is returned with
// id, agent and timestamp filled in.
func (s *Service) AppendMessage(ctx context.Context, msg model.Message) (*model.Message, error) {
	if msg.RoomID == "" {
		return nil, fmt.Errorf("%w: room id is required", model.ErrInvalidInput)
	}
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if msg.AgentID == "" {
		msg.AgentID = s.agentID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.timestamp()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := collab.Put(ctx, s.store, MessageCollection, msg.ID, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &msg, nil
}

// RecentMessages returns the last limit messages of roomID, oldest first.
func (s *Service) RecentMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", model.ErrInvalidInput, limit)
	}
	msgs, err := s.roomMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// MessagesSince returns the messages of roomID from position offset on,
// oldest first. Offsets index the room log in chronological order.
func (s *Service) MessagesSince(ctx context.Context, roomID string, offset int) ([]model.Message, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", model.ErrInvalidInput, offset)
	}
	msgs, err := s.roomMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if offset >= len(msgs) {
		return []model.Message{}, nil
	}
	return msgs[offset:], nil
}

// CountMessages returns the size of roomID's log.
func (s *Service) CountMessages(ctx context.Context, roomID string) (int, error) {
	if roomID == "" {
		return 0, fmt.Errorf("%w: room id is required", model.ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Count(ctx, MessageCollection, s.roomFilter(roomID))
}

func (s *Service) roomMessages(ctx context.Context, roomID string) ([]model.Message, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: room id is required", model.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.store.GetWhere(ctx, MessageCollection, s.roomFilter(roomID))
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	msgs, err := collab.Decode[model.Message](docs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs, nil
}
