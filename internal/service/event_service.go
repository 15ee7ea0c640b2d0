package service

import (
	"context"
	"fmt"
	"time"

	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/validation"
)

// Broadcaster fans recorded events out to live listeners
type Broadcaster interface {
	Broadcast(v any)
}

// EventService validates and stores analytics events
type EventService struct {
	repo *repository.EventRepository
	hub  Broadcaster
}

// NewEventService creates an event service. hub may be nil.
func NewEventService(repo *repository.EventRepository, hub Broadcaster) *EventService {
	return &EventService{repo: repo, hub: hub}
}

// Record validates an event and appends it
func (s *EventService) Record(ctx context.Context, in validation.EventInput) (*models.Event, error) {
	if err := validation.ValidateEvent(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	event := &models.Event{
		EventType: in.EventType,
		BookID:    in.BookID,
		AgeBand:   in.AgeBand,
		Score:     in.Score,
		UserID:    in.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	if s.hub != nil {
		s.hub.Broadcast(event)
	}
	return event, nil
}

// RecordBackground records an event for a flow that must not fail because
// analytics did.
func (s *EventService) RecordBackground(ctx context.Context, in validation.EventInput) {
	if _, err := s.Record(ctx, in); err != nil {
		logger.Warn("failed to record event", "event_type", in.EventType, "book_id", in.BookID, "error", err)
	}
}

// Recent returns the latest events for the admin live view backlog
func (s *EventService) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	events, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
