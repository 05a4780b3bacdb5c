package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bybo/bybo-be/internal/database"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/google/uuid"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, listingID *string) error
	GetRecentEvents(ctx context.Context, limit int, listingID string) ([]models.Event, error)
	PruneEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// EventService records the activity feed.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, listingID *string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, listing_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		uuid.New().String(), eventType, level, message, listingID, database.FormatTime(time.Now()))
	return err
}

// GetRecentEvents retrieves the most recent events, optionally for one listing.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int, listingID string) ([]models.Event, error) {
	query := "SELECT id, type, level, message, listing_id, created_at FROM events"
	args := []any{}
	if listingID != "" {
		query += " WHERE listing_id = ?"
		args = append(args, listingID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			event     models.Event
			listing   sql.NullString
			createdAt database.Timestamp
		)
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &listing, &createdAt); err != nil {
			return nil, err
		}
		if listing.Valid {
			event.ListingID = &listing.String
		}
		event.CreatedAt = createdAt.Time
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneEvents deletes events created before olderThan.
func (s *EventService) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", database.FormatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
