package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
)

const eventColumns = `id, date, event, onsite, notes, duration, user_id, created_at, updated_at`

// EventRepository provides database access for scheduled events.
type EventRepository struct {
	db      *sqlx.DB
	metrics QueryObserver
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB, metrics QueryObserver) *EventRepository {
	return &EventRepository{db: db, metrics: metrics}
}

// ListBetween returns events starting in [from, to) ordered by start.
func (r *EventRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.EventRecord, error) {
	defer observe(r.metrics, "events.list_between", time.Now())
	query := `SELECT ` + eventColumns + ` FROM events WHERE date >= $1 AND date < $2 ORDER BY date, id`
	var events []models.EventRecord
	if err := r.db.SelectContext(ctx, &events, query, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// FindByID returns an event by identifier.
func (r *EventRepository) FindByID(ctx context.Context, id int) (*models.EventRecord, error) {
	defer observe(r.metrics, "events.find_by_id", time.Now())
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 LIMIT 1`
	var event models.EventRecord
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// Create inserts an event and stores the generated id on event.
func (r *EventRepository) Create(ctx context.Context, event *models.EventRecord) error {
	defer observe(r.metrics, "events.create", time.Now())
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	const query = `INSERT INTO events (date, event, onsite, notes, duration, user_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	row := r.db.QueryRowxContext(ctx, query, event.Date.UTC(), event.Title, event.Onsite, event.Notes, event.Duration, event.UserID, event.CreatedAt, event.UpdatedAt)
	if err := row.Scan(&event.ID); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an event.
func (r *EventRepository) Update(ctx context.Context, event *models.EventRecord) error {
	defer observe(r.metrics, "events.update", time.Now())
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET date = $2, event = $3, onsite = $4, notes = $5, duration = $6, user_id = $7, updated_at = $8 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, event.ID, event.Date.UTC(), event.Title, event.Onsite, event.Notes, event.Duration, event.UserID, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectAffected(res, "update event")
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, id int) error {
	defer observe(r.metrics, "events.delete", time.Now())
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectAffected(res, "delete event")
}
