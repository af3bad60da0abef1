package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/internal/request"
	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

// WeekResult is the set of events for one week.
type WeekResult struct {
	Anchor    time.Time
	FetchedAt time.Time
	Events    []models.Event
	FromCache bool
}

// ScheduleService reads and edits the weekly calendar.
type ScheduleService struct {
	api       dispatcher
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleService constructs a ScheduleService. A nil cache always fetches.
func NewScheduleService(api dispatcher, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleService{api: api, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// WeekEvents returns the events of the week containing anchor. A cached copy
// younger than the freshness window is reused unless force is set.
func (s *ScheduleService) WeekEvents(ctx context.Context, anchor time.Time, force bool) (*WeekResult, error) {
	now := s.now()
	if !force {
		if snapshot, ok := s.cache.FreshWeek(ctx, anchor, now); ok {
			return &WeekResult{
				Anchor:    anchor,
				FetchedAt: dateutil.WireDateOrNow(snapshot.FetchedAt),
				Events:    withLocalIDs(snapshot.Events),
				FromCache: true,
			}, nil
		}
	}

	data, err := s.api.Execute(ctx, request.GetEvents{Date: anchor})
	if err != nil {
		return nil, err
	}
	events, err := decodeEvents(data)
	if err != nil {
		return nil, err
	}
	for _, event := range events {
		if !event.Valid() {
			s.logger.Warn("event with invalid timestamp or duration", zap.Int("id", event.ID), zap.String("date", event.Date), zap.Int64("duration", event.Duration))
		}
	}

	if err := s.cache.StoreWeek(ctx, anchor, now, events); err != nil {
		s.logger.Warn("failed to cache week", zap.String("anchor", dateutil.LocalDateString(anchor)), zap.Error(err))
	}

	return &WeekResult{Anchor: anchor, FetchedAt: now, Events: events}, nil
}

// DayEvents returns the events that fall on the local calendar day of day.
func (s *ScheduleService) DayEvents(ctx context.Context, day time.Time, force bool) ([]models.Event, error) {
	week, err := s.WeekEvents(ctx, day, force)
	if err != nil {
		return nil, err
	}
	return FilterDay(week.Events, day), nil
}

// Create schedules a new event from draft.
func (s *ScheduleService) Create(ctx context.Context, draft models.EventDraft) error {
	if err := s.validateDraft(draft); err != nil {
		return err
	}
	payload := NewEventPayload(draft)
	if err := s.validatePayload(payload); err != nil {
		return err
	}
	if _, err := s.api.Execute(ctx, request.AddEvent{Data: payload}); err != nil {
		s.logger.Warn("failed to add event", zap.String("title", draft.Title), zap.Error(err))
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Update sends the fields of draft that differ from original. It reports
// false without calling the API when nothing changed.
func (s *ScheduleService) Update(ctx context.Context, original models.Event, draft models.EventDraft) (bool, error) {
	if err := s.validateDraft(draft); err != nil {
		return false, err
	}
	payload := DiffEvent(original, draft)
	if payload.Empty() {
		return false, nil
	}
	if err := s.validatePayload(payload); err != nil {
		return false, err
	}
	if _, err := s.api.Execute(ctx, request.EditEvent{ID: original.ID, Data: payload}); err != nil {
		s.logger.Warn("failed to update event", zap.Int("id", original.ID), zap.Error(err))
		return false, err
	}
	s.invalidate(ctx)
	return true, nil
}

// Delete removes an event.
func (s *ScheduleService) Delete(ctx context.Context, id int) error {
	if _, err := s.api.Execute(ctx, request.DeleteEvent{ID: id}); err != nil {
		s.logger.Warn("failed to delete event", zap.Int("id", id), zap.Error(err))
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Assignee resolves the member an event is assigned to. The embedded user is
// used when the member list does not contain it.
func Assignee(event models.Event, members []models.User) *models.User {
	if event.UserID == nil {
		return nil
	}
	for i := range members {
		if members[i].ID != nil && *members[i].ID == *event.UserID {
			return &members[i]
		}
	}
	return event.User
}

// FilterDay keeps the events whose timestamp falls on the local day of day.
func FilterDay(events []models.Event, day time.Time) []models.Event {
	result := make([]models.Event, 0, len(events))
	for _, event := range events {
		if dateutil.SameLocalDay(event.Date, day) {
			result = append(result, event)
		}
	}
	return result
}

// EditDraft builds the editable form of an existing event.
func EditDraft(event models.Event) models.EventDraft {
	start := dateutil.WireDateOrNow(event.Date)
	return models.EventDraft{
		Title:  event.Event,
		Onsite: event.Onsite,
		From:   start,
		To:     start.Add(time.Duration(event.Duration) * time.Millisecond),
		Notes:  event.Notes,
		UserID: event.UserID,
	}
}

// NewEventPayload converts a draft into a full create payload. An unassigned
// draft omits the assignee.
func NewEventPayload(draft models.EventDraft) models.EventPayload {
	date := draft.From
	title := draft.Title
	onsite := draft.Onsite
	notes := draft.Notes
	duration := draft.DurationMillis()
	payload := models.EventPayload{
		Date:     &date,
		Title:    &title,
		Onsite:   &onsite,
		Notes:    &notes,
		Duration: &duration,
	}
	if draft.UserID != nil {
		id := *draft.UserID
		payload.UserID = &id
	}
	return payload
}

// DiffEvent returns a payload holding only the fields of draft that differ
// from original. Clearing the assignee yields models.Unassigned.
func DiffEvent(original models.Event, draft models.EventDraft) models.EventPayload {
	var payload models.EventPayload

	if original.Event != draft.Title {
		title := draft.Title
		payload.Title = &title
	}
	if original.Onsite != draft.Onsite {
		onsite := draft.Onsite
		payload.Onsite = &onsite
	}
	from := draft.From.Truncate(time.Millisecond)
	if start, ok := original.Start(); !ok || !start.Equal(from) {
		payload.Date = &from
	}
	if duration := draft.DurationMillis(); original.Duration != duration {
		payload.Duration = &duration
	}
	if !sameAssignee(original.UserID, draft.UserID) {
		id := models.Unassigned
		if draft.UserID != nil {
			id = *draft.UserID
		}
		payload.UserID = &id
	}
	if original.Notes != draft.Notes {
		notes := draft.Notes
		payload.Notes = &notes
	}

	return payload
}

func sameAssignee(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *ScheduleService) validateDraft(draft models.EventDraft) error {
	if err := s.validator.Struct(draft); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "event title is required")
	}
	if draft.To.Before(draft.From) {
		return appErrors.Clone(appErrors.ErrValidation, "event must end after it starts")
	}
	return nil
}

func (s *ScheduleService) validatePayload(payload models.EventPayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "event duration or assignee out of range")
	}
	return nil
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateWeeks(ctx); err != nil {
		s.logger.Warn("failed to invalidate week cache", zap.Error(err))
	}
}

func decodeEvents(data []byte) ([]models.Event, error) {
	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrJSONDecode.Code, appErrors.ErrJSONDecode.Status, appErrors.ErrJSONDecode.Message)
	}
	return withLocalIDs(events), nil
}

func withLocalIDs(events []models.Event) []models.Event {
	for i := range events {
		events[i].LocalID = uuid.New()
	}
	return events
}
