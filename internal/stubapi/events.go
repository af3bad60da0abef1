package stubapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
	"github.com/noah-isme/guardguys-scheduler/pkg/response"
)

const (
	MsgDateNull        = "event.date cannot be null"
	MsgEventNull       = "event.event cannot be null"
	MsgInvalidDate     = "Validation isDate on date failed"
	MsgInvalidDuration = "Validation min on duration failed"
	MsgUnknownAssignee = "user_id does not reference an existing user"
	MsgInvalidWeek     = "week date must be MM-dd-yyyy"
	MsgEventNotFound   = "event not found"
)

type eventBody struct {
	Date     *string         `json:"date"`
	Event    *string         `json:"event"`
	Onsite   *bool           `json:"onsite"`
	Notes    *string         `json:"notes"`
	Duration *int64          `json:"duration"`
	UserID   json.RawMessage `json:"user_id"`
}

// assignee interprets user_id: absent leaves the assignment, null or a
// negative id clears it.
func (b eventBody) assignee() (present bool, id *int, err error) {
	raw := bytes.TrimSpace(b.UserID)
	if len(raw) == 0 {
		return false, nil, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return true, nil, nil
	}
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return true, nil, err
	}
	if value < 0 {
		return true, nil, nil
	}
	return true, &value, nil
}

func (s *Server) listWeek(c *gin.Context) {
	day, err := time.ParseInLocation(dateutil.LocalDateLayout, c.Param("date"), time.Local)
	if err != nil {
		response.Validation(c, http.StatusUnprocessableEntity, response.NameValidation,
			response.Detail(MsgInvalidWeek, "Validation error", "date", c.Param("date"), "FUNCTION"))
		return
	}
	from := dateutil.FirstDayOfWeek(day)
	to := from.AddDate(0, 0, 7)

	records, err := s.events.ListBetween(c.Request.Context(), from, to)
	if err != nil {
		s.storeError(c, err, MsgEventNotFound)
		return
	}
	members, err := s.users.List(c.Request.Context())
	if err != nil {
		s.storeError(c, err, MsgUserNotFound)
		return
	}
	byID := make(map[int]models.User, len(members))
	for _, member := range members {
		byID[member.ID] = member.Public()
	}

	events := make([]models.Event, 0, len(records))
	for _, record := range records {
		var assignee *models.User
		if record.UserID != nil {
			if user, ok := byID[*record.UserID]; ok {
				assignee = &user
			}
		}
		events = append(events, record.Public(assignee))
	}
	response.JSON(c, http.StatusOK, events)
}

func (s *Server) createEvent(c *gin.Context) {
	var body eventBody
	if err := bindOptional(c, &body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed event body"))
		return
	}
	if body.Date == nil {
		notNull(c, MsgDateNull, "date")
		return
	}
	if body.Event == nil {
		notNull(c, MsgEventNull, "event")
		return
	}

	record := &models.EventRecord{}
	if !s.applyEvent(c, record, body) {
		return
	}
	if err := s.events.Create(c.Request.Context(), record); err != nil {
		s.storeError(c, err, MsgEventNotFound)
		return
	}
	response.Created(c, record.Public(nil))
}

func (s *Server) updateEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, MsgEventNotFound))
		return
	}
	var body eventBody
	if err := bindOptional(c, &body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed event body"))
		return
	}

	record, err := s.events.FindByID(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err, MsgEventNotFound)
		return
	}
	if !s.applyEvent(c, record, body) {
		return
	}
	if err := s.events.Update(c.Request.Context(), record); err != nil {
		s.storeError(c, err, MsgEventNotFound)
		return
	}
	response.JSON(c, http.StatusOK, record.Public(nil))
}

func (s *Server) deleteEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, MsgEventNotFound))
		return
	}
	if err := s.events.Delete(c.Request.Context(), id); err != nil {
		s.storeError(c, err, MsgEventNotFound)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "event deleted"})
}

// applyEvent copies the provided fields of body onto record, answering the
// request itself when a field is rejected.
func (s *Server) applyEvent(c *gin.Context, record *models.EventRecord, body eventBody) bool {
	if body.Date != nil {
		date, err := dateutil.ParseWireDate(*body.Date)
		if err != nil {
			response.Validation(c, http.StatusUnprocessableEntity, response.NameValidation,
				response.Detail(MsgInvalidDate, "Validation error", "date", *body.Date, "FUNCTION"))
			return false
		}
		record.Date = date
	}
	if body.Duration != nil {
		if *body.Duration < 0 {
			response.Validation(c, http.StatusUnprocessableEntity, response.NameValidation,
				response.Detail(MsgInvalidDuration, "Validation error", "duration", *body.Duration, "FUNCTION"))
			return false
		}
		record.Duration = *body.Duration
	}

	present, userID, err := body.assignee()
	if err != nil {
		response.Validation(c, http.StatusUnprocessableEntity, response.NameValidation,
			response.Detail(MsgUnknownAssignee, "Validation error", "user_id", string(body.UserID), "FUNCTION"))
		return false
	}
	if present && userID != nil {
		if _, err := s.users.FindByID(c.Request.Context(), *userID); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Error("assignee lookup", zap.Error(err))
				response.Error(c, err)
				return false
			}
			response.Validation(c, http.StatusUnprocessableEntity, response.NameDatabase,
				response.Detail(MsgUnknownAssignee, "foreign key violation", "user_id", *userID, "DB"))
			return false
		}
	}
	if present {
		record.UserID = userID
	}

	if body.Event != nil {
		record.Title = *body.Event
	}
	if body.Onsite != nil {
		record.Onsite = *body.Onsite
	}
	if body.Notes != nil {
		record.Notes = *body.Notes
	}
	return true
}
