package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/internal/request"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

// dispatcher executes intents against the scheduling API. *client.Client satisfies it.
type dispatcher interface {
	Execute(ctx context.Context, intent request.Intent) ([]byte, error)
}

const passwordRules = "required,min=4,startsnotwith=$"

// MemberService manages member accounts.
type MemberService struct {
	api       dispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMemberService creates an instance of MemberService.
func NewMemberService(api dispatcher, validate *validator.Validate, logger *zap.Logger) *MemberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MemberService{api: api, validator: validate, logger: logger}
}

// List returns every member known to the API.
func (s *MemberService) List(ctx context.Context) ([]models.User, error) {
	data, err := s.api.Execute(ctx, request.GetMembers{})
	if err != nil {
		return nil, err
	}

	var members []models.User
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrJSONDecode.Code, appErrors.ErrJSONDecode.Status, appErrors.ErrJSONDecode.Message)
	}
	for i := range members {
		members[i].LocalID = uuid.New()
	}
	return members, nil
}

// Create adds a member. A password is mandatory for new accounts.
func (s *MemberService) Create(ctx context.Context, payload models.UserPayload) error {
	if err := s.validate(payload); err != nil {
		return err
	}
	password := ""
	if payload.Password != nil {
		password = *payload.Password
	}
	if err := s.validator.Var(password, passwordRules); err != nil {
		return appErrors.WithStatus(appErrors.ErrPasswordValidation, 0, err)
	}

	if _, err := s.api.Execute(ctx, request.AddMember{Data: payload}); err != nil {
		s.logger.Warn("failed to add member", zap.Error(err))
		return err
	}
	return nil
}

// Update changes the provided fields of a member.
func (s *MemberService) Update(ctx context.Context, id int, payload models.UserPayload) error {
	if err := s.validate(payload); err != nil {
		return err
	}
	if _, err := s.api.Execute(ctx, request.EditMember{ID: id, Data: payload}); err != nil {
		s.logger.Warn("failed to update member", zap.Int("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes a member.
func (s *MemberService) Delete(ctx context.Context, id int) error {
	if _, err := s.api.Execute(ctx, request.DeleteMember{ID: id}); err != nil {
		s.logger.Warn("failed to delete member", zap.Int("id", id), zap.Error(err))
		return err
	}
	return nil
}

// VerifyStatus reports whether a session is still valid: the member must still
// exist and keep the same admin flag.
func (s *MemberService) VerifyStatus(ctx context.Context, session models.Session) (bool, error) {
	members, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, member := range members {
		if member.ID != nil && *member.ID == session.UserID && member.IsAdmin == session.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemberService) validate(payload models.UserPayload) error {
	err := s.validator.Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}
	switch verrs[0].Field() {
	case "Username":
		return appErrors.WithStatus(appErrors.ErrUsernameValidation, appErrors.ErrUsernameValidation.Status, err)
	case "Email":
		return appErrors.WithStatus(appErrors.ErrEmailValidation, 0, err)
	case "Password":
		return appErrors.WithStatus(appErrors.ErrPasswordValidation, 0, err)
	default:
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}
}
