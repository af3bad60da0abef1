package service

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/internal/request"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

// AuthService provides authentication use cases.
type AuthService struct {
	api       dispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(api dispatcher, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{api: api, validator: validate, logger: logger}
}

// Login authenticates a member. The returned session is not persisted.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	data, err := s.api.Execute(ctx, request.Login{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, err
	}

	var result models.LoginResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrJSONDecode.Code, appErrors.ErrJSONDecode.Status, appErrors.ErrJSONDecode.Message)
	}
	if result.User == nil {
		s.logger.Info("login rejected", zap.String("email", req.Email), zap.String("message", result.Message))
		message := result.Message
		if message == "" {
			message = appErrors.ErrInvalidCredentials.Message
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, message)
	}

	return &models.Session{
		UserID:   result.User.IDValue(),
		Username: result.User.Username,
		IsAdmin:  result.User.IsAdmin,
	}, nil
}
