package stubapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/internal/repository"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
	"github.com/noah-isme/guardguys-scheduler/pkg/response"
)

// Messages returned for rejected member payloads. The client maps the first
// two onto typed errors by exact match.
const (
	MsgPasswordNull = "user.password cannot be null"
	MsgInvalidEmail = "Validation isEmail on email failed"
	MsgUsernameNull = "user.username cannot be null"
	MsgEmailNull    = "user.email cannot be null"
	MsgEmailUnique  = "email must be unique"
	MsgUserNotFound = "user not found"
	MsgLoginFailed  = "Invalid email or password"
	MsgLoginSuccess = "Login successful"
)

type userBody struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"isAdmin"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) listUsers(c *gin.Context) {
	records, err := s.users.List(c.Request.Context())
	if err != nil {
		s.logger.Error("list users", zap.Error(err))
		response.Error(c, err)
		return
	}
	users := make([]models.User, 0, len(records))
	for _, record := range records {
		users = append(users, record.Public())
	}
	response.JSON(c, http.StatusOK, users)
}

func (s *Server) createUser(c *gin.Context) {
	var body userBody
	if err := bindOptional(c, &body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed user body"))
		return
	}

	switch {
	case body.Username == nil:
		notNull(c, MsgUsernameNull, "username")
		return
	case body.Email == nil:
		notNull(c, MsgEmailNull, "email")
		return
	case body.Password == nil || *body.Password == "":
		notNull(c, MsgPasswordNull, "password")
		return
	}
	if !s.validEmail(c, *body.Email) {
		return
	}
	if s.emailTaken(c, *body.Email, 0) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password"))
		return
	}
	record := &models.UserRecord{
		Username:     strings.TrimSpace(*body.Username),
		Email:        strings.TrimSpace(*body.Email),
		PasswordHash: string(hash),
	}
	if body.IsAdmin != nil {
		record.IsAdmin = *body.IsAdmin
	}
	if err := s.users.Create(c.Request.Context(), record); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			duplicateEmail(c, record.Email)
			return
		}
		s.logger.Error("create user", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Created(c, record.Public())
}

func (s *Server) updateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, MsgUserNotFound))
		return
	}
	var body userBody
	if err := bindOptional(c, &body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed user body"))
		return
	}

	record, err := s.users.FindByID(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err, MsgUserNotFound)
		return
	}

	if body.Username != nil {
		record.Username = strings.TrimSpace(*body.Username)
	}
	if body.Email != nil {
		if !s.validEmail(c, *body.Email) || s.emailTaken(c, *body.Email, id) {
			return
		}
		record.Email = strings.TrimSpace(*body.Email)
	}
	if body.Password != nil && *body.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password"))
			return
		}
		record.PasswordHash = string(hash)
	}
	if body.IsAdmin != nil {
		record.IsAdmin = *body.IsAdmin
	}

	if err := s.users.Update(c.Request.Context(), record); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			duplicateEmail(c, record.Email)
			return
		}
		s.storeError(c, err, MsgUserNotFound)
		return
	}
	response.JSON(c, http.StatusOK, record.Public())
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, MsgUserNotFound))
		return
	}
	if err := s.users.Delete(c.Request.Context(), id); err != nil {
		s.storeError(c, err, MsgUserNotFound)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "user deleted"})
}

// login answers 200 in both outcomes; a rejected login carries a null user.
func (s *Server) login(c *gin.Context) {
	var body loginBody
	if err := bindOptional(c, &body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed login body"))
		return
	}

	rejected := models.LoginResult{Message: MsgLoginFailed}
	record, err := s.users.FindByEmail(c.Request.Context(), strings.TrimSpace(body.Email))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("login lookup", zap.Error(err))
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, rejected)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(body.Password)); err != nil {
		response.JSON(c, http.StatusOK, rejected)
		return
	}

	user := record.Public()
	response.JSON(c, http.StatusOK, models.LoginResult{User: &user, Message: MsgLoginSuccess})
}

func (s *Server) validEmail(c *gin.Context, email string) bool {
	if err := s.validator.Var(strings.TrimSpace(email), "required,email"); err != nil {
		response.Validation(c, http.StatusUnprocessableEntity, response.NameValidation,
			response.Detail(MsgInvalidEmail, "Validation error", "email", email, "FUNCTION"))
		return false
	}
	return true
}

// emailTaken rejects the request early when another member than self owns
// email. The store enforces the same rule atomically on write.
func (s *Server) emailTaken(c *gin.Context, email string, self int) bool {
	existing, err := s.users.FindByEmail(c.Request.Context(), strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false
		}
		response.Error(c, err)
		return true
	}
	if existing.ID == self {
		return false
	}
	duplicateEmail(c, email)
	return true
}

func duplicateEmail(c *gin.Context, email string) {
	response.Validation(c, http.StatusUnprocessableEntity, response.NameUnique,
		response.Detail(MsgEmailUnique, "unique violation", "email", email, "DB"))
}

func notNull(c *gin.Context, message, path string) {
	response.Validation(c, http.StatusUnprocessableEntity, response.NameValidation,
		response.Detail(message, "notNull Violation", path, nil, "CORE"))
}

func (s *Server) storeError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, sql.ErrNoRows) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, notFound))
		return
	}
	s.logger.Error("store failure", zap.String("path", c.FullPath()), zap.Error(err))
	response.Error(c, err)
}
