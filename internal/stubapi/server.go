// Package stubapi serves a local stand-in for the scheduling API with the same
// routes, bodies and validation errors.
package stubapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/guardguys-scheduler/internal/middleware"
	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/pkg/logger"
	"github.com/noah-isme/guardguys-scheduler/pkg/middleware/cors"
	"github.com/noah-isme/guardguys-scheduler/pkg/middleware/requestid"
	"github.com/noah-isme/guardguys-scheduler/pkg/response"
)

// MetricsProvider exposes request metrics, the Prometheus endpoint and a
// JSON summary.
type MetricsProvider interface {
	middleware.HTTPObserver
	Handler() http.Handler
	Snapshot() models.MetricsSnapshot
}

// Server handles the stub API routes.
type Server struct {
	users     UserStore
	events    EventStore
	validator *validator.Validate
	logger    *zap.Logger
	metrics   MetricsProvider
}

// NewServer constructs a Server.
func NewServer(users UserStore, events EventStore, validate *validator.Validate, logger *zap.Logger, metrics MetricsProvider) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &Server{users: users, events: events, validator: validate, logger: logger, metrics: metrics}
}

// Router builds the gin engine serving every route.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(s.logger))
	r.Use(cors.New(allowedOrigins))
	if s.metrics != nil {
		r.Use(middleware.Metrics(s.metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
		r.GET("/metrics/summary", func(c *gin.Context) {
			response.JSON(c, http.StatusOK, s.metrics.Snapshot())
		})
	}

	api := r.Group("/api")

	users := api.Group("/users")
	users.GET("/", s.listUsers)
	users.POST("/", s.createUser)
	users.POST("/login", s.login)
	users.PUT("/:id", s.updateUser)
	users.DELETE("/:id", s.deleteUser)

	events := api.Group("/events")
	events.GET("/weekof/:date", s.listWeek)
	events.POST("/", s.createEvent)
	events.PUT("/:id", s.updateEvent)
	events.DELETE("/:id", s.deleteEvent)

	return r
}

// SeedAdmin creates an administrator with the given credentials unless the
// email is already registered.
func (s *Server) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.UserRecord{Username: "admin", Email: email, PasswordHash: string(hash), IsAdmin: true}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("seeded admin account", zap.String("email", email), zap.Int("id", admin.ID))
	return nil
}

// bindOptional decodes a JSON body into dst. A missing body leaves dst untouched.
func bindOptional(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
