package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
)

// QueryObserver records the duration of store queries.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// ErrDuplicateEmail reports that another member already owns the email address.
var ErrDuplicateEmail = errors.New("email already registered")

const uniqueViolation pq.ErrorCode = "23505"

const userColumns = `id, username, email, password_hash, is_admin, created_at, updated_at`

// UserRepository provides database access for member accounts.
type UserRepository struct {
	db      *sqlx.DB
	metrics QueryObserver
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB, metrics QueryObserver) *UserRepository {
	return &UserRepository{db: db, metrics: metrics}
}

// List returns every member ordered by id.
func (r *UserRepository) List(ctx context.Context) ([]models.UserRecord, error) {
	defer observe(r.metrics, "users.list", time.Now())
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	var users []models.UserRecord
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// FindByID returns a member by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int) (*models.UserRecord, error) {
	defer observe(r.metrics, "users.find_by_id", time.Now())
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.UserRecord
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByEmail returns a member by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	defer observe(r.metrics, "users.find_by_email", time.Now())
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.UserRecord
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// Create inserts a member and stores the generated id on user.
func (r *UserRepository) Create(ctx context.Context, user *models.UserRecord) error {
	defer observe(r.metrics, "users.create", time.Now())
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (username, email, password_hash, is_admin, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt, user.UpdatedAt).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a member.
func (r *UserRepository) Update(ctx context.Context, user *models.UserRecord) error {
	defer observe(r.metrics, "users.update", time.Now())
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET username = :username, email = :email, password_hash = :password_hash, is_admin = :is_admin, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	return expectAffected(res, "update user")
}

// Delete removes a member. Assigned events are released by the foreign key.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	defer observe(r.metrics, "users.delete", time.Now())
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res, "delete user")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func observe(metrics QueryObserver, label string, start time.Time) {
	if metrics != nil {
		metrics.ObserveDBQuery(label, time.Since(start))
	}
}
