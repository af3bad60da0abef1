package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

const weekCachePrefix = "guardguys:week:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// WeekSnapshot is a cached week of events with the moment it was fetched.
type WeekSnapshot struct {
	Anchor    string         `json:"anchor"`
	FetchedAt string         `json:"fetchedAt"`
	Events    []models.Event `json:"events"`
}

// CacheService keeps fetched weeks around so repeated views within the
// freshness window skip the network.
type CacheService struct {
	repo       CacheRepository
	metrics    cacheMetrics
	staleAfter time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics cacheMetrics, staleAfter time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if staleAfter <= 0 {
		staleAfter = dateutil.StaleAfter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, staleAfter: staleAfter, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// StaleAfter is the age beyond which a cached week is refetched.
func (s *CacheService) StaleAfter() time.Duration {
	if s == nil {
		return dateutil.StaleAfter
	}
	return s.staleAfter
}

// WeekKey names the cache entry of the week containing anchor.
func WeekKey(anchor time.Time) string {
	return weekCachePrefix + dateutil.LocalDateString(dateutil.FirstDayOfWeek(anchor))
}

// FreshWeek returns the cached week for anchor when it is younger than the
// freshness window at now. A miss, a stale entry or one whose fetch time does
// not parse returns false.
func (s *CacheService) FreshWeek(ctx context.Context, anchor, now time.Time) (*WeekSnapshot, bool) {
	if !s.Enabled() {
		return nil, false
	}
	var snapshot WeekSnapshot
	hit, err := s.get(ctx, WeekKey(anchor), &snapshot)
	if err != nil || !hit {
		return nil, false
	}
	fetchedAt, err := dateutil.ParseWireDate(snapshot.FetchedAt)
	if err != nil {
		s.logger.Warn("cached week has malformed fetch time", zap.String("key", WeekKey(anchor)), zap.String("fetchedAt", snapshot.FetchedAt))
		return nil, false
	}
	if now.Sub(fetchedAt) > s.staleAfter {
		return nil, false
	}
	return &snapshot, true
}

// StoreWeek records events fetched for the week of anchor at fetchedAt.
func (s *CacheService) StoreWeek(ctx context.Context, anchor, fetchedAt time.Time, events []models.Event) error {
	if !s.Enabled() {
		return nil
	}
	snapshot := WeekSnapshot{
		Anchor:    dateutil.LocalDateString(anchor),
		FetchedAt: dateutil.WireDateString(fetchedAt),
		Events:    events,
	}
	// Entries outlive the freshness window so a failed refresh can still report
	// when the last good copy was taken.
	return s.set(ctx, WeekKey(anchor), snapshot, 10*s.staleAfter)
}

// InvalidateWeeks drops every cached week.
func (s *CacheService) InvalidateWeeks(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	pattern := weekCachePrefix + "*"
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return fmt.Errorf("invalidate weeks: %w", err)
	}
	return nil
}

func (s *CacheService) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.record(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.record(true, duration)
	return true, nil
}

func (s *CacheService) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

func (s *CacheService) record(hit bool, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, duration)
	}
}
