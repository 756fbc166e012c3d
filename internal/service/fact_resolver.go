package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	"github.com/noah-isme/attendance-report-api/internal/models"
	"github.com/noah-isme/attendance-report-api/internal/repository"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

// FactCache abstracts the Redis primitives used for student facts.
type FactCache interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
}

// AdmissionSource is the relational fallback for admission dates.
type AdmissionSource interface {
	AdmissionDate(ctx context.Context, studentID int64) (*time.Time, error)
}

// StudentKey is the Redis hash holding the denormalised student row.
func StudentKey(studentID int64) string {
	return fmt.Sprintf("student:%d", studentID)
}

// AdmissionKey is the Redis string caching a student's admission date.
func AdmissionKey(studentID int64) string {
	return fmt.Sprintf("student:%d:date_of_admission", studentID)
}

const studentNameField = "fio"

// FactResolver resolves slow-changing student facts through the cache with a relational fallback.
type FactResolver struct {
	cache       FactCache
	admissions  AdmissionSource
	metrics     *MetricsService
	logger      *zap.Logger
	ttl         time.Duration
	concurrency int
}

// NewFactResolver constructs a resolver.
func NewFactResolver(cache FactCache, admissions AdmissionSource, metrics *MetricsService, logger *zap.Logger, ttl time.Duration, concurrency int) *FactResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &FactResolver{cache: cache, admissions: admissions, metrics: metrics, logger: logger, ttl: ttl, concurrency: concurrency}
}

// ResolveAdmissionDate returns the cached admission date, loading and caching it on a miss.
// A student without a relational row resolves to "Unknown", which is not cached.
func (r *FactResolver) ResolveAdmissionDate(ctx context.Context, studentID int64) (string, error) {
	key := AdmissionKey(studentID)

	start := time.Now()
	cached, err := r.cache.GetString(ctx, key)
	duration := time.Since(start)
	r.metrics.ObserveStoreCall(repository.StoreRedis, "get_admission_date", duration, ignoreMiss(err))
	switch {
	case err == nil:
		r.metrics.RecordCacheOperation(true, duration)
		return cached, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		r.metrics.RecordCacheOperation(false, duration)
	default:
		return "", appErrors.Classify(repository.StoreRedis, err)
	}

	start = time.Now()
	admitted, err := r.admissions.AdmissionDate(ctx, studentID)
	r.metrics.ObserveStoreCall(repository.StorePostgres, "admission_date", time.Since(start), err)
	if err != nil {
		return "", appErrors.Classify(repository.StorePostgres, err)
	}
	if admitted == nil {
		return dto.Unknown, nil
	}

	value := admitted.Format(models.DateLayout)
	start = time.Now()
	if err := r.cache.SetString(ctx, key, value, r.ttl); err != nil {
		r.logger.Warn("cache admission date failed", zap.Int64("student_id", studentID), zap.Error(err))
	}
	r.metrics.ObserveCacheWrite(time.Since(start))
	return value, nil
}

// ResolveStudentName reads the full name from the change-feed record of the student.
func (r *FactResolver) ResolveStudentName(ctx context.Context, studentID int64) (string, error) {
	start := time.Now()
	fields, err := r.cache.HashGetAll(ctx, StudentKey(studentID))
	duration := time.Since(start)
	r.metrics.ObserveStoreCall(repository.StoreRedis, "get_student", duration, ignoreMiss(err))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			r.metrics.RecordCacheOperation(false, duration)
			return dto.Unknown, nil
		}
		return "", appErrors.Classify(repository.StoreRedis, err)
	}
	r.metrics.RecordCacheOperation(true, duration)
	name := strings.TrimSpace(fields[studentNameField])
	if name == "" {
		return dto.Unknown, nil
	}
	return name, nil
}

// ResolveMany resolves facts for every id with bounded concurrency. The first failure cancels the rest.
func (r *FactResolver) ResolveMany(ctx context.Context, studentIDs []int64, withNames bool) (map[int64]models.StudentFacts, error) {
	facts := make(map[int64]models.StudentFacts, len(studentIDs))
	if len(studentIDs) == 0 {
		return facts, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	seen := make(map[int64]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		studentID := id
		g.Go(func() error {
			admitted, err := r.ResolveAdmissionDate(gctx, studentID)
			if err != nil {
				return err
			}
			fact := models.StudentFacts{DateOfAdmission: admitted}
			if withNames {
				name, err := r.ResolveStudentName(gctx, studentID)
				if err != nil {
					return err
				}
				fact.FullName = name
			}
			mu.Lock()
			facts[studentID] = fact
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return facts, nil
}

func ignoreMiss(err error) error {
	if errors.Is(err, appErrors.ErrCacheMiss) {
		return nil
	}
	return err
}
