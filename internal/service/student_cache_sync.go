package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	"github.com/noah-isme/attendance-report-api/internal/repository"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
	"github.com/noah-isme/attendance-report-api/pkg/jobs"
)

// Change-event operations.
const (
	StudentChangeUpsert = "upsert"
	StudentChangeDelete = "delete"
)

// StudentChangeJobType tags queued change events.
const StudentChangeJobType = "student_change"

type studentCacheWriter interface {
	HashSet(ctx context.Context, key string, fields map[string]string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) (int64, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// StudentCacheSync mirrors students table changes into the fact cache.
type StudentCacheSync struct {
	cache   studentCacheWriter
	queue   jobDispatcher
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStudentCacheSync constructs the sync service. Without a queue events are applied inline.
func NewStudentCacheSync(cache studentCacheWriter, metrics *MetricsService, logger *zap.Logger) *StudentCacheSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentCacheSync{cache: cache, metrics: metrics, logger: logger}
}

// AttachQueue routes submitted events through queue. The queue must call Handle.
func (s *StudentCacheSync) AttachQueue(queue jobDispatcher) {
	s.queue = queue
}

// Submit validates an event and queues it for application.
func (s *StudentCacheSync) Submit(ctx context.Context, event dto.StudentChangeEvent) (*dto.StudentChangeAccepted, error) {
	if event.Key.ID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "key.id must be a positive student id")
	}
	accepted := &dto.StudentChangeAccepted{
		JobID:     uuid.NewString(),
		StudentID: event.Key.ID,
		Operation: operationOf(event),
	}

	if s.queue == nil {
		if err := s.Apply(ctx, event); err != nil {
			return nil, err
		}
		return accepted, nil
	}
	if err := s.queue.Enqueue(jobs.Job{ID: accepted.JobID, Type: StudentChangeJobType, Payload: event}); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrQueueStopped) {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "student change queue unavailable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue student change")
	}
	return accepted, nil
}

// Handle is the queue handler for student change jobs.
func (s *StudentCacheSync) Handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(dto.StudentChangeEvent)
	if !ok {
		s.logger.Error("unexpected student change payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return s.Apply(ctx, event)
}

// Apply writes the row to student:{id} or removes it, and always drops the cached admission date.
func (s *StudentCacheSync) Apply(ctx context.Context, event dto.StudentChangeEvent) error {
	id := event.Key.ID
	start := time.Now()

	var err error
	switch operationOf(event) {
	case StudentChangeDelete:
		err = s.evict(ctx, id)
	default:
		fields := make(map[string]string, len(event.After))
		for name, value := range event.After {
			fields[name] = repository.StringifyField(value)
		}
		if err = s.cache.HashSet(ctx, StudentKey(id), fields); err == nil {
			_, err = s.cache.Delete(ctx, AdmissionKey(id))
		}
		if err == nil {
			s.logger.Info("student cached", zap.Int64("student_id", id), zap.Int("fields", len(fields)))
		}
	}

	s.metrics.ObserveStoreCall(repository.StoreRedis, "student_change", time.Since(start), err)
	if err != nil {
		return appErrors.Classify(repository.StoreRedis, err)
	}
	return nil
}

// evict drops student:{id} when present. The admission date goes either way.
func (s *StudentCacheSync) evict(ctx context.Context, id int64) error {
	cached, err := s.cache.Exists(ctx, StudentKey(id))
	if err != nil {
		return err
	}
	keys := []string{AdmissionKey(id)}
	if cached {
		keys = []string{StudentKey(id), AdmissionKey(id)}
	} else {
		s.logger.Info("student not cached", zap.Int64("student_id", id))
	}
	removed, err := s.cache.Delete(ctx, keys...)
	if err != nil {
		return err
	}
	if cached {
		s.logger.Info("student removed from cache", zap.Int64("student_id", id), zap.Int64("keys_removed", removed))
	}
	return nil
}

func operationOf(event dto.StudentChangeEvent) string {
	if event.After == nil {
		return StudentChangeDelete
	}
	return StudentChangeUpsert
}
