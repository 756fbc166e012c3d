package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
	"github.com/noah-isme/attendance-report-api/pkg/jobs"
)

type recordingCacheWriter struct {
	hashes  map[string]map[string]string
	deleted []string
	err     error
}

func (r *recordingCacheWriter) HashSet(ctx context.Context, key string, fields map[string]string) error {
	if r.err != nil {
		return r.err
	}
	if r.hashes == nil {
		r.hashes = map[string]map[string]string{}
	}
	r.hashes[key] = fields
	return nil
}

func (r *recordingCacheWriter) Exists(ctx context.Context, key string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.hashes[key]
	return ok, nil
}

func (r *recordingCacheWriter) Delete(ctx context.Context, keys ...string) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.deleted = append(r.deleted, keys...)
	return int64(len(keys)), nil
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestStudentCacheSyncUpsert(t *testing.T) {
	cache := &recordingCacheWriter{}
	sync := NewStudentCacheSync(cache, nil, nil)

	accepted, err := sync.Submit(context.Background(), dto.StudentChangeEvent{
		Key:   dto.StudentChangeKey{ID: 9},
		After: map[string]interface{}{"id": float64(9), "fio": "Орлова Анна", "id_group": float64(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, StudentChangeUpsert, accepted.Operation)
	assert.NotEmpty(t, accepted.JobID)

	assert.Equal(t, map[string]string{"id": "9", "fio": "Орлова Анна", "id_group": "3"}, cache.hashes["student:9"])
	assert.Equal(t, []string{"student:9:date_of_admission"}, cache.deleted)
}

func TestStudentCacheSyncDelete(t *testing.T) {
	cache := &recordingCacheWriter{hashes: map[string]map[string]string{"student:4": {"id": "4"}}}
	sync := NewStudentCacheSync(cache, nil, nil)

	require.NoError(t, sync.Apply(context.Background(), dto.StudentChangeEvent{Key: dto.StudentChangeKey{ID: 4}}))
	assert.Equal(t, []string{"student:4", "student:4:date_of_admission"}, cache.deleted)
}

func TestStudentCacheSyncDeleteUncachedStudent(t *testing.T) {
	cache := &recordingCacheWriter{}
	sync := NewStudentCacheSync(cache, nil, nil)

	require.NoError(t, sync.Apply(context.Background(), dto.StudentChangeEvent{Key: dto.StudentChangeKey{ID: 5}}))
	assert.Equal(t, []string{"student:5:date_of_admission"}, cache.deleted)
}

func TestStudentCacheSyncQueuesWhenAttached(t *testing.T) {
	cache := &recordingCacheWriter{hashes: map[string]map[string]string{"student:2": {"id": "2"}}}
	queue := &recordingQueue{}
	sync := NewStudentCacheSync(cache, nil, nil)
	sync.AttachQueue(queue)

	event := dto.StudentChangeEvent{Key: dto.StudentChangeKey{ID: 2}}
	accepted, err := sync.Submit(context.Background(), event)
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, accepted.JobID, queue.jobs[0].ID)
	assert.Equal(t, StudentChangeJobType, queue.jobs[0].Type)
	assert.Empty(t, cache.deleted)

	require.NoError(t, sync.Handle(context.Background(), queue.jobs[0]))
	assert.Equal(t, []string{"student:2", "student:2:date_of_admission"}, cache.deleted)
}

func TestStudentCacheSyncRejectsMissingKey(t *testing.T) {
	sync := NewStudentCacheSync(&recordingCacheWriter{}, nil, nil)
	_, err := sync.Submit(context.Background(), dto.StudentChangeEvent{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentCacheSyncFailures(t *testing.T) {
	sync := NewStudentCacheSync(&recordingCacheWriter{err: appErrors.Unavailable("redis", errors.New("refused"))}, nil, nil)
	err := sync.Apply(context.Background(), dto.StudentChangeEvent{Key: dto.StudentChangeKey{ID: 1}})
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)

	queued := NewStudentCacheSync(&recordingCacheWriter{}, nil, nil)
	queued.AttachQueue(&recordingQueue{err: errors.New("queue stopped")})
	_, err = queued.Submit(context.Background(), dto.StudentChangeEvent{Key: dto.StudentChangeKey{ID: 1}})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestStudentCacheSyncFullQueueIsUnavailable(t *testing.T) {
	sync := NewStudentCacheSync(&recordingCacheWriter{}, nil, nil)
	sync.AttachQueue(&recordingQueue{err: jobs.ErrQueueFull})
	_, err := sync.Submit(context.Background(), dto.StudentChangeEvent{Key: dto.StudentChangeKey{ID: 1}})
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
}
