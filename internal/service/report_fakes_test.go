package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/attendance-report-api/internal/models"
	"github.com/noah-isme/attendance-report-api/internal/repository"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

type fakeReader struct {
	lectures         []models.CourseLecture
	attendance       []models.LectureAttendance
	group            *models.GroupInfo
	groupErr         error
	requirements     []models.RequirementLecture
	visitCounts      map[models.StudentSchedule]int
	lecturesErr      error
	attendanceErr    error
	lecturesCalls    int
	attendanceCalls  int
	groupCalls       int
	requirementCalls int
	visitCalls       int
	visitPairs       []models.StudentSchedule
	closed           int
}

func (f *fakeReader) LecturesByCourse(ctx context.Context, courseName string, window models.DateWindow) ([]models.CourseLecture, error) {
	f.lecturesCalls++
	return f.lectures, f.lecturesErr
}

func (f *fakeReader) LectureAttendance(ctx context.Context, studentIDs, lectureIDs []int64, window models.DateWindow) ([]models.LectureAttendance, error) {
	f.attendanceCalls++
	return f.attendance, f.attendanceErr
}

func (f *fakeReader) GroupByName(ctx context.Context, name string) (*models.GroupInfo, error) {
	f.groupCalls++
	return f.group, f.groupErr
}

func (f *fakeReader) RequirementLectures(ctx context.Context) ([]models.RequirementLecture, error) {
	f.requirementCalls++
	return f.requirements, nil
}

func (f *fakeReader) AttendedVisitCounts(ctx context.Context, pairs []models.StudentSchedule) (map[models.StudentSchedule]int, error) {
	f.visitCalls++
	f.visitPairs = pairs
	out := make(map[models.StudentSchedule]int, len(pairs))
	for _, pair := range pairs {
		if n, ok := f.visitCounts[pair]; ok {
			out[pair] = n
		}
	}
	return out, nil
}

func (f *fakeReader) Close() error {
	f.closed++
	return nil
}

type fakeRelational struct {
	reader *fakeReader
	err    error
	begins int
}

func (f *fakeRelational) BeginRead(ctx context.Context) (repository.UniversityReader, error) {
	f.begins++
	if f.err != nil {
		return nil, f.err
	}
	return f.reader, nil
}

type fakeGraphSession struct {
	students       []int64
	studentsErr    error
	counts         map[int64]int
	edges          []models.AttendanceEdge
	studentCalls   int
	countCalls     int
	edgeCalls      int
	countedWindow  models.DateWindow
	closed         int
	edgeLectureIDs []int64
}

func (f *fakeGraphSession) StudentsForLectures(ctx context.Context, lectureIDs []int64) ([]int64, error) {
	f.studentCalls++
	return f.students, f.studentsErr
}

func (f *fakeGraphSession) StudentCountsByLecture(ctx context.Context, lectureIDs []int64, window models.DateWindow) (map[int64]int, error) {
	f.countCalls++
	f.countedWindow = window
	return f.counts, nil
}

func (f *fakeGraphSession) GroupAttendanceEdges(ctx context.Context, groupID int64, lectureIDs []int64) ([]models.AttendanceEdge, error) {
	f.edgeCalls++
	f.edgeLectureIDs = lectureIDs
	return f.edges, nil
}

func (f *fakeGraphSession) Close(ctx context.Context) error {
	f.closed++
	return nil
}

type fakeGraph struct {
	session *fakeGraphSession
	opens   int
}

func (f *fakeGraph) OpenRead(ctx context.Context) (repository.AttendanceGraphReader, error) {
	f.opens++
	return f.session, nil
}

type fakeSearch struct {
	ids   []int64
	err   error
	calls int
	limit int
}

func (f *fakeSearch) LectureIDsForTerm(ctx context.Context, term string, limit int) ([]int64, error) {
	f.calls++
	f.limit = limit
	return f.ids, f.err
}

type fakeFactCache struct {
	mu       sync.Mutex
	strings  map[string]string
	hashes   map[string]map[string]string
	getErr   error
	setErr   error
	gets     int
	sets     int
	lastTTL  time.Duration
	hashGets int
}

func newFakeFactCache() *fakeFactCache {
	return &fakeFactCache{strings: map[string]string{}, hashes: map[string]map[string]string{}}
}

func (f *fakeFactCache) GetString(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.strings[key]
	if !ok {
		return "", appErrors.ErrCacheMiss
	}
	return value, nil
}

func (f *fakeFactCache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.lastTTL = ttl
	if f.setErr != nil {
		return f.setErr
	}
	f.strings[key] = value
	return nil
}

func (f *fakeFactCache) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashGets++
	fields, ok := f.hashes[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return fields, nil
}

type fakeAdmissions struct {
	mu    sync.Mutex
	dates map[int64]time.Time
	err   error
	calls int
}

func (f *fakeAdmissions) AdmissionDate(ctx context.Context, studentID int64) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	date, ok := f.dates[studentID]
	if !ok {
		return nil, nil
	}
	return &date, nil
}

func day(value string) time.Time {
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}
