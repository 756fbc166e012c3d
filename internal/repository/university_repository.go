package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/attendance-report-api/internal/models"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

// StorePostgres names the relational store in errors and metrics.
const StorePostgres = "postgres"

const sqlTimestampLayout = "2006-01-02 15:04:05"

// UniversityReader is a request-scoped read session over the relational store.
// Close must be called on every exit path; it rolls the read-only transaction back.
type UniversityReader interface {
	LecturesByCourse(ctx context.Context, courseName string, window models.DateWindow) ([]models.CourseLecture, error)
	LectureAttendance(ctx context.Context, studentIDs, lectureIDs []int64, window models.DateWindow) ([]models.LectureAttendance, error)
	GroupByName(ctx context.Context, name string) (*models.GroupInfo, error)
	RequirementLectures(ctx context.Context) ([]models.RequirementLecture, error)
	AttendedVisitCounts(ctx context.Context, pairs []models.StudentSchedule) (map[models.StudentSchedule]int, error)
	Close() error
}

// UniversityRepository exposes the relational queries used by the report pipelines.
type UniversityRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewUniversityRepository constructs the repository. timeout bounds every statement.
func NewUniversityRepository(db *sqlx.DB, timeout time.Duration) *UniversityRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UniversityRepository{db: db, timeout: timeout}
}

// BeginRead acquires a pooled connection inside a read-only transaction.
// Waiting for a free connection is bounded by the store timeout.
func (r *UniversityRepository) BeginRead(ctx context.Context) (UniversityReader, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.db.Connx(acquireCtx)
	if err != nil {
		return nil, classifyPostgres(fmt.Errorf("acquire connection: %w", err))
	}
	tx, err := conn.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		_ = conn.Close()
		return nil, classifyPostgres(fmt.Errorf("begin read transaction: %w", err))
	}
	return &universityTx{conn: conn, tx: tx, timeout: r.timeout}, nil
}

// AdmissionDate loads a student's date of admission straight from the pool. A missing student yields nil.
func (r *UniversityRepository) AdmissionDate(ctx context.Context, studentID int64) (*time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var admitted sql.NullTime
	err := r.db.GetContext(ctx, &admitted, "SELECT date_of_admission FROM students WHERE id = $1", studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyPostgres(fmt.Errorf("query date_of_admission: %w", err))
	}
	if !admitted.Valid {
		return nil, nil
	}
	return &admitted.Time, nil
}

// Ping checks the pool for readiness probes.
func (r *UniversityRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return classifyPostgres(err)
	}
	return nil
}

type universityTx struct {
	conn    *sqlx.Conn
	tx      *sqlx.Tx
	timeout time.Duration
}

func (u *universityTx) LecturesByCourse(ctx context.Context, courseName string, window models.DateWindow) ([]models.CourseLecture, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	const query = `
SELECT
	c.id AS course_id,
	c.name AS course_name,
	l.id AS lecture_id,
	l.name AS lecture_topic,
	l.text_requirements AS tech_requirements,
	s.auditorium,
	s.capacity AS current_capacity
FROM courses c
JOIN lectures l ON l.id_course = c.id
JOIN schedule s ON s.id_lect = l.id
WHERE c.name ILIKE $1
	AND EXISTS (
		SELECT 1 FROM visits v
		WHERE v.id_schedule = s.id
			AND v.visitTime BETWEEN $2 AND $3
	)
ORDER BY l.id, s.id`

	var lectures []models.CourseLecture
	if err := u.tx.SelectContext(ctx, &lectures, query, containsPattern(courseName), formatTimestamp(window.From()), formatTimestamp(window.Until())); err != nil {
		return nil, classifyPostgres(fmt.Errorf("query lectures by course: %w", err))
	}
	return lectures, nil
}

func (u *universityTx) LectureAttendance(ctx context.Context, studentIDs, lectureIDs []int64, window models.DateWindow) ([]models.LectureAttendance, error) {
	if len(studentIDs) == 0 || len(lectureIDs) == 0 {
		return nil, fmt.Errorf("lecture attendance requires non-empty student and lecture filters")
	}
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	const query = `
SELECT
	s.id AS student_id,
	s.fio AS full_name,
	g.name AS group_name,
	k.name AS department_name,
	c.name AS course_name,
	l.id AS lecture_id,
	l.name AS lecture_name,
	COUNT(v.id) AS total_visits,
	COUNT(v.id) FILTER (WHERE v.status IN ('presence', 'late')) AS attended_visits
FROM students s
LEFT JOIN groups g ON s.id_group = g.id
LEFT JOIN kafedras k ON g.id_kafedra = k.id
JOIN visits v ON v.id_student = s.id
JOIN schedule sch ON v.id_schedule = sch.id
JOIN lectures l ON sch.id_lect = l.id
JOIN courses c ON l.id_course = c.id
WHERE s.id = ANY($1)
	AND l.id = ANY($2)
	AND v.visitTime BETWEEN $3 AND $4
GROUP BY s.id, s.fio, g.name, k.name, c.name, l.id, l.name`

	var rows []models.LectureAttendance
	if err := u.tx.SelectContext(ctx, &rows, query, pq.Array(studentIDs), pq.Array(lectureIDs), formatTimestamp(window.From()), formatTimestamp(window.Until())); err != nil {
		return nil, classifyPostgres(fmt.Errorf("query lecture attendance: %w", err))
	}
	return rows, nil
}

func (u *universityTx) GroupByName(ctx context.Context, name string) (*models.GroupInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	const query = `
SELECT g.id, g.name, k.name AS department_name
FROM groups g
JOIN kafedras k ON g.id_kafedra = k.id
WHERE g.name = $1`

	var group models.GroupInfo
	if err := u.tx.GetContext(ctx, &group, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, classifyPostgres(fmt.Errorf("query group %s: %w", name, err))
	}
	return &group, nil
}

func (u *universityTx) RequirementLectures(ctx context.Context) ([]models.RequirementLecture, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	const query = `
SELECT c.id AS course_id, c.name AS course_name, c.planned_hours, l.id AS lecture_id
FROM courses c
JOIN lectures l ON l.id_course = c.id
WHERE l.requirements = true
ORDER BY c.id, l.id`

	var lectures []models.RequirementLecture
	if err := u.tx.SelectContext(ctx, &lectures, query); err != nil {
		return nil, classifyPostgres(fmt.Errorf("query requirement lectures: %w", err))
	}
	return lectures, nil
}

func (u *universityTx) AttendedVisitCounts(ctx context.Context, pairs []models.StudentSchedule) (map[models.StudentSchedule]int, error) {
	counts := make(map[models.StudentSchedule]int, len(pairs))
	if len(pairs) == 0 {
		return counts, nil
	}
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	students := make([]int64, len(pairs))
	schedules := make([]int64, len(pairs))
	for i, pair := range pairs {
		students[i] = pair.StudentID
		schedules[i] = pair.ScheduleID
	}

	const query = `
SELECT v.id_student, v.id_schedule, COUNT(*) AS attended_hours
FROM visits v
JOIN unnest($1::bigint[], $2::bigint[]) AS p(id_student, id_schedule)
	ON p.id_student = v.id_student AND p.id_schedule = v.id_schedule
WHERE v.status IN ('presence', 'late')
GROUP BY v.id_student, v.id_schedule`

	type row struct {
		StudentID     int64 `db:"id_student"`
		ScheduleID    int64 `db:"id_schedule"`
		AttendedHours int   `db:"attended_hours"`
	}

	var rows []row
	if err := u.tx.SelectContext(ctx, &rows, query, pq.Array(students), pq.Array(schedules)); err != nil {
		return nil, classifyPostgres(fmt.Errorf("query attended visit counts: %w", err))
	}
	for _, r := range rows {
		counts[models.StudentSchedule{StudentID: r.StudentID, ScheduleID: r.ScheduleID}] = r.AttendedHours
	}
	return counts, nil
}

// Close rolls the transaction back and hands the connection back to the pool.
func (u *universityTx) Close() error {
	rollbackErr := u.tx.Rollback()
	if errors.Is(rollbackErr, sql.ErrTxDone) {
		rollbackErr = nil
	}
	closeErr := u.conn.Close()
	if errors.Is(closeErr, sql.ErrConnDone) {
		closeErr = nil
	}
	return errors.Join(rollbackErr, closeErr)
}

// classifyPostgres separates transport and auth failures from query failures.
func classifyPostgres(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "28", "53", "57":
			return appErrors.Unavailable(StorePostgres, err)
		}
		return appErrors.QueryFailed(StorePostgres, err)
	}
	return appErrors.Classify(StorePostgres, err)
}

func formatTimestamp(t time.Time) string {
	return t.Format(sqlTimestampLayout)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(value)) + "%"
}
