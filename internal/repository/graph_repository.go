package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/noah-isme/attendance-report-api/internal/models"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

// StoreNeo4j names the graph store in errors and metrics.
const StoreNeo4j = "neo4j"

const cypherDateTimeLayout = "2006-01-02T15:04:05"

// AttendanceGraphReader is a request-scoped read session over the attendance graph.
type AttendanceGraphReader interface {
	StudentsForLectures(ctx context.Context, lectureIDs []int64) ([]int64, error)
	StudentCountsByLecture(ctx context.Context, lectureIDs []int64, window models.DateWindow) (map[int64]int, error)
	GroupAttendanceEdges(ctx context.Context, groupID int64, lectureIDs []int64) ([]models.AttendanceEdge, error)
	Close(ctx context.Context) error
}

// GraphRepository opens read sessions against the Student-Group-Lecture graph.
type GraphRepository struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
}

// NewGraphRepository constructs the repository.
func NewGraphRepository(driver neo4j.DriverWithContext, database string, timeout time.Duration) *GraphRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GraphRepository{driver: driver, database: database, timeout: timeout}
}

// OpenRead starts a read session. The caller owns it and must Close it.
func (r *GraphRepository) OpenRead(ctx context.Context) (AttendanceGraphReader, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: r.database,
	})
	return &graphSession{session: session, timeout: r.timeout}, nil
}

// Ping verifies driver connectivity for readiness probes.
func (r *GraphRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.driver.VerifyConnectivity(ctx); err != nil {
		return classifyNeo4j(err)
	}
	return nil
}

type graphSession struct {
	session neo4j.SessionWithContext
	timeout time.Duration
}

func (g *graphSession) StudentsForLectures(ctx context.Context, lectureIDs []int64) ([]int64, error) {
	const query = `
MATCH (s:Student)-[:BELONGS_TO]->(g:Group)-[:ATTENDED]->(l:Lecture)
WHERE l.id IN $lecture_ids
RETURN DISTINCT s.id AS student_id`

	records, err := g.collect(ctx, query, map[string]interface{}{"lecture_ids": lectureIDs})
	if err != nil {
		return nil, fmt.Errorf("match students for lectures: %w", err)
	}

	ids := make([]int64, 0, len(records))
	for _, record := range records {
		if id, ok := int64FromRecord(record, "student_id"); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (g *graphSession) StudentCountsByLecture(ctx context.Context, lectureIDs []int64, window models.DateWindow) (map[int64]int, error) {
	const query = `
MATCH (g:Group)-[att:ATTENDED]->(l:Lecture)
WHERE l.id IN $lecture_ids
	AND datetime(att.visitTime) >= datetime($start_date)
	AND datetime(att.visitTime) <= datetime($end_date)
MATCH (s:Student)-[:BELONGS_TO]->(g)
RETURN l.id AS lecture_id, count(DISTINCT s) AS student_count`

	records, err := g.collect(ctx, query, map[string]interface{}{
		"lecture_ids": lectureIDs,
		"start_date":  window.From().Format(cypherDateTimeLayout),
		"end_date":    window.Until().Format(cypherDateTimeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("count students by lecture: %w", err)
	}

	counts := make(map[int64]int, len(records))
	for _, record := range records {
		lectureID, ok := int64FromRecord(record, "lecture_id")
		if !ok {
			continue
		}
		count, _ := int64FromRecord(record, "student_count")
		counts[lectureID] = int(count)
	}
	return counts, nil
}

func (g *graphSession) GroupAttendanceEdges(ctx context.Context, groupID int64, lectureIDs []int64) ([]models.AttendanceEdge, error) {
	const query = `
MATCH (s:Student)-[:BELONGS_TO]->(g:Group {id: $group_id})
MATCH (g)-[att:ATTENDED]->(l:Lecture)
WHERE l.id IN $lecture_ids
RETURN s.id AS student_id, l.id AS lecture_id, att.id_schedule AS schedule_id`

	records, err := g.collect(ctx, query, map[string]interface{}{
		"group_id":    groupID,
		"lecture_ids": lectureIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("match group attendance edges: %w", err)
	}

	edges := make([]models.AttendanceEdge, 0, len(records))
	for _, record := range records {
		edge, ok := edgeFromRecord(record)
		if !ok {
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func (g *graphSession) Close(ctx context.Context) error {
	return g.session.Close(ctx)
}

func (g *graphSession) collect(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.session.Run(ctx, query, params)
	if err != nil {
		return nil, classifyNeo4j(err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, classifyNeo4j(err)
	}
	return records, nil
}

func edgeFromRecord(record *neo4j.Record) (models.AttendanceEdge, bool) {
	studentID, ok := int64FromRecord(record, "student_id")
	if !ok {
		return models.AttendanceEdge{}, false
	}
	lectureID, ok := int64FromRecord(record, "lecture_id")
	if !ok {
		return models.AttendanceEdge{}, false
	}
	scheduleID, ok := int64FromRecord(record, "schedule_id")
	if !ok {
		return models.AttendanceEdge{}, false
	}
	return models.AttendanceEdge{StudentID: studentID, LectureID: lectureID, ScheduleID: scheduleID}, true
}

func int64FromRecord(record *neo4j.Record, key string) (int64, bool) {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// classifyNeo4j treats connectivity and security failures as an unavailable store.
func classifyNeo4j(err error) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) {
		return appErrors.Unavailable(StoreNeo4j, err)
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security.") {
		return appErrors.Unavailable(StoreNeo4j, err)
	}
	return appErrors.Classify(StoreNeo4j, err)
}
