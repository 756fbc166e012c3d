package repository

import (
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/attendance-report-api/internal/models"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

func TestEdgeFromRecord(t *testing.T) {
	record := &neo4j.Record{
		Keys:   []string{"student_id", "lecture_id", "schedule_id"},
		Values: []interface{}{int64(11), int64(100), int64(3)},
	}
	edge, ok := edgeFromRecord(record)
	assert.True(t, ok)
	assert.Equal(t, models.AttendanceEdge{StudentID: 11, LectureID: 100, ScheduleID: 3}, edge)

	partial := &neo4j.Record{
		Keys:   []string{"student_id", "lecture_id", "schedule_id"},
		Values: []interface{}{int64(11), int64(100), nil},
	}
	_, ok = edgeFromRecord(partial)
	assert.False(t, ok)
}

func TestInt64FromRecord(t *testing.T) {
	record := &neo4j.Record{
		Keys:   []string{"a", "b", "c", "d"},
		Values: []interface{}{int64(1), 2.0, "3", nil},
	}
	v, ok := int64FromRecord(record, "a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)

	v, ok = int64FromRecord(record, "b")
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)

	_, ok = int64FromRecord(record, "c")
	assert.False(t, ok)
	_, ok = int64FromRecord(record, "d")
	assert.False(t, ok)
	_, ok = int64FromRecord(record, "missing")
	assert.False(t, ok)
}

func TestClassifyNeo4j(t *testing.T) {
	assert.Nil(t, classifyNeo4j(nil))

	auth := &neo4j.Neo4jError{Code: "Neo.ClientError.Security.Unauthorized", Msg: "bad credentials"}
	assert.ErrorIs(t, classifyNeo4j(auth), appErrors.ErrUpstreamUnavailable)

	syntax := &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "invalid input"}
	err := classifyNeo4j(syntax)
	assert.ErrorIs(t, err, appErrors.ErrUpstreamQuery)
	assert.Contains(t, err.Error(), "neo4j query failed")

	assert.ErrorIs(t, classifyNeo4j(&neo4j.ConnectivityError{Inner: errors.New("connection refused")}), appErrors.ErrUpstreamUnavailable)
}
