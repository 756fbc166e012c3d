package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
	"github.com/noah-isme/attendance-report-api/pkg/export"
)

type fakeReportSrv struct {
	termItems   []dto.TermAttendanceItem
	courseItems []dto.CourseRequirementItem
	groupItems  []dto.GroupAttendanceItem
	err         error
	calls       int
	lastCourse  dto.CourseReportQuery
	lastTerm    dto.TermReportQuery
}

func (f *fakeReportSrv) TermReport(_ context.Context, query dto.TermReportQuery) ([]dto.TermAttendanceItem, error) {
	f.calls++
	f.lastTerm = query
	return f.termItems, f.err
}

func (f *fakeReportSrv) CourseReport(_ context.Context, query dto.CourseReportQuery) ([]dto.CourseRequirementItem, error) {
	f.calls++
	f.lastCourse = query
	return f.courseItems, f.err
}

func (f *fakeReportSrv) GroupReport(context.Context, dto.GroupReportQuery) ([]dto.GroupAttendanceItem, error) {
	f.calls++
	return f.groupItems, f.err
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) {
	return nil, errors.New("font missing")
}

func performReport(handler gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	handler(c)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestReportHandlerCourseRejectsNonNumericSemester(t *testing.T) {
	srv := &fakeReportSrv{}
	h := NewReportHandler(srv, nil, nil)

	rec := performReport(h.CourseRequirements, "/reports/course-requirements?course_name=x&semester=first&year=2025")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.calls)
}

func TestReportHandlerRejectsUnknownFormat(t *testing.T) {
	srv := &fakeReportSrv{}
	h := NewReportHandler(srv, nil, nil)

	rec := performReport(h.Group, "/reports/group?group_name=A&format=xlsx")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.calls)
}

func TestReportHandlerCoursePassesQuery(t *testing.T) {
	srv := &fakeReportSrv{courseItems: []dto.CourseRequirementItem{{CourseID: 1, LectureID: 10, TechRequirements: dto.NoTechRequirements}}}
	h := NewReportHandler(srv, nil, nil)

	rec := performReport(h.CourseRequirements, "/reports/course-requirements?course_name=%D0%91%D0%94&semester=1&year=2025")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.CourseReportQuery{CourseName: "БД", Semester: 1, Year: 2025}, srv.lastCourse)
	body := decodeEnvelope(t, rec)
	assert.Contains(t, string(body["data"]), `"tech_requirements":"Нет требований"`)
	assert.Contains(t, string(body["meta"]), `"rows":1`)
}

func TestReportHandlerEmptyReportIsArray(t *testing.T) {
	srv := &fakeReportSrv{termItems: []dto.TermAttendanceItem{}}
	h := NewReportHandler(srv, nil, nil)

	rec := performReport(h.Visits, "/reports/visits?term=x&start_date=2024-09-01&end_date=2024-09-30")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", string(decodeEnvelope(t, rec)["data"]))
}

func TestReportHandlerNullPercentageSerialised(t *testing.T) {
	srv := &fakeReportSrv{termItems: []dto.TermAttendanceItem{{StudentID: 1, FullName: dto.Unknown}}}
	h := NewReportHandler(srv, nil, nil)

	rec := performReport(h.Visits, "/reports/visits?term=x&start_date=2024-09-01&end_date=2024-09-30")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"attendance_percentage":null`)
	assert.Equal(t, "x", srv.lastTerm.Term)
}

func TestReportHandlerMapsErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{appErrors.Clone(appErrors.ErrValidation, "semester must be 1-8"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{appErrors.Unavailable("neo4j", errors.New("refused")), http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{appErrors.QueryFailed("postgres", errors.New("syntax")), http.StatusInternalServerError, "UPSTREAM_QUERY_ERROR"},
		{appErrors.Clone(appErrors.ErrNotFound, "group X not found"), http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		srv := &fakeReportSrv{err: tc.err}
		h := NewReportHandler(srv, nil, nil)

		rec := performReport(h.Group, "/reports/group?group_name=X")

		assert.Equal(t, tc.status, rec.Code)
		assert.Contains(t, string(decodeEnvelope(t, rec)["error"]), tc.code)
	}
}

func TestReportHandlerCSVExport(t *testing.T) {
	srv := &fakeReportSrv{groupItems: []dto.GroupAttendanceItem{
		{GroupName: "АБВГ-01-23", StudentID: 11, StudentName: "Сидоров", CourseID: 1, CourseName: "C1", PlannedHours: 72, AttendedHours: 3, Department: "ИИ", DateOfAdmission: "2023-09-01"},
	}}
	h := NewReportHandler(srv, export.NewCSVExporter(false), nil)

	rec := performReport(h.Group, "/reports/group?group_name=%D0%90%D0%91%D0%92%D0%93-01-23&format=csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="group.csv"`)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "АБВГ-01-23,11,Сидоров,1,C1,72,3,ИИ,2023-09-01", lines[1])
}

func TestReportHandlerPDFExport(t *testing.T) {
	srv := &fakeReportSrv{courseItems: []dto.CourseRequirementItem{{CourseID: 1, CourseName: "Базы данных", Auditorium: "А-101", IsSuitable: true}}}
	h := NewReportHandler(srv, nil, nil)

	rec := performReport(h.CourseRequirements, "/reports/course-requirements?course_name=x&semester=1&year=2025&format=pdf")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestReportHandlerRenderFailure(t *testing.T) {
	srv := &fakeReportSrv{groupItems: []dto.GroupAttendanceItem{}}
	h := NewReportHandler(srv, nil, failingRenderer{})

	rec := performReport(h.Group, "/reports/group?group_name=X&format=pdf")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
