package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	"github.com/noah-isme/attendance-report-api/internal/models"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

// ReportKind identifies one of the fixed report pipelines.
type ReportKind string

const (
	ReportKindTerm   ReportKind = "term"
	ReportKindCourse ReportKind = "course"
	ReportKindGroup  ReportKind = "group"
)

// Stage is one store step of a pipeline, named "<store role>.<key set>".
type Stage string

const (
	StageSearchLectures            Stage = "search.lectures"
	StageGraphStudents             Stage = "graph.students"
	StageRelationalAttendance      Stage = "relational.attendance"
	StageCacheFacts                Stage = "cache.facts"
	StageRelationalLectures        Stage = "relational.lectures"
	StageGraphStudentCounts        Stage = "graph.student_counts"
	StageRelationalGroup           Stage = "relational.group"
	StageRelationalRequirements    Stage = "relational.requirement_lectures"
	StageGraphGroupEdges           Stage = "graph.group_edges"
	StageRelationalAttendanceFacts Stage = "relational.attendance_facts"
)

var pipelineStages = map[ReportKind][]Stage{
	ReportKindTerm:   {StageSearchLectures, StageGraphStudents, StageRelationalAttendance, StageCacheFacts},
	ReportKindCourse: {StageRelationalLectures, StageGraphStudentCounts},
	ReportKindGroup:  {StageRelationalGroup, StageRelationalRequirements, StageGraphGroupEdges, StageRelationalAttendanceFacts, StageCacheFacts},
}

// Criterion is a validated-on-plan report request. Only the query matching Kind is read.
type Criterion struct {
	Kind   ReportKind
	Term   dto.TermReportQuery
	Course dto.CourseReportQuery
	Group  dto.GroupReportQuery
}

// Plan is the ordered stage list and derived parameters of one report.
type Plan struct {
	Kind        ReportKind
	Stages      []Stage
	Window      models.DateWindow
	Term        string
	CourseName  string
	Semester    int
	Year        int
	GroupName   string
	TopK        int
	SearchLimit int
}

// ReportPlanner turns criteria into plans. It never touches a store.
type ReportPlanner struct {
	validator   *validator.Validate
	topK        int
	searchLimit int
}

// NewReportPlanner constructs a planner.
func NewReportPlanner(validate *validator.Validate, topK, searchLimit int) *ReportPlanner {
	if validate == nil {
		validate = validator.New()
	}
	if topK <= 0 {
		topK = 10
	}
	if searchLimit <= 0 {
		searchLimit = 1000
	}
	return &ReportPlanner{validator: validate, topK: topK, searchLimit: searchLimit}
}

// Plan validates the criterion and resolves its stages and date window.
func (p *ReportPlanner) Plan(c Criterion) (Plan, error) {
	switch c.Kind {
	case ReportKindTerm:
		return p.planTerm(c.Term)
	case ReportKindCourse:
		return p.planCourse(c.Course)
	case ReportKindGroup:
		return p.planGroup(c.Group)
	default:
		return Plan{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report kind %q", c.Kind))
	}
}

func (p *ReportPlanner) planTerm(q dto.TermReportQuery) (Plan, error) {
	q.Term = strings.TrimSpace(q.Term)
	if err := p.validator.Struct(q); err != nil {
		return Plan{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "term, start_date and end_date (YYYY-MM-DD) are required")
	}
	start, err := time.Parse(models.DateLayout, q.StartDate)
	if err != nil {
		return Plan{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_date")
	}
	end, err := time.Parse(models.DateLayout, q.EndDate)
	if err != nil {
		return Plan{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_date")
	}
	if end.Before(start) {
		return Plan{}, appErrors.Clone(appErrors.ErrValidation, "start_date must not be after end_date")
	}
	return Plan{
		Kind:        ReportKindTerm,
		Stages:      stagesFor(ReportKindTerm),
		Window:      models.NewDateWindow(start, end),
		Term:        q.Term,
		TopK:        p.topK,
		SearchLimit: p.searchLimit,
	}, nil
}

func (p *ReportPlanner) planCourse(q dto.CourseReportQuery) (Plan, error) {
	q.CourseName = strings.TrimSpace(q.CourseName)
	if err := p.validator.Struct(q); err != nil {
		return Plan{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course_name is required, semester must be 1-8 and year 2020-2030")
	}
	return Plan{
		Kind:       ReportKindCourse,
		Stages:     stagesFor(ReportKindCourse),
		Window:     SemesterWindow(q.Semester, q.Year),
		CourseName: q.CourseName,
		Semester:   q.Semester,
		Year:       q.Year,
	}, nil
}

func (p *ReportPlanner) planGroup(q dto.GroupReportQuery) (Plan, error) {
	q.GroupName = strings.TrimSpace(q.GroupName)
	if err := p.validator.Struct(q); err != nil {
		return Plan{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "group_name is required")
	}
	return Plan{
		Kind:      ReportKindGroup,
		Stages:    stagesFor(ReportKindGroup),
		GroupName: q.GroupName,
	}, nil
}

// SemesterWindow maps a semester number to its calendar window within year.
// Odd semesters run September through December, even ones January through June.
func SemesterWindow(semester, year int) models.DateWindow {
	if semester%2 == 1 {
		return models.NewDateWindow(
			time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		)
	}
	return models.NewDateWindow(
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC),
	)
}

func stagesFor(kind ReportKind) []Stage {
	stages := pipelineStages[kind]
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}
