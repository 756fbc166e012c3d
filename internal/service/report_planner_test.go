package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

func TestSemesterWindow(t *testing.T) {
	odd := SemesterWindow(1, 2025)
	assert.Equal(t, "2025-09-01", odd.StartDate())
	assert.Equal(t, "2025-12-31", odd.EndDate())
	assert.Equal(t, "2025-12-31 23:59:59", odd.Until().Format("2006-01-02 15:04:05"))

	even := SemesterWindow(2, 2025)
	assert.Equal(t, "2025-01-01", even.StartDate())
	assert.Equal(t, "2025-06-30", even.EndDate())
}

func TestPlanCourse(t *testing.T) {
	planner := NewReportPlanner(nil, 0, 0)

	plan, err := planner.Plan(Criterion{Kind: ReportKindCourse, Course: dto.CourseReportQuery{CourseName: " Базы данных ", Semester: 3, Year: 2024}})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageRelationalLectures, StageGraphStudentCounts}, plan.Stages)
	assert.Equal(t, "Базы данных", plan.CourseName)
	assert.Equal(t, "2024-09-01", plan.Window.StartDate())

	for name, query := range map[string]dto.CourseReportQuery{
		"semester too high": {CourseName: "x", Semester: 9, Year: 2025},
		"semester missing":  {CourseName: "x", Year: 2025},
		"year too low":      {CourseName: "x", Semester: 1, Year: 2019},
		"year too high":     {CourseName: "x", Semester: 1, Year: 2031},
		"course missing":    {CourseName: "  ", Semester: 1, Year: 2025},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := planner.Plan(Criterion{Kind: ReportKindCourse, Course: query})
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
}

func TestPlanTerm(t *testing.T) {
	planner := NewReportPlanner(nil, 5, 200)

	plan, err := planner.Plan(Criterion{Kind: ReportKindTerm, Term: dto.TermReportQuery{Term: "нейросети", StartDate: "2024-09-01", EndDate: "2024-09-01"}})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageSearchLectures, StageGraphStudents, StageRelationalAttendance, StageCacheFacts}, plan.Stages)
	assert.Equal(t, 5, plan.TopK)
	assert.Equal(t, 200, plan.SearchLimit)
	assert.Equal(t, "2024-09-01", plan.Window.EndDate())

	invalid := []dto.TermReportQuery{
		{Term: "", StartDate: "2024-09-01", EndDate: "2024-09-30"},
		{Term: "x", StartDate: "01.09.2024", EndDate: "2024-09-30"},
		{Term: "x", StartDate: "2024-09-30", EndDate: "2024-09-01"},
		{Term: "x", StartDate: "2024-02-30", EndDate: "2024-03-01"},
	}
	for _, query := range invalid {
		_, err := planner.Plan(Criterion{Kind: ReportKindTerm, Term: query})
		assert.ErrorIs(t, err, appErrors.ErrValidation, "%+v", query)
	}
}

func TestPlanGroup(t *testing.T) {
	planner := NewReportPlanner(nil, 0, 0)

	plan, err := planner.Plan(Criterion{Kind: ReportKindGroup, Group: dto.GroupReportQuery{GroupName: "АБВГ-01-23"}})
	require.NoError(t, err)
	assert.Equal(t, ReportKindGroup, plan.Kind)
	assert.Len(t, plan.Stages, 5)

	_, err = planner.Plan(Criterion{Kind: ReportKindGroup})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = planner.Plan(Criterion{Kind: "bogus"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPlanStagesAreCopies(t *testing.T) {
	planner := NewReportPlanner(nil, 0, 0)
	plan, err := planner.Plan(Criterion{Kind: ReportKindGroup, Group: dto.GroupReportQuery{GroupName: "g"}})
	require.NoError(t, err)
	plan.Stages[0] = "mutated"

	again, err := planner.Plan(Criterion{Kind: ReportKindGroup, Group: dto.GroupReportQuery{GroupName: "g"}})
	require.NoError(t, err)
	assert.Equal(t, StageRelationalGroup, again.Stages[0])
}
