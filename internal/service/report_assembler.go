package service

import (
	"database/sql"
	"strings"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	"github.com/noah-isme/attendance-report-api/internal/models"
)

// AssembleTermReport maps ranked rows onto response items.
func AssembleTermReport(rows []models.RankedAttendance, plan Plan, facts map[int64]models.StudentFacts) []dto.TermAttendanceItem {
	items := make([]dto.TermAttendanceItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.TermAttendanceItem{
			StudentID:            row.StudentID,
			FullName:             orUnknown(row.FullName),
			GroupName:            orUnknown(row.GroupName),
			Department:           orUnknown(row.DepartmentName),
			CourseName:           orUnknown(row.CourseName),
			LectureID:            row.LectureID,
			LectureName:          orUnknown(row.LectureName),
			AttendancePercentage: row.Percentage,
			PeriodStart:          plan.Window.StartDate(),
			PeriodEnd:            plan.Window.EndDate(),
			MatchingTerm:         plan.Term,
			DateOfAdmission:      admissionOf(facts, row.StudentID),
		})
	}
	return items
}

// AssembleCourseReport emits one item per scheduled slot with its graph student count.
func AssembleCourseReport(lectures []models.CourseLecture, counts map[int64]int, plan Plan) []dto.CourseRequirementItem {
	items := make([]dto.CourseRequirementItem, 0, len(lectures))
	for _, lecture := range lectures {
		count := counts[lecture.LectureID]
		items = append(items, dto.CourseRequirementItem{
			CourseID:         lecture.CourseID,
			CourseName:       lecture.CourseName,
			LectureID:        lecture.LectureID,
			LectureTopic:     lecture.LectureTopic,
			TechRequirements: techRequirements(lecture.TextRequirements),
			Auditorium:       orUnknown(lecture.Auditorium),
			StudentCount:     count,
			CurrentCapacity:  lecture.Capacity,
			IsSuitable:       IsSuitable(count, lecture.Capacity),
			Semester:         plan.Semester,
			Year:             plan.Year,
		})
	}
	return items
}

// AssembleGroupReport maps per-course hour totals onto response items.
func AssembleGroupReport(group models.GroupInfo, hours []models.CourseHours, courses map[int64]models.RequirementLecture, facts map[int64]models.StudentFacts) []dto.GroupAttendanceItem {
	items := make([]dto.GroupAttendanceItem, 0, len(hours))
	for _, h := range hours {
		course := courses[h.CourseID]
		fact, ok := facts[h.StudentID]
		name := dto.Unknown
		if ok && fact.FullName != "" {
			name = fact.FullName
		}
		items = append(items, dto.GroupAttendanceItem{
			GroupName:       group.Name,
			StudentID:       h.StudentID,
			StudentName:     name,
			CourseID:        h.CourseID,
			CourseName:      course.CourseName,
			PlannedHours:    course.PlannedHours,
			AttendedHours:   h.AttendedHours,
			Department:      group.Department,
			DateOfAdmission: admissionOf(facts, h.StudentID),
		})
	}
	return items
}

// IsSuitable reports whether an auditorium fits the attending students. No attendance is never suitable.
func IsSuitable(studentCount, capacity int) bool {
	return studentCount > 0 && studentCount <= capacity
}

func techRequirements(value sql.NullString) string {
	if !value.Valid || strings.TrimSpace(value.String) == "" {
		return dto.NoTechRequirements
	}
	return value.String
}

func orUnknown(value sql.NullString) string {
	if !value.Valid || value.String == "" {
		return dto.Unknown
	}
	return value.String
}

func admissionOf(facts map[int64]models.StudentFacts, studentID int64) string {
	if fact, ok := facts[studentID]; ok && fact.DateOfAdmission != "" {
		return fact.DateOfAdmission
	}
	return dto.Unknown
}
