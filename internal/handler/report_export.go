package handler

import (
	"strconv"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	"github.com/noah-isme/attendance-report-api/pkg/export"
)

var (
	termHeaders = []string{"student_id", "full_name", "group_name", "department", "course_name", "lecture_id", "lecture_name",
		"attendance_percentage", "period_start", "period_end", "matching_term", "date_of_admission"}
	courseHeaders = []string{"course_id", "course_name", "lecture_id", "lecture_topic", "tech_requirements", "auditorium",
		"student_count", "current_capacity", "is_suitable", "semester", "year"}
	groupHeaders = []string{"group_name", "student_id", "student_name", "course_id", "course_name", "planned_hours",
		"attended_hours", "department", "date_of_admission"}
)

func termDataset(items []dto.TermAttendanceItem, term string) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		percentage := ""
		if item.AttendancePercentage != nil {
			percentage = strconv.FormatFloat(*item.AttendancePercentage, 'f', 2, 64)
		}
		rows = append(rows, map[string]string{
			"student_id":            itoa(item.StudentID),
			"full_name":             item.FullName,
			"group_name":            item.GroupName,
			"department":            item.Department,
			"course_name":           item.CourseName,
			"lecture_id":            itoa(item.LectureID),
			"lecture_name":          item.LectureName,
			"attendance_percentage": percentage,
			"period_start":          item.PeriodStart,
			"period_end":            item.PeriodEnd,
			"matching_term":         item.MatchingTerm,
			"date_of_admission":     item.DateOfAdmission,
		})
	}
	return export.Dataset{Title: "Посещаемость: " + term, Headers: termHeaders, Rows: rows}
}

func courseDataset(items []dto.CourseRequirementItem, course string) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"course_id":         itoa(item.CourseID),
			"course_name":       item.CourseName,
			"lecture_id":        itoa(item.LectureID),
			"lecture_topic":     item.LectureTopic,
			"tech_requirements": item.TechRequirements,
			"auditorium":        item.Auditorium,
			"student_count":     strconv.Itoa(item.StudentCount),
			"current_capacity":  strconv.Itoa(item.CurrentCapacity),
			"is_suitable":       strconv.FormatBool(item.IsSuitable),
			"semester":          strconv.Itoa(item.Semester),
			"year":              strconv.Itoa(item.Year),
		})
	}
	return export.Dataset{Title: "Требования курса: " + course, Headers: courseHeaders, Rows: rows}
}

func groupDataset(items []dto.GroupAttendanceItem, group string) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"group_name":        item.GroupName,
			"student_id":        itoa(item.StudentID),
			"student_name":      item.StudentName,
			"course_id":         itoa(item.CourseID),
			"course_name":       item.CourseName,
			"planned_hours":     strconv.Itoa(item.PlannedHours),
			"attended_hours":    strconv.Itoa(item.AttendedHours),
			"department":        item.Department,
			"date_of_admission": item.DateOfAdmission,
		})
	}
	return export.Dataset{Title: "Группа " + group, Headers: groupHeaders, Rows: rows}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
