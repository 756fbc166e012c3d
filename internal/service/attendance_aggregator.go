package service

import (
	"sort"

	"github.com/noah-isme/attendance-report-api/internal/models"
)

// Percentage returns attended/total*100, or nil when nothing was recorded.
func Percentage(attended, total int) *float64 {
	if total <= 0 {
		return nil
	}
	value := float64(attended) * 100 / float64(total)
	return &value
}

// RankByPercentage orders rows ascending by percentage with nil percentages last and keeps the first k.
// Ties fall back to (student_id, lecture_id) so the order is deterministic.
func RankByPercentage(rows []models.LectureAttendance, k int) []models.RankedAttendance {
	ranked := make([]models.RankedAttendance, len(rows))
	for i, row := range rows {
		ranked[i] = models.RankedAttendance{
			LectureAttendance: row,
			Percentage:        Percentage(row.AttendedVisits, row.TotalVisits),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.Percentage == nil && b.Percentage != nil:
			return false
		case a.Percentage != nil && b.Percentage == nil:
			return true
		case a.Percentage != nil && b.Percentage != nil && *a.Percentage != *b.Percentage:
			return *a.Percentage < *b.Percentage
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.LectureID < b.LectureID
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// UniquePairs returns the distinct (student, schedule) pairs of edges ordered by student then schedule.
func UniquePairs(edges []models.AttendanceEdge) []models.StudentSchedule {
	seen := make(map[models.StudentSchedule]struct{}, len(edges))
	pairs := make([]models.StudentSchedule, 0, len(edges))
	for _, edge := range edges {
		pair := models.StudentSchedule{StudentID: edge.StudentID, ScheduleID: edge.ScheduleID}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].StudentID != pairs[j].StudentID {
			return pairs[i].StudentID < pairs[j].StudentID
		}
		return pairs[i].ScheduleID < pairs[j].ScheduleID
	})
	return pairs
}

// SumHoursByCourse totals attended hours per (student, course).
// Each (student, schedule) pair is counted once, a pair without a fact counts as zero
// and edges whose lecture has no course in lectureCourse are dropped.
func SumHoursByCourse(edges []models.AttendanceEdge, facts map[models.StudentSchedule]int, lectureCourse map[int64]int64) []models.CourseHours {
	type key struct {
		student int64
		course  int64
	}
	counted := make(map[models.StudentSchedule]struct{}, len(edges))
	totals := make(map[key]int)
	for _, edge := range edges {
		courseID, ok := lectureCourse[edge.LectureID]
		if !ok {
			continue
		}
		pair := models.StudentSchedule{StudentID: edge.StudentID, ScheduleID: edge.ScheduleID}
		k := key{student: edge.StudentID, course: courseID}
		if _, ok := totals[k]; !ok {
			totals[k] = 0
		}
		if _, dup := counted[pair]; dup {
			continue
		}
		counted[pair] = struct{}{}
		totals[k] += facts[pair]
	}

	hours := make([]models.CourseHours, 0, len(totals))
	for k, total := range totals {
		hours = append(hours, models.CourseHours{StudentID: k.student, CourseID: k.course, AttendedHours: total})
	}
	sort.Slice(hours, func(i, j int) bool {
		if hours[i].StudentID != hours[j].StudentID {
			return hours[i].StudentID < hours[j].StudentID
		}
		return hours[i].CourseID < hours[j].CourseID
	})
	return hours
}
