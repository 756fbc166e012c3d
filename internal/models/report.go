package models

import (
	"database/sql"
	"fmt"
	"time"
)

// DateLayout is the wire format of report dates.
const DateLayout = "2006-01-02"

// DateWindow is an inclusive calendar-day range. Bounds are truncated to days.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow builds a window from two calendar days.
func NewDateWindow(start, end time.Time) DateWindow {
	return DateWindow{Start: truncateDay(start), End: truncateDay(end)}
}

// From returns the first instant included in the window.
func (w DateWindow) From() time.Time {
	return w.Start
}

// Until returns the last second included in the window (23:59:59 of the end day).
func (w DateWindow) Until() time.Time {
	return w.End.Add(24*time.Hour - time.Second)
}

// StartDate renders the first day as YYYY-MM-DD.
func (w DateWindow) StartDate() string {
	return w.Start.Format(DateLayout)
}

// EndDate renders the last day as YYYY-MM-DD.
func (w DateWindow) EndDate() string {
	return w.End.Format(DateLayout)
}

func (w DateWindow) String() string {
	return fmt.Sprintf("[%s, %s]", w.StartDate(), w.EndDate())
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CourseLecture is a lecture of a matched course scheduled in a slot with visits inside the window.
type CourseLecture struct {
	CourseID         int64          `db:"course_id"`
	CourseName       string         `db:"course_name"`
	LectureID        int64          `db:"lecture_id"`
	LectureTopic     string         `db:"lecture_topic"`
	TextRequirements sql.NullString `db:"tech_requirements"`
	Auditorium       sql.NullString `db:"auditorium"`
	Capacity         int            `db:"current_capacity"`
}

// LectureAttendance holds raw visit totals of one student on one lecture.
type LectureAttendance struct {
	StudentID      int64          `db:"student_id"`
	FullName       sql.NullString `db:"full_name"`
	GroupName      sql.NullString `db:"group_name"`
	DepartmentName sql.NullString `db:"department_name"`
	CourseName     sql.NullString `db:"course_name"`
	LectureID      int64          `db:"lecture_id"`
	LectureName    sql.NullString `db:"lecture_name"`
	TotalVisits    int            `db:"total_visits"`
	AttendedVisits int            `db:"attended_visits"`
}

// RankedAttendance is a LectureAttendance with its derived percentage; nil means no visits.
type RankedAttendance struct {
	LectureAttendance
	Percentage *float64
}

// GroupInfo is a study group with its owning department.
type GroupInfo struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	Department string `db:"department_name"`
}

// RequirementLecture is a lecture flagged requirements=true with its course.
type RequirementLecture struct {
	CourseID     int64  `db:"course_id"`
	CourseName   string `db:"course_name"`
	PlannedHours int    `db:"planned_hours"`
	LectureID    int64  `db:"lecture_id"`
}

// AttendanceEdge is one (student, lecture, schedule) triple returned by the graph traversal.
type AttendanceEdge struct {
	StudentID  int64
	LectureID  int64
	ScheduleID int64
}

// StudentSchedule keys an attendance fact.
type StudentSchedule struct {
	StudentID  int64
	ScheduleID int64
}

// CourseHours is the attended-hour total of one student on one course.
type CourseHours struct {
	StudentID     int64
	CourseID      int64
	AttendedHours int
}

// StudentFacts are slow-changing per-student values resolved through the cache.
type StudentFacts struct {
	FullName        string
	DateOfAdmission string
}
