package dto

// Report sentinels for values that could not be resolved.
const (
	Unknown             = "Unknown"
	NoTechRequirements  = "Нет требований"
	DefaultExportFormat = "json"
)

// TermReportQuery are the inputs of the free-text attendance report.
type TermReportQuery struct {
	Term      string `form:"term" validate:"required"`
	StartDate string `form:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date" validate:"required,datetime=2006-01-02"`
}

// CourseReportQuery are the inputs of the course requirements report.
type CourseReportQuery struct {
	CourseName string `form:"course_name" validate:"required"`
	Semester   int    `form:"semester" validate:"min=1,max=8"`
	Year       int    `form:"year" validate:"min=2020,max=2030"`
}

// GroupReportQuery are the inputs of the group attendance report.
type GroupReportQuery struct {
	GroupName string `form:"group_name" validate:"required"`
}

// TermAttendanceItem is one row of the free-text attendance report.
type TermAttendanceItem struct {
	StudentID            int64    `json:"student_id"`
	FullName             string   `json:"full_name"`
	GroupName            string   `json:"group_name"`
	Department           string   `json:"department"`
	CourseName           string   `json:"course_name"`
	LectureID            int64    `json:"lecture_id"`
	LectureName          string   `json:"lecture_name"`
	AttendancePercentage *float64 `json:"attendance_percentage"`
	PeriodStart          string   `json:"period_start"`
	PeriodEnd            string   `json:"period_end"`
	MatchingTerm         string   `json:"matching_term"`
	DateOfAdmission      string   `json:"date_of_admission"`
}

// CourseRequirementItem is one row of the course requirements report.
type CourseRequirementItem struct {
	CourseID         int64  `json:"course_id"`
	CourseName       string `json:"course_name"`
	LectureID        int64  `json:"lecture_id"`
	LectureTopic     string `json:"lecture_topic"`
	TechRequirements string `json:"tech_requirements"`
	Auditorium       string `json:"auditorium"`
	StudentCount     int    `json:"student_count"`
	CurrentCapacity  int    `json:"current_capacity"`
	IsSuitable       bool   `json:"is_suitable"`
	Semester         int    `json:"semester"`
	Year             int    `json:"year"`
}

// GroupAttendanceItem is one row of the group attendance report.
type GroupAttendanceItem struct {
	GroupName       string `json:"group_name"`
	StudentID       int64  `json:"student_id"`
	StudentName     string `json:"student_name"`
	CourseID        int64  `json:"course_id"`
	CourseName      string `json:"course_name"`
	PlannedHours    int    `json:"planned_hours"`
	AttendedHours   int    `json:"attended_hours"`
	Department      string `json:"department"`
	DateOfAdmission string `json:"date_of_admission"`
}

// StudentChangeEvent is a Debezium-style change record of the students table.
type StudentChangeEvent struct {
	Key   StudentChangeKey       `json:"key"`
	After map[string]interface{} `json:"after"`
}

// StudentChangeKey carries the primary key of the changed row.
type StudentChangeKey struct {
	ID int64 `json:"id"`
}

// StudentChangeAccepted acknowledges a queued change event.
type StudentChangeAccepted struct {
	JobID     string `json:"job_id"`
	StudentID int64  `json:"student_id"`
	Operation string `json:"operation"`
}
