package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	"github.com/noah-isme/attendance-report-api/internal/middleware"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
	"github.com/noah-isme/attendance-report-api/pkg/export"
	"github.com/noah-isme/attendance-report-api/pkg/response"
)

type reportService interface {
	TermReport(ctx context.Context, query dto.TermReportQuery) ([]dto.TermAttendanceItem, error)
	CourseReport(ctx context.Context, query dto.CourseReportQuery) ([]dto.CourseRequirementItem, error)
	GroupReport(ctx context.Context, query dto.GroupReportQuery) ([]dto.GroupAttendanceItem, error)
}

// ReportHandler exposes the attendance reports over HTTP.
type ReportHandler struct {
	service reportService
	csv     export.Renderer
	pdf     export.Renderer
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService, csv, pdf export.Renderer) *ReportHandler {
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ReportHandler{service: service, csv: csv, pdf: pdf}
}

// Visits godoc
// @Summary Lowest attendance on lectures matching a term
// @Tags Reports
// @Produce json,text/csv,application/pdf
// @Param term query string true "Free-text term matched against lecture material"
// @Param start_date query string true "Period start (YYYY-MM-DD)"
// @Param end_date query string true "Period end (YYYY-MM-DD)"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope{data=[]dto.TermAttendanceItem}
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reports/visits [get]
func (h *ReportHandler) Visits(c *gin.Context) {
	var query dto.TermReportQuery
	format, ok := h.bind(c, &query)
	if !ok {
		return
	}
	items, err := h.service.TermReport(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, format, "visits", items, termDataset(items, query.Term))
}

// CourseRequirements godoc
// @Summary Lecture requirements and auditorium suitability for a course
// @Tags Reports
// @Produce json,text/csv,application/pdf
// @Param course_name query string true "Course name fragment (case-insensitive)"
// @Param semester query int true "Semester 1-8; odd is Sep-Dec, even is Jan-Jun"
// @Param year query int true "Calendar year 2020-2030"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope{data=[]dto.CourseRequirementItem}
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reports/course-requirements [get]
func (h *ReportHandler) CourseRequirements(c *gin.Context) {
	var query dto.CourseReportQuery
	format, ok := h.bind(c, &query)
	if !ok {
		return
	}
	items, err := h.service.CourseReport(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, format, "course-requirements", items, courseDataset(items, query.CourseName))
}

// Group godoc
// @Summary Attended hours of a group on courses with requirement lectures
// @Tags Reports
// @Produce json,text/csv,application/pdf
// @Param group_name query string true "Exact group name"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope{data=[]dto.GroupAttendanceItem}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reports/group [get]
func (h *ReportHandler) Group(c *gin.Context) {
	var query dto.GroupReportQuery
	format, ok := h.bind(c, &query)
	if !ok {
		return
	}
	items, err := h.service.GroupReport(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, format, "group", items, groupDataset(items, query.GroupName))
}

// bind parses query parameters and the export format. It writes the 400 itself.
func (h *ReportHandler) bind(c *gin.Context, query interface{}) (export.Format, bool) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return "", false
	}
	if err := c.ShouldBindQuery(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return "", false
	}
	format, err := export.ParseFormat(c.DefaultQuery("format", dto.DefaultExportFormat))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be json, csv or pdf"))
		return "", false
	}
	return format, true
}

func (h *ReportHandler) respond(c *gin.Context, format export.Format, slug string, items interface{}, dataset export.Dataset) {
	var renderer export.Renderer
	switch format {
	case export.FormatCSV:
		renderer = h.csv
	case export.FormatPDF:
		renderer = h.pdf
	default:
		meta := middleware.ExtractMeta(c)
		meta["rows"] = len(dataset.Rows)
		response.JSON(c, http.StatusOK, items, meta)
		return
	}

	body, err := renderer.Render(dataset)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report"))
		return
	}
	response.Attachment(c, format.Filename(slug), format.ContentType(), body)
}
