package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/models"
	"github.com/noah-isme/sma-analytics-api/internal/service"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
	"github.com/noah-isme/sma-analytics-api/pkg/response"
)

type analyticsService interface {
	ClassExam(ctx context.Context, query service.ClassExamQuery) (*dto.ClassExamReport, bool, error)
	ClassMonthly(ctx context.Context, classID int64, month string) (*dto.ClassMonthlyReport, bool, error)
	Student(ctx context.Context, query service.StudentQuery) (*dto.StudentReport, bool, error)
	AttendanceAlerts(ctx context.Context, classIDs []int64) ([]dto.AttendanceAlert, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

type scopeService interface {
	ClassIDs(ctx context.Context, claims *models.JWTClaims) ([]int64, error)
	AuthorizeClass(ctx context.Context, claims *models.JWTClaims, classID int64) error
	AuthorizeStudent(ctx context.Context, claims *models.JWTClaims, studentID int64) error
}

type exportService interface {
	ClassExam(ctx context.Context, query service.ClassExamQuery, format service.ExportFormat) (*service.ExportFile, error)
}

// AnalyticsHandler exposes class and student report endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
	scope     scopeService
	exports   exportService
	validate  *validator.Validate
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(analytics analyticsService, scope scopeService, exports exportService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, scope: scope, exports: exports, validate: newQueryValidator()}
}

// ClassExam godoc
// @Summary Class exam report
// @Description Per-student totals, pass/fail, distribution and top/bottom performers of one exam in one class
// @Tags Analytics
// @Produce json
// @Param classId query int true "Class ID"
// @Param examId query int true "Exam ID"
// @Param subjectId query int false "Restrict to one subject"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /analytics/class [get]
func (h *AnalyticsHandler) ClassExam(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "analytics service not configured"))
		return
	}
	var req dto.ClassExamRequest
	if err := bindQuery(c, h.validate, &req); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorizeClass(c, req.ClassID); err != nil {
		response.Error(c, err)
		return
	}

	report, cacheHit, err := h.analytics.ClassExam(c.Request.Context(), service.ClassExamQuery{
		ClassID:   req.ClassID,
		ExamID:    req.ExamID,
		SubjectID: req.SubjectID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if report == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "class, exam or subject not found"))
		return
	}

	response.JSON(c, http.StatusOK, report, reportMeta(c, cacheHit))
}

// Student godoc
// @Summary Student report
// @Description Attendance summary, exam timeline, subject strengths and gaps for one student
// @Tags Analytics
// @Produce json
// @Param studentId query int true "Student ID"
// @Param startDate query string false "Inclusive lower bound (YYYY-MM-DD)"
// @Param endDate query string false "Inclusive upper bound (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /analytics/student [get]
func (h *AnalyticsHandler) Student(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "analytics service not configured"))
		return
	}
	var req dto.StudentReportRequest
	if err := bindQuery(c, h.validate, &req); err != nil {
		response.Error(c, err)
		return
	}
	from, to := parseDate(req.StartDate), parseDate(req.EndDate)
	if from != nil && to != nil && to.Before(*from) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate"))
		return
	}
	if h.scope != nil {
		if err := h.scope.AuthorizeStudent(c.Request.Context(), claimsFromContext(c), req.StudentID); err != nil {
			response.Error(c, err)
			return
		}
	}

	report, cacheHit, err := h.analytics.Student(c.Request.Context(), service.StudentQuery{
		StudentID: req.StudentID,
		StartDate: from,
		EndDate:   to,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if report == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %d not found", req.StudentID)))
		return
	}

	response.JSON(c, http.StatusOK, report, reportMeta(c, cacheHit))
}

// ClassExport godoc
// @Summary Export class exam report
// @Description Download the class exam report as CSV or PDF
// @Tags Analytics
// @Produce text/csv
// @Produce application/pdf
// @Param classId query int true "Class ID"
// @Param examId query int true "Exam ID"
// @Param subjectId query int false "Restrict to one subject"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /analytics/class/export [get]
func (h *AnalyticsHandler) ClassExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled"))
		return
	}

	var req dto.ClassExamRequest
	if err := bindQuery(c, h.validate, &req); err != nil {
		response.Error(c, err)
		return
	}
	format, err := service.ParseExportFormat(req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorizeClass(c, req.ClassID); err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.exports.ClassExam(c.Request.Context(), service.ClassExamQuery{
		ClassID:   req.ClassID,
		ExamID:    req.ExamID,
		SubjectID: req.SubjectID,
	}, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// System godoc
// @Summary Analytics system metrics
// @Description Cache efficiency, request and query latency, report counters
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "analytics service not configured"))
		return
	}
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}

func (h *AnalyticsHandler) authorizeClass(c *gin.Context, classID int64) error {
	if h.scope == nil {
		return nil
	}
	return h.scope.AuthorizeClass(c.Request.Context(), claimsFromContext(c), classID)
}
