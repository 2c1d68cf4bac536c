package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
	"github.com/noah-isme/sma-analytics-api/pkg/response"
)

// DashboardHandler serves the monthly class dashboard and attendance alerts.
type DashboardHandler struct {
	analytics analyticsService
	scope     scopeService
	validate  *validator.Validate
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(analytics analyticsService, scope scopeService) *DashboardHandler {
	return &DashboardHandler{analytics: analytics, scope: scope, validate: newQueryValidator()}
}

// ClassAnalytics godoc
// @Summary Monthly class dashboard
// @Description Attendance trend, latest exam averages, performance scores and risk levels for a class
// @Tags Dashboard
// @Produce json
// @Param classId query int true "Class ID"
// @Param month query string false "Month (YYYY-MM), defaults to the current month"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboard/class-analytics [get]
func (h *DashboardHandler) ClassAnalytics(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "dashboard service not configured"))
		return
	}
	var req dto.ClassMonthlyRequest
	if err := bindQuery(c, h.validate, &req); err != nil {
		response.Error(c, err)
		return
	}
	if h.scope != nil {
		if err := h.scope.AuthorizeClass(c.Request.Context(), claimsFromContext(c), req.ClassID); err != nil {
			response.Error(c, err)
			return
		}
	}

	report, cacheHit, err := h.analytics.ClassMonthly(c.Request.Context(), req.ClassID, req.Month)
	if err != nil {
		response.Error(c, err)
		return
	}
	if report == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "class not found"))
		return
	}

	response.JSON(c, http.StatusOK, report, reportMeta(c, cacheHit))
}

// Alerts godoc
// @Summary Low attendance alerts
// @Description Students in the caller's classes whose present rate is below the configured threshold
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard/alerts [get]
func (h *DashboardHandler) Alerts(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "dashboard service not configured"))
		return
	}

	var classIDs []int64
	if h.scope != nil {
		ids, err := h.scope.ClassIDs(c.Request.Context(), claimsFromContext(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		classIDs = ids
	}

	alerts, err := h.analytics.AttendanceAlerts(c.Request.Context(), classIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetMeta(c, "total", len(alerts))
	response.JSON(c, http.StatusOK, alerts, middleware.ResponseMeta(c))
}
