package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
	"github.com/noah-isme/sma-analytics-api/pkg/response"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (s *stubValidator) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	s.token = tokenString
	return s.claims, s.err
}

type recordedRequest struct {
	method string
	path   string
	status int
}

type stubObserver struct {
	requests []recordedRequest
}

func (s *stubObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	s.requests = append(s.requests, recordedRequest{method: method, path: path, status: status})
}

func serve(router *gin.Engine, target, authorization string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func guardedRouter(validator TokenValidator, permission models.Permission) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/report", JWT(validator), RequirePermission(permission), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	router := guardedRouter(&stubValidator{}, models.PermissionDashboardRead)

	recorder := serve(router, "/report", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, recorder))

	recorder = serve(router, "/report", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = serve(router, "/report", "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestJWTPropagatesValidationFailure(t *testing.T) {
	validator := &stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}
	router := guardedRouter(validator, models.PermissionDashboardRead)

	recorder := serve(router, "/report", "Bearer expired-token")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "expired-token", validator.token)
}

func TestRequirePermissionAllowsGrantedRole(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: 1, Roles: []models.UserRole{models.RoleClassTeacher}}}
	router := guardedRouter(validator, models.PermissionProgressRead)

	recorder := serve(router, "/report", "bearer good-token")

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestRequirePermissionRejectsMissingGrant(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: 1, Roles: []models.UserRole{models.RoleTeacher}}}
	router := guardedRouter(validator, models.PermissionAdminRead)

	recorder := serve(router, "/report", "Bearer good-token")

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, recorder))
}

func TestRequirePermissionWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/report", RequirePermission(models.PermissionDashboardRead), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	recorder := serve(router, "/report", "")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{Roles: []models.UserRole{models.RoleTeacher}})
	})
	router.GET("/admin", RequireRoles(models.RoleAdminTeacher), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/teach", RequireRoles(models.RoleTeacher, models.RoleClassTeacher), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusForbidden, serve(router, "/admin", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, "/teach", "").Code)
}

func TestMetricsRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &stubObserver{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/classes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, "/classes/12", "")
	serve(router, "/nowhere", "")

	require.Len(t, observer.requests, 2)
	assert.Equal(t, recordedRequest{method: http.MethodGet, path: "/classes/:id", status: http.StatusOK}, observer.requests[0])
	assert.Equal(t, "unmatched", observer.requests[1].path)
	assert.Equal(t, http.StatusNotFound, observer.requests[1].status)
}

func TestResponseMetaCollectsValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/report", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "total", 3)
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})

	serve(router, "/report", "")

	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, 3, meta["total"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	SetCacheHit(c, false)
	meta := ResponseMeta(c)

	assert.Equal(t, map[string]interface{}{"cache_hit": false}, meta)
}
