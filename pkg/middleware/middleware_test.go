package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/metrics"
	"github.com/wms-platform/warehouse-core/pkg/tenant"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	router := gin.New()
	cfg := DefaultConfig("warehouse-core-test", logging.NewNop(), metrics.New(metrics.DefaultConfig("warehouse_core_test")))
	cfg.EnableTracing = false
	Setup(router, cfg)
	router.Use(Tenant(nil))
	return router
}

func TestTenant(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantTenant string
	}{
		{name: "header", header: "acme", wantStatus: http.StatusOK, wantTenant: "acme"},
		{name: "default", header: "", wantStatus: http.StatusOK, wantTenant: tenant.DefaultTenantID},
		{name: "invalid", header: "acme corp!", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter()
			router.GET("/who", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"tenant": tenant.TenantID(c.Request.Context()), "fromGin": GetTenant(c).TenantID})
			})

			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tt.header != "" {
				req.Header.Set(tenant.HeaderTenantID, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				var body APIErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "VALIDATION_ERROR", body.Code)
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantTenant, body["tenant"])
			assert.Equal(t, tt.wantTenant, body["fromGin"])
		})
	}
}

func TestRequestAndCorrelationIDs(t *testing.T) {
	router := newRouter()
	router.GET("/ids", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ids", nil)
	req.Header.Set(HeaderCorrelationID, "corr-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "corr-1", w.Body.String())
	assert.Equal(t, "corr-1", w.Header().Get(HeaderCorrelationID))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestRecovery(t *testing.T) {
	router := newRouter()
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Equal(t, "/boom", body.Path)
}

func TestContentTypeAndNoRoute(t *testing.T) {
	router := newRouter()
	router.POST("/things", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ROUTE_NOT_FOUND")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type adjustBody struct {
	TenantID string `json:"tenantId" validate:"required,tenantid"`
	Reason   string `json:"reason" validate:"movementreason"`
	Priority string `json:"priority" validate:"omitempty,priority"`
	Delta    int64  `json:"delta" validate:"ne=0"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name   string
		body   adjustBody
		fields []string
	}{
		{name: "valid", body: adjustBody{TenantID: "acme", Reason: "cycle count", Priority: "high", Delta: -2}},
		{name: "blank reason", body: adjustBody{TenantID: "acme", Reason: "   ", Delta: 1}, fields: []string{"reason"}},
		{name: "control characters", body: adjustBody{TenantID: "acme", Reason: "bad\x07", Delta: 1}, fields: []string{"reason"}},
		{name: "everything wrong", body: adjustBody{TenantID: "a b", Reason: "ok", Priority: "asap"}, fields: []string{"tenantId", "priority", "delta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ValidateStruct(tt.body)
			if len(tt.fields) == 0 {
				assert.Nil(t, appErr)
				return
			}
			require.NotNil(t, appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
			for _, f := range tt.fields {
				assert.Contains(t, appErr.Details, f)
			}
			assert.Len(t, appErr.Details, len(tt.fields))
		})
	}
}
