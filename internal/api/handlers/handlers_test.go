package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/internal/application"
	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/internal/infrastructure/memory"
	"github.com/wms-platform/warehouse-core/pkg/idempotency"
	"github.com/wms-platform/warehouse-core/pkg/metrics"
	"github.com/wms-platform/warehouse-core/pkg/middleware"
	"github.com/wms-platform/warehouse-core/pkg/tenant"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore("")
	repos := store.Repositories()

	ctx := context.Background()
	require.NoError(t, repos.Products.SaveProduct(ctx, &domain.Product{ID: "sku-1", TenantID: "acme", SKU: "SKU-1", Name: "Widget"}))
	for i, code := range []string{"A-01", "B-01", "C-01"} {
		require.NoError(t, repos.Locations.SaveLocation(ctx, &domain.Location{
			ID: code, TenantID: "acme", WarehouseID: "wh-1", Code: code, Type: domain.LocationTypeStorage, PickSequence: i + 1, Active: true,
		}))
	}

	m := metrics.New(metrics.DefaultConfig("warehouse-core"))
	services := application.NewServices(repos, nil, application.NewExecutor(nil, m, nil), nil)
	router := NewRouter(RouterConfig{
		ServiceName: "warehouse-core",
		Services:    services,
		Metrics:     m,
		Tenant:      middleware.DefaultTenantConfig(),
		Idempotency: idempotency.DefaultConfig(),
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, s.request(method, path, body, headers))
	return w
}

func (s *testServer) request(method, path string, body any, headers map[string]string) *http.Request {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(tenant.HeaderTenantID, "acme")
	req.Header.Set(tenant.HeaderUserID, "clerk-1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Data
}

func (s *testServer) receive(quantity int64) application.InventoryRecordDTO {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/inventory/receipts", map[string]any{
		"warehouseId": "wh-1",
		"locationId":  "A-01",
		"productId":   "sku-1",
		"quantity":    quantity,
	}, nil)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[application.InventoryRecordDTO](s.t, w)
}

func TestInventoryHandler_ReceiveAndReserve(t *testing.T) {
	server := newTestServer(t)
	rec := server.receive(10)
	assert.Equal(t, int64(10), rec.OnHand)
	assert.Equal(t, "A-01", rec.LocationID)

	w := server.do(http.MethodPost, "/api/v1/inventory/"+rec.ID+"/reserve", map[string]any{"quantity": 4}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reservation := decode[application.ReservationDTO](t, w)
	assert.Equal(t, int64(6), reservation.Record.Available)

	w = server.do(http.MethodGet, "/api/v1/inventory/"+rec.ID+"/movements", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	movements := decode[[]application.MovementDTO](t, w)
	require.Len(t, movements, 2)
	assert.Equal(t, "clerk-1", movements[1].Actor)

	w = server.do(http.MethodGet, "/api/v1/inventory/summary/sku-1?warehouseId=wh-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[application.StockSummaryDTO](t, w)
	assert.Equal(t, int64(4), summary.Reserved)
}

func TestInventoryHandler_Errors(t *testing.T) {
	server := newTestServer(t)
	rec := server.receive(5)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{"over reserve", http.MethodPost, "/api/v1/inventory/" + rec.ID + "/reserve", map[string]any{"quantity": 6}, nil, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{"unknown record", http.MethodGet, "/api/v1/inventory/missing", nil, nil, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"adjust without reason", http.MethodPost, "/api/v1/inventory/" + rec.ID + "/adjust", map[string]any{"delta": -1}, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad status", http.MethodPost, "/api/v1/inventory/" + rec.ID + "/status", map[string]any{"status": "lost"}, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed json", http.MethodPost, "/api/v1/inventory/" + rec.ID + "/reserve", "not-an-object", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"other tenant", http.MethodGet, "/api/v1/inventory/" + rec.ID, nil, map[string]string{tenant.HeaderTenantID: "globex"}, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"invalid idempotency key", http.MethodPost, "/api/v1/inventory/" + rec.ID + "/reserve", map[string]any{"quantity": 1}, map[string]string{idempotency.HeaderIdempotencyKey: "bad key!"}, http.StatusBadRequest, "IDEMPOTENCY_KEY_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := server.do(tt.method, tt.path, tt.body, tt.headers)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestInventoryHandler_IdempotencyKeyReplays(t *testing.T) {
	server := newTestServer(t)
	rec := server.receive(10)
	headers := map[string]string{idempotency.HeaderIdempotencyKey: "reserve-0001"}

	for i := 0; i < 2; i++ {
		w := server.do(http.MethodPost, "/api/v1/inventory/"+rec.ID+"/reserve", map[string]any{"quantity": 3}, headers)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := server.do(http.MethodGet, "/api/v1/inventory/"+rec.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), decode[application.InventoryRecordDTO](t, w).Reserved)
}

func TestOutboundHandler_Flow(t *testing.T) {
	server := newTestServer(t)
	server.receive(10)

	w := server.do(http.MethodPost, "/api/v1/outbound-orders", map[string]any{
		"warehouseId": "wh-1",
		"lines":       []map[string]any{{"productId": "sku-1", "quantity": 4}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[domain.OutboundOrder](t, w)
	assert.Equal(t, domain.PriorityNormal, order.Priority)

	w = server.do(http.MethodPost, "/api/v1/outbound-orders/"+order.ID+"/allocate", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	allocation := decode[application.AllocationResultDTO](t, w)
	assert.Zero(t, allocation.Shortfall)

	w = server.do(http.MethodPost, "/api/v1/outbound-orders/"+order.ID+"/release", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	release := decode[application.ReleaseDTO](t, w)
	require.Len(t, release.Tasks, 1)
	taskID := release.Tasks[0].ID

	w = server.do(http.MethodPost, "/api/v1/pick-tasks/"+taskID+"/assign", map[string]any{"userId": "picker-7"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = server.do(http.MethodGet, "/api/v1/pick-tasks/mine/picker-7", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.PickTask](t, w), 1)

	w = server.do(http.MethodPost, "/api/v1/pick-tasks/"+taskID+"/start", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = server.do(http.MethodPost, "/api/v1/pick-tasks/"+taskID+"/complete", map[string]any{"pickedQuantity": 4}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = server.do(http.MethodPost, "/api/v1/outbound-orders/"+order.ID+"/ship", map[string]any{"carrier": "UPS"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "ship requires a packed order")

	w = server.do(http.MethodPost, "/api/v1/outbound-orders/"+order.ID+"/pack", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = server.do(http.MethodPost, "/api/v1/outbound-orders/"+order.ID+"/ship", map[string]any{"carrier": "UPS", "trackingNumber": "1Z999"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	shipped := decode[domain.OutboundOrder](t, w)
	assert.Equal(t, domain.OutboundStatusShipped, shipped.Status)

	w = server.do(http.MethodGet, "/api/v1/outbound-orders?status=shipped", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.OutboundOrder](t, w), 1)
}

func TestOutboundHandler_ValidatesBody(t *testing.T) {
	server := newTestServer(t)

	w := server.do(http.MethodPost, "/api/v1/outbound-orders", map[string]any{
		"warehouseId": "wh-1",
		"priority":    "whenever",
		"lines":       []map[string]any{{"productId": "sku-1", "quantity": 0}},
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body middleware.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Details, "priority")
	assert.Contains(t, body.Details, "lines[0].quantity")
}

func TestWaveHandler_CreateAndRelease(t *testing.T) {
	server := newTestServer(t)
	server.receive(10)

	w := server.do(http.MethodPost, "/api/v1/outbound-orders", map[string]any{
		"warehouseId": "wh-1",
		"lines":       []map[string]any{{"productId": "sku-1", "quantity": 2}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode[domain.OutboundOrder](t, w)

	w = server.do(http.MethodPost, "/api/v1/waves", map[string]any{
		"warehouseId": "wh-1",
		"orderIds":    []string{order.ID},
		"plannedAt":   time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC),
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	wave := decode[domain.Wave](t, w)

	w = server.do(http.MethodPost, "/api/v1/waves/"+wave.ID+"/release", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	release := decode[application.WaveReleaseDTO](t, w)
	assert.Equal(t, domain.WaveStatusReleased, release.Wave.Status)
	assert.Len(t, release.Tasks, 1)

	w = server.do(http.MethodGet, "/api/v1/pick-tasks/stats", nil, map[string]string{tenant.HeaderWarehouseID: "wh-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[application.TaskStatsDTO](t, w).Total)
}

func TestInboundHandler_CancelWithoutBody(t *testing.T) {
	server := newTestServer(t)

	w := server.do(http.MethodPost, "/api/v1/inbound-orders", map[string]any{
		"warehouseId": "wh-1",
		"lines":       []map[string]any{{"productId": "sku-1", "expectedQuantity": 5}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[domain.InboundOrder](t, w)
	assert.Equal(t, domain.InboundStatusPending, order.Status)

	w = server.do(http.MethodPost, "/api/v1/inbound-orders/"+order.ID+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.InboundStatusCancelled, decode[domain.InboundOrder](t, w).Status)

	w = server.do(http.MethodPost, "/api/v1/inbound-orders/"+order.ID+"/transition", map[string]any{"status": "pending"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_Probes(t *testing.T) {
	server := newTestServer(t)

	w := server.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = server.do(http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = server.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wms_http_requests_total")

	w = server.do(http.MethodGet, "/api/v1/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
