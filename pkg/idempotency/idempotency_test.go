package idempotency

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{name: "uuid", key: "0b9a4c4e-6d1f-4c36-9a3e-0e4d5a8d8f11"},
		{name: "scoped", key: "asn-77:line.2"},
		{name: "empty", key: "", want: ErrKeyRequired},
		{name: "too long", key: strings.Repeat("k", DefaultMaxKeyLength+1), want: ErrKeyTooLong},
		{name: "spaces", key: "two words", want: ErrKeyInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key, DefaultMaxKeyLength)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		config     *Config
		method     string
		header     string
		wantStatus int
		wantKey    string
	}{
		{name: "forwarded", method: http.MethodPost, header: " key-1 ", wantStatus: http.StatusOK, wantKey: "key-1"},
		{name: "optional", method: http.MethodPost, wantStatus: http.StatusOK},
		{name: "required", config: &Config{RequireKey: true}, method: http.MethodPost, wantStatus: http.StatusBadRequest},
		{name: "invalid", method: http.MethodPost, header: "bad key", wantStatus: http.StatusBadRequest},
		{name: "reads ignore the header", method: http.MethodGet, header: "bad key", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(Middleware(tt.config))
			router.Handle(tt.method, "/op", func(c *gin.Context) {
				c.String(http.StatusOK, FromContext(c.Request.Context()))
			})

			req := httptest.NewRequest(tt.method, "/op", nil)
			if tt.header != "" {
				req.Header.Set(HeaderIdempotencyKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantKey, w.Body.String())
			}
		})
	}
}
