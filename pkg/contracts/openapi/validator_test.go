package openapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `
openapi: 3.0.3
info:
  title: stock
  version: 1.0.0
paths:
  /records/{id}/reserve:
    parameters:
      - name: id
        in: path
        required: true
        schema:
          type: string
    post:
      operationId: reserve
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [quantity]
              properties:
                quantity:
                  type: integer
                  minimum: 1
      responses:
        '200':
          description: reserved
          content:
            application/json:
              schema:
                type: object
                required: [data]
                properties:
                  data:
                    type: object
                    required: [reserved]
                    properties:
                      reserved:
                        type: integer
  /records:
    get:
      operationId: listRecords
      responses:
        '200':
          description: records
`

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := Parse([]byte(document))
	require.NoError(t, err)
	return v
}

func reserveRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/records/rec-1/reserve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestParse_RejectsInvalidDocument(t *testing.T) {
	_, err := Parse([]byte("openapi: 3.0.3\ninfo:\n  title: broken\npaths: {}\n"))
	assert.Error(t, err, "info.version is required")
}

func TestValidator_Operations(t *testing.T) {
	v := newTestValidator(t)
	assert.Equal(t, []Operation{
		{Method: http.MethodGet, Path: "/records", ID: "listRecords"},
		{Method: http.MethodPost, Path: "/records/{id}/reserve", ID: "reserve"},
	}, v.Operations())

	id, err := v.OperationID(reserveRequest(`{"quantity":1}`))
	require.NoError(t, err)
	assert.Equal(t, "reserve", id)
}

func TestValidator_ValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *http.Request
		wantErr bool
	}{
		{name: "valid body", req: reserveRequest(`{"quantity":3}`)},
		{name: "below minimum", req: reserveRequest(`{"quantity":0}`), wantErr: true},
		{name: "missing field", req: reserveRequest(`{}`), wantErr: true},
		{name: "undocumented route", req: httptest.NewRequest(http.MethodDelete, "/records", nil), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(t)
			err := v.ValidateRequest(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			body, err := io.ReadAll(tt.req.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"quantity":3}`, string(body), "the body stays readable")
		})
	}
}

func TestValidator_ValidateResponse(t *testing.T) {
	header := http.Header{"Content-Type": []string{"application/json; charset=utf-8"}}
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "matches", status: http.StatusOK, body: `{"data":{"reserved":3}}`},
		{name: "wrong type", status: http.StatusOK, body: `{"data":{"reserved":"3"}}`, wantErr: true},
		{name: "missing envelope", status: http.StatusOK, body: `{"reserved":3}`, wantErr: true},
		{name: "undocumented status", status: http.StatusTeapot, body: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(t)
			err := v.ValidateResponse(reserveRequest(`{"quantity":3}`), tt.status, header, []byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
