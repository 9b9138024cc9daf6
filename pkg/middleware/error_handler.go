package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-core/pkg/errors"
	"github.com/wms-platform/warehouse-core/pkg/logging"
)

// APIErrorResponse is the body of every failed request
type APIErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path"`
}

// ErrorResponder writes and logs error responses for one request
type ErrorResponder struct {
	ctx    *gin.Context
	logger *logging.Logger
}

func NewErrorResponder(ctx *gin.Context, logger *logging.Logger) *ErrorResponder {
	return &ErrorResponder{ctx: ctx, logger: logger}
}

// RespondWithError sends err. Anything that is not an AppError is a 500.
func (r *ErrorResponder) RespondWithError(err error) {
	r.RespondWithAppError(errors.FromError(err))
}

func (r *ErrorResponder) RespondWithAppError(appErr *errors.AppError) {
	if r.logger != nil {
		logAPIError(r.logger, r.ctx, appErr)
	}
	r.ctx.JSON(appErr.HTTPStatus, errorBody(r.ctx, appErr))
}

// AbortWithAppError stops the handler chain with appErr. Used by middleware
// that rejects a request before it reaches a handler.
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, errorBody(c, appErr))
}

func errorBody(c *gin.Context, appErr *errors.AppError) APIErrorResponse {
	return APIErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	}
}

// 4xx responses log at warn, everything else at error
func logAPIError(logger *logging.Logger, c *gin.Context, appErr *errors.AppError) {
	level := slog.LevelError
	if appErr.IsClientError() {
		level = slog.LevelWarn
	}

	attrs := []any{
		"code", appErr.Code,
		"status", appErr.HTTPStatus,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	if appErr.Err != nil {
		attrs = append(attrs, "error", appErr.Err.Error())
	}
	if len(appErr.Details) > 0 {
		attrs = append(attrs, "details", appErr.Details)
	}

	ctx := c.Request.Context()
	logger.WithContext(ctx).Log(ctx, level, appErr.Message, attrs...)
}
