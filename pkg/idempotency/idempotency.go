// Package idempotency carries client supplied idempotency keys from the
// Idempotency-Key header to the ledger, which deduplicates on them.
package idempotency

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey is the HTTP header carrying the key
	HeaderIdempotencyKey = "Idempotency-Key"

	// DefaultMaxKeyLength bounds the key length
	DefaultMaxKeyLength = 255
)

var (
	ErrKeyRequired = errors.New("idempotency key is required for this operation")
	ErrKeyInvalid  = errors.New("invalid idempotency key format")
	ErrKeyTooLong  = errors.New("idempotency key exceeds maximum length of 255 characters")
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

type contextKey struct{}

// Config controls the middleware
type Config struct {
	// RequireKey rejects mutating requests without a key
	RequireKey   bool
	MaxKeyLength int
}

// DefaultConfig accepts requests without a key
func DefaultConfig() *Config {
	return &Config{MaxKeyLength: DefaultMaxKeyLength}
}

// ValidateKey checks key format and length
func ValidateKey(key string, maxLength int) error {
	if key == "" {
		return ErrKeyRequired
	}
	if len(key) > maxLength {
		return ErrKeyTooLong
	}
	if !keyPattern.MatchString(key) {
		return ErrKeyInvalid
	}
	return nil
}

// NormalizeKey trims surrounding whitespace
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// WithKey stores key in ctx
func WithKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, key)
}

// FromContext returns the key stored in ctx, or ""
func FromContext(ctx context.Context) string {
	key, _ := ctx.Value(contextKey{}).(string)
	return key
}

// Middleware validates the Idempotency-Key header of mutating requests and
// stores it in the request context
func Middleware(config *Config) gin.HandlerFunc {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxKeyLength <= 0 {
		config.MaxKeyLength = DefaultMaxKeyLength
	}

	return func(c *gin.Context) {
		if !isMutatingMethod(c.Request.Method) {
			c.Next()
			return
		}

		key := NormalizeKey(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			if config.RequireKey {
				abort(c, "IDEMPOTENCY_KEY_REQUIRED", ErrKeyRequired)
				return
			}
			c.Next()
			return
		}
		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			abort(c, "IDEMPOTENCY_KEY_INVALID", err)
			return
		}

		c.Request = c.Request.WithContext(WithKey(c.Request.Context(), key))
		c.Next()
	}
}

func abort(c *gin.Context, code string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"code":    code,
		"message": err.Error(),
		"details": gin.H{"header": HeaderIdempotencyKey},
	})
}

func isMutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
