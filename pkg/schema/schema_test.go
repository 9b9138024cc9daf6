package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidator(t *testing.T) {
	v := NewDefaultValidator()

	tests := []struct {
		name     string
		metadata map[string]any
		valid    bool
		wantAt   string
	}{
		{name: "nil", valid: true},
		{name: "scalars", valid: true, metadata: map[string]any{"channel": "web", "giftWrap": true, "weightKg": 2.5, "note": nil}},
		{name: "one level of nesting", valid: true, metadata: map[string]any{"customer": map[string]any{"tier": "gold"}, "tags": []any{"fragile", 3}}},
		{name: "bad key", metadata: map[string]any{"9lives": "x"}},
		{name: "too deep", metadata: map[string]any{"customer": map[string]any{"address": map[string]any{"city": "Lyon"}}}, wantAt: "/customer"},
		{name: "long string", metadata: map[string]any{"note": strings.Repeat("x", 1025)}, wantAt: "/note"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.metadata)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var failure *ValidationFailure
			require.ErrorAs(t, err, &failure)
			assert.NotEmpty(t, failure.Fields)
			if tt.wantAt != "" {
				found := false
				for loc := range failure.Fields {
					if strings.HasPrefix(loc, tt.wantAt) {
						found = true
					}
				}
				assert.True(t, found, "expected a violation under %s, got %v", tt.wantAt, failure.Fields)
			}
		})
	}
}

func TestLoadValidator(t *testing.T) {
	v, err := LoadValidator("")
	require.NoError(t, err)
	assert.NotNil(t, v)

	path := filepath.Join(t.TempDir(), "strict.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"object","required":["channel"]}`), 0o600))
	strict, err := LoadValidator(path)
	require.NoError(t, err)
	assert.NoError(t, strict.Validate(map[string]any{"channel": "edi"}))
	assert.Error(t, strict.Validate(map[string]any{"other": 1}))

	_, err = LoadValidator(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = NewValidator([]byte(`{"type": 12}`))
	assert.Error(t, err)
}
