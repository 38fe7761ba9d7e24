package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{"http", "http://localhost:8080", false},
		{"https", "https://example.com", false},
		{"empty", "", true},
		{"file scheme", "file:///etc/passwd", true},
		{"javascript", "javascript:alert(1)", true},
		{"no host", "http://", true},
		{"malformed", "http://[::1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ValidateOrigin(tt.origin)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, u.Host)
		})
	}
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://app.example.com/", "http://localhost:3000"}

	assert.True(t, OriginAllowed("http://preview.local:8080", "preview.local:8080", nil))
	assert.True(t, OriginAllowed("https://app.example.com", "", allowed))
	assert.True(t, OriginAllowed("http://localhost:3000", "", allowed))
	assert.False(t, OriginAllowed("http://evil.example.com", "preview.local:8080", allowed))
	assert.False(t, OriginAllowed("", "preview.local:8080", allowed))
	assert.False(t, OriginAllowed("ftp://preview.local:8080", "preview.local:8080", nil))
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("site.yml"))
	assert.NoError(t, ValidatePath("/abs/path/site.yml"))
	assert.Error(t, ValidatePath(""))
	assert.Error(t, ValidatePath("  "))
	assert.Error(t, ValidatePath("a\x00b"))
	assert.Error(t, ValidatePath("a\nb"))
}
