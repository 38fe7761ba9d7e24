package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"release", BuildInfo{Version: "v1.2.0", GitCommit: "abc1234def"}, "v1.2.0 (abc1234)"},
		{"dev", BuildInfo{Version: "dev", GitCommit: "abc1234def"}, "dev-abc1234"},
		{"dirty", BuildInfo{Version: "dev", GitCommit: "abc1234def", Dirty: true}, "dev-abc1234-dirty"},
		{"no commit", BuildInfo{Version: "v1.0.0", GitCommit: "unknown"}, "v1.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.Short())
		})
	}
}

func TestIsRelease(t *testing.T) {
	assert.True(t, (&BuildInfo{Version: "v1.0.0"}).IsRelease())
	assert.False(t, (&BuildInfo{Version: "dev-abc1234"}).IsRelease())
	assert.False(t, (&BuildInfo{Version: "v1.0.0", Dirty: true}).IsRelease())
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("unknown").IsZero())
	assert.True(t, parseTime("garbage").IsZero())
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), parseTime("2025-01-02T03:04:05Z"))
}

func TestInfo(t *testing.T) {
	info := Info()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "Platform: ")
}
