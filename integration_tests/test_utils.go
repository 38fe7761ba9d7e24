//go:build integration
// +build integration

package integration_tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// HealthResponse mirrors the /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Entries int    `json:"entries"`
	Clients int    `json:"clients"`
}

// freePort asks the system for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// waitForHealth polls /health until the server answers or ctx expires.
func waitForHealth(ctx context.Context, baseURL string) (*HealthResponse, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			var health HealthResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&health)
			resp.Body.Close()
			if decodeErr == nil && resp.StatusCode == http.StatusOK {
				return &health, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("server at %s not ready: %w", baseURL, ctx.Err())
		case <-ticker.C:
		}
	}
}

func writeDeclaration(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
