// Package validation checks user-supplied origins and paths before they
// reach the server or the loader.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateOrigin parses an Origin header value. Only http and https origins
// with a host are accepted.
func ValidateOrigin(origin string) (*url.URL, error) {
	if origin == "" {
		return nil, fmt.Errorf("origin is empty")
	}

	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("origin '%s' has no host", origin)
	}
	return u, nil
}

// OriginAllowed reports whether origin may talk to a server reached as
// host. Same-host origins are always allowed; otherwise origin must equal
// an allowed entry.
func OriginAllowed(origin, host string, allowed []string) bool {
	u, err := ValidateOrigin(origin)
	if err != nil {
		return false
	}
	if host != "" && strings.EqualFold(u.Host, host) {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSuffix(origin, "/"), strings.TrimSuffix(a, "/")) {
			return true
		}
	}
	return false
}

// ValidatePath rejects paths that cannot name a file.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains NUL byte")
	}
	for _, char := range []string{"\n", "\r"} {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains a line break")
		}
	}
	return nil
}
