package httpapi

import "strings"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// CORS configuration. If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

var (
	defaultCORSMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Accept", "Content-Type", "X-Request-Id", "X-Log-Level"}
)

// SetCORSOptions configures CORS behavior for the HTTP server. Empty methods
// or headers select defaults suitable for the chat UI.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
	if len(corsAllowedMethods) == 0 {
		corsAllowedMethods = append([]string(nil), defaultCORSMethods...)
	}
	if len(corsAllowedHeaders) == 0 {
		corsAllowedHeaders = append([]string(nil), defaultCORSHeaders...)
	}
}

// corsAllowAll reports whether the origin list contains the wildcard.
// A wildcard reflects the request origin, so credentials keep working.
func corsAllowAll() bool {
	for _, o := range corsAllowedOrigins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
