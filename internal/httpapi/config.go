package httpapi

import "time"

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

// DefaultCORSOrigins are the web front-ends allowed when none are configured.
var DefaultCORSOrigins = []string{
	"https://adinkramedia.com",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// CORS configuration. An empty origin list disables the CORS middleware.
var corsAllowedOrigins = append([]string(nil), DefaultCORSOrigins...)

// SetCORSOrigins replaces the allowed origins; nil or empty disables CORS.
func SetCORSOrigins(origins []string) {
	corsAllowedOrigins = append([]string(nil), origins...)
}

// rateLimitPerMin caps /ancestor requests per client IP. Zero disables it.
var rateLimitPerMin = 0

// SetRateLimitPerMinute configures the per-IP limit for the ask routes.
func SetRateLimitPerMinute(n int) {
	if n < 0 {
		n = 0
	}
	rateLimitPerMin = n
}

func rateWindow() time.Duration {
	if rateLimitPerMin <= 0 {
		return 0
	}
	return time.Minute / time.Duration(rateLimitPerMin)
}
