package httpapi

// defaultMaxBodyBytes leaves room for a base64 encoded image in /chat payloads.
const defaultMaxBodyBytes int64 = 20 << 20

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes = defaultMaxBodyBytes

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
		return
	}
	maxBodyBytes = n
}

// CORS configuration. Enabled with a wildcard origin unless configured otherwise.
var (
	corsEnabled        = true
	corsAllowedOrigins = []string{"*"}
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server. Empty method and
// header lists fall back to what the API uses.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

func corsMethods() []string {
	if len(corsAllowedMethods) > 0 {
		return corsAllowedMethods
	}
	return []string{"GET", "POST", "OPTIONS"}
}

func corsHeaders() []string {
	if len(corsAllowedHeaders) > 0 {
		return corsAllowedHeaders
	}
	return []string{"*"}
}

func corsOrigins() []string {
	if len(corsAllowedOrigins) > 0 {
		return corsAllowedOrigins
	}
	return []string{"*"}
}
