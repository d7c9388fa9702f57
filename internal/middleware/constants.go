package middleware

// HTTP header constants.
const (
	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"

	// HeaderRetryAfter is the Retry-After header name.
	HeaderRetryAfter = "Retry-After"

	// RequestIDHeader is the header carrying the request ID.
	RequestIDHeader = "X-Request-ID"
)

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json"

// JSON error bodies written by middleware.
const (
	errInternalServer        = `{"error":"internal server error"}`
	errRateLimitExceeded     = `{"error":"rate limit exceeded"}`
	errRequestEntityTooLarge = `{"error":"request entity too large"}`
)

// maxRequestIDLength bounds caller-supplied request IDs.
const maxRequestIDLength = 128
