package util

import (
	"net"
	"net/http"
)

// StatusCapturingResponseWriter wraps http.ResponseWriter to record the
// status code and the number of body bytes written.
type StatusCapturingResponseWriter struct {
	http.ResponseWriter
	StatusCode   int
	BytesWritten int
	wroteHeader  bool
}

// NewStatusCapturingResponseWriter creates a writer that defaults to 200.
func NewStatusCapturingResponseWriter(w http.ResponseWriter) *StatusCapturingResponseWriter {
	return &StatusCapturingResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader records the first status code written.
func (w *StatusCapturingResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.StatusCode = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

// Write counts body bytes.
func (w *StatusCapturingResponseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.BytesWritten += n
	return n, err
}

// Flush implements http.Flusher.
func (w *StatusCapturingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// ClientIP returns the host part of the request's remote address.
// Forwarding headers are ignored since they are caller-controlled.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
