package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"log/slog"

	"safewave/internal/types"
)

// responseCapture wraps an http.ResponseWriter to capture the status code
// written by downstream handlers. This is necessary for logging middleware
// that needs to observe the response status after the handler chain
// completes.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the status code and delegates to the wrapped writer.
func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

// Write ensures the status code is captured even when WriteHeader is not
// called explicitly (the default is 200 per the net/http spec).
func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// and other standard library helpers to access it for features like Flush and Hijack.
func (rc *responseCapture) Unwrap() http.ResponseWriter {
	return rc.ResponseWriter
}

// Recoverer catches panics in the handler chain, logs the stack trace
// internally, and writes a standardized APIErrorResponse (500) to the
// client. This middleware MUST be the outermost handler in the chain to
// ensure all panics are caught.
func (s *Server) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				stack := debug.Stack()

				s.Logger.Error("panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("panic", fmt.Sprintf("%v", rvr)),
					slog.String("stack", string(stack)),
				)

				requestID := types.GetRequestID(r.Context())
				resp := APIErrorResponse{
					Error: ErrorDetail{
						Code:      string(types.ErrCodeInternalUnexpected),
						Message:   "an unexpected error occurred",
						RequestID: requestID,
					},
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				// Best-effort write; if encoding also fails there is nothing
				// more we can do.
				_ = writeJSON(w, resp)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs request metadata (method, path, status, duration).
// It explicitly redacts headers defined in redactedHeaders (e.g., Authorization).
func RequestLogger(logger *slog.Logger, redactedHeaders []string) func(http.Handler) http.Handler {
	// Pre-compute a set of lowercased header names for O(1) lookup.
	redactSet := make(map[string]struct{}, len(redactedHeaders))
	for _, h := range redactedHeaders {
		redactSet[strings.ToLower(h)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rc := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rc, r)

			duration := time.Since(start)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rc.statusCode),
				slog.Duration("duration", duration),
				slog.String("remote_addr", r.RemoteAddr),
			}

			if reqID := types.GetRequestID(r.Context()); reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}

			headerAttrs := []slog.Attr{}
			for name, values := range r.Header {
				lowerName := strings.ToLower(name)
				if _, redact := redactSet[lowerName]; redact {
					headerAttrs = append(headerAttrs, slog.String(name, "[REDACTED]"))
				} else {
					headerAttrs = append(headerAttrs, slog.String(name, strings.Join(values, ", ")))
				}
			}
			if len(headerAttrs) > 0 {
				attrs = append(attrs, slog.Group("headers", attrsToAny(headerAttrs)...))
			}

			args := attrsToAny(attrs)
			switch {
			case rc.statusCode >= 500:
				logger.Error("request completed", args...)
			case rc.statusCode >= 400:
				logger.Warn("request completed", args...)
			default:
				logger.Info("request completed", args...)
			}
		})
	}
}

// attrsToAny converts a slice of slog.Attr to []any for use with slog methods.
func attrsToAny(attrs []slog.Attr) []any {
	result := make([]any, len(attrs))
	for i, a := range attrs {
		result[i] = a
	}
	return result
}

// SecurityHeadersMiddleware sets standard security response headers on all
// API responses. It executes early in the middleware chain (after RequestID)
// to ensure headers are present regardless of downstream processing or errors.
func (s *Server) SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		next.ServeHTTP(w, r)
	})
}

// NewCORSMiddleware configures CORS based on the provided allowed origins.
// It handles OPTIONS preflight requests directly and sets Access-Control
// headers on all responses.
//
// Behavior:
//   - If allowedOrigins contains "*", all origins are allowed.
//   - Otherwise, the request Origin header is checked against the allowed list.
//   - Preflight OPTIONS requests receive a 204 No Content response with all
//     necessary CORS headers.
func NewCORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
			break
		}
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			var allowedOrigin string
			if allowAll {
				allowedOrigin = "*"
			} else if origin != "" {
				if _, ok := originSet[origin]; ok {
					allowedOrigin = origin
				}
			}

			if allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")

				if allowedOrigin != "*" {
					w.Header().Set("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ContextTimeoutMiddleware sets a deadline on the request context so a
// stalled state store or classifier cannot hold the connection open past the
// configured request budget.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware generates or propagates a unique request ID for
// correlation across logs and traces. If the incoming request contains an
// X-Request-Id header, that value is reused; otherwise, a new random ID is
// generated.
//
// The request ID is stored in the context via types.WithRequestID and set as
// the X-Request-Id response header for client correlation.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := types.WithRequestID(r.Context(), requestID)

		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateRequestID produces a cryptographically random hex string suitable
// for use as a request correlation ID.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fallback: this should never happen in practice. If crypto/rand
		// fails, we still need a non-empty ID for correlation.
		return "fallback-" + hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}

// writeJSON is a minimal JSON encoder used only within the Recoverer
// middleware. Since we are in a panic recovery context, we must not risk
// another panic from json.Marshal; the known-safe APIErrorResponse is
// formatted manually.
func writeJSON(w http.ResponseWriter, resp APIErrorResponse) error {
	code := escapeJSON(resp.Error.Code)
	message := escapeJSON(resp.Error.Message)
	requestID := escapeJSON(resp.Error.RequestID)

	s := fmt.Sprintf(
		`{"error":{"code":"%s","message":"%s","request_id":"%s"}}`,
		code, message, requestID,
	)
	_, err := w.Write([]byte(s))
	return err
}

// escapeJSON performs minimal JSON string escaping for known-safe strings
// (error codes and messages that we control).
func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}
