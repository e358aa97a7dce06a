package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/utafrali/storefront/pkg/logger"
)

// SessionHeader carries the browser session identifier.
const SessionHeader = "X-Session-ID"

// sessionIDPattern accepts opaque ids such as UUIDs or base64url tokens.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Session requires a well-formed X-Session-ID header and stores it in the
// request context. Requests without one get 401.
func Session() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+SessionHeader+" header")
				return
			}
			if !ValidSessionID(id) {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "malformed "+SessionHeader+" header")
				return
			}

			next.ServeHTTP(w, r.WithContext(logger.WithSessionID(r.Context(), id)))
		})
	}
}

// ValidSessionID reports whether id is acceptable as a session identifier.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// SessionIDFromContext returns the session id stored by Session.
func SessionIDFromContext(ctx context.Context) string {
	return logger.SessionIDFromContext(ctx)
}
