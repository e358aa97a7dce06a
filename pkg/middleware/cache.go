package middleware

import (
	"net/http"
	"strconv"
)

// CacheControl sets a public max-age on GET responses. Catalog listings are
// the same for every visitor and can be cached by a CDN.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks every response private and uncacheable. Session state must
// never be served to another visitor by a shared cache.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "private, no-store")
			w.Header().Add("Vary", SessionHeader)
			next.ServeHTTP(w, r)
		})
	}
}
