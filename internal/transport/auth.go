package transport

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware rejects requests that do not carry token as a bearer
// credential.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			given = strings.TrimSpace(given)
			switch {
			case given == "":
				writeRPCError(w, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
			case subtle.ConstantTimeCompare([]byte(given), expected) != 1:
				writeRPCError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid bearer token")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
