package server

import (
	"crypto/hmac"
	"net/http"
)

// TokenHeader is the request header carrying the shared webhook token.
const TokenHeader = "X-Hook-Token"

// VerifyToken compares the presented token with the configured one in
// constant time. An empty configured token never matches.
func VerifyToken(presented, configured string) bool {
	if presented == "" || configured == "" {
		return false
	}
	return hmac.Equal([]byte(presented), []byte(configured))
}

// RequireToken is middleware enforcing the webhook token. Failures answer
// 404 rather than 401 so an unauthenticated scanner cannot tell the
// endpoints apart from unknown routes.
func (s *Server) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !VerifyToken(r.Header.Get(TokenHeader), s.Config.Token) {
			s.Logger.Warn("Rejected request with bad token", "path", r.URL.Path, "ip", r.RemoteAddr)
			s.Metrics.Reject("auth")
			s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
