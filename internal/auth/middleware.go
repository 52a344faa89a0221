package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type contextKey string

const hostIDKey contextKey = "host_id"

// Middleware validates the bearer token and attaches the host ID to the
// request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(w, "authentication required")
			return
		}
		hostID, err := s.VerifyAccess(parts[1])
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), hostIDKey, hostID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HostID returns the authenticated host ID attached by Middleware.
func HostID(ctx context.Context) string {
	id, _ := ctx.Value(hostIDKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"detail":%q}`, detail)
}
