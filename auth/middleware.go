package auth

import (
	"context"
	"net/http"
	"strings"

	"requisas/model"
)

type contextKey struct{}

// Identity is the authenticated caller, passed explicitly through the
// request context into every handler.
type Identity struct {
	UserID   int64
	Username string
	Role     model.Role
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Require wraps a handler with bearer-token authentication. When roles are
// given, the caller's role must match one of them; administrators pass every
// gate.
func Require(secret []byte, next http.HandlerFunc, roles ...model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			http.Error(w, "Invalid token format", http.StatusUnauthorized)
			return
		}

		claims, err := ParseToken(tokenString, secret)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		if len(roles) > 0 && claims.Role != model.RoleAdmin {
			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				http.Error(w, "You do not have permission to access this resource", http.StatusForbidden)
				return
			}
		}

		identity := Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}
		next(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, identity)))
	}
}
