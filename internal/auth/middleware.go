// auth/middleware.go
package auth

import (
	"context"
	"errors"
	"net/http"
)

// contextKey is a custom type for context keys
type contextKey string

// Context keys
const (
	RealmIDKey contextKey = "realm_id"
	TokenKey   contextKey = "token"
)

// GetRealmID extracts the QuickBooks realm id from context.
func GetRealmID(ctx context.Context) (string, error) {
	realmID, ok := ctx.Value(RealmIDKey).(string)
	if !ok || realmID == "" {
		return "", errors.New("realm id not found in context")
	}
	return realmID, nil
}

// GetToken extracts the validated token from context.
func GetToken(ctx context.Context) *OAuthToken {
	token, _ := ctx.Value(TokenKey).(*OAuthToken)
	return token
}

// RealmFromRequest resolves the realm for a request: explicit X-Realm-ID
// header first (API callers), then the browser session.
func RealmFromRequest(r *http.Request) string {
	if realmID := r.Header.Get("X-Realm-ID"); realmID != "" {
		return realmID
	}
	session := GetSession(r)
	realmID, _ := session.Values["realm_id"].(string)
	return realmID
}

// QBAuthMiddleware ensures the request maps to a connected realm with a
// valid (refreshable) token before any API work happens.
func QBAuthMiddleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			realmID := RealmFromRequest(r)
			if realmID == "" {
				http.Error(w, "QuickBooks company not connected", http.StatusUnauthorized)
				return
			}

			token, err := service.GetValidToken(r.Context(), realmID)
			if err != nil {
				http.Error(w, "QuickBooks authentication required", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), TokenKey, token)
			ctx = context.WithValue(ctx, RealmIDKey, realmID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
