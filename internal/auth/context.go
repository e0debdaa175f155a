package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/2beens/liftlog/internal/datastore"
)

const SessionTokenHeader = "X-Session-Token"

type userCtxKey struct{}

// ContextWithUser stores the session user id in ctx.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userCtxKey{}, userID)
}

func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userCtxKey{}).(string)
	return userID, ok && userID != ""
}

// FindUser is the store's user resolver: the user id placed in ctx by the auth
// middleware (or a CLI/MCP entry point), else datastore.ErrUnauthenticated.
func FindUser(ctx context.Context) (string, error) {
	userID, ok := UserFromContext(ctx)
	if !ok {
		return "", datastore.ErrUnauthenticated
	}
	return userID, nil
}

// TokenFromRequest reads X-Session-Token, falling back to a bearer Authorization header.
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(SessionTokenHeader); token != "" {
		return token
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return ""
}
