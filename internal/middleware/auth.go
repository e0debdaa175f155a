package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/2beens/liftlog/internal/auth"
	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const SessionTokenHeader = auth.SessionTokenHeader

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=middleware_test

type sessionResolver interface {
	UserForToken(ctx context.Context, token string) (string, error)
}

type AuthMiddlewareHandler struct {
	sessions     sessionResolver
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(sessions sessionResolver, allowedPaths ...string) *AuthMiddlewareHandler {
	allowed := make(map[string]bool, len(allowedPaths))
	for _, p := range allowedPaths {
		allowed[p] = true
	}
	return &AuthMiddlewareHandler{
		sessions:     sessions,
		allowedPaths: allowed,
	}
}

// AuthCheck resolves the session token to a user and stores it in the request context.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			token := auth.TokenFromRequest(r)
			if token == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			userID, err := h.sessions.UserForToken(ctx, token)
			if err != nil {
				if errors.Is(err, datastore.ErrUnauthenticated) {
					log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
					span.SetStatus(codes.Error, "not-logged")
				} else {
					log.Errorf("[failed session check] => %s: %s", r.URL.Path, err)
					span.SetStatus(codes.Error, "session-check-err")
					span.RecordError(err)
				}
				http.Error(w, "no can do", http.StatusUnauthorized)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), userID)))
		})
	}
}
