package auth

import (
	"context"
	"net/http"

	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/pkg"

	log "github.com/sirupsen/logrus"
)

type sessionRemover interface {
	Logout(ctx context.Context, token string) (bool, error)
}

type WhoAmIResponse struct {
	UserID string `json:"userId"`
}

type LogoutResponse struct {
	LoggedOut bool `json:"loggedOut"`
}

// Handler serves the session endpoints. Sessions are issued out of band
// (liftctl login), so there is no login route.
type Handler struct {
	sessions sessionRemover
}

func NewHandler(sessions sessionRemover) *Handler {
	return &Handler{
		sessions: sessions,
	}
}

func (h *Handler) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	pkg.WriteJSON(w, WhoAmIResponse{UserID: userID}, http.StatusOK)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	token := TokenFromRequest(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := h.sessions.Logout(ctx, token)
	if err != nil {
		log.Errorf("logout: %s", err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("logout, session existed: %t", loggedOut)
	pkg.WriteJSON(w, LogoutResponse{LoggedOut: loggedOut}, http.StatusOK)
}
