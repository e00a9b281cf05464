package controllers

import (
	"net/http"
	"time"

	"github.com/tradehub/tradehub-backend/api/middleware"
	"github.com/tradehub/tradehub-backend/api/responses"
	"github.com/tradehub/tradehub-backend/pkg/logger"
)

type pingPayload struct {
	Scope      string    `json:"scope"`
	Status     string    `json:"status"`
	ServerTime time.Time `json:"server_time"`
	RequestID  string    `json:"request_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Role       string    `json:"role,omitempty"`
}

// PublicPing lets clients check reachability and clock drift.
func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newPing(r, "public"))
	}
}

// PrivatePing echoes the authenticated identity and its marketplace role.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := newPing(r, "private")
		if user := middleware.UserIDFromContext(r.Context()); user != "" {
			payload.UserID = user
			payload.Role = middleware.RoleFromContext(r.Context())
		}
		responses.WriteSuccess(w, payload)
	}
}

func newPing(r *http.Request, scope string) pingPayload {
	return pingPayload{
		Scope:      scope,
		Status:     "ok",
		ServerTime: time.Now().UTC(),
		RequestID:  logger.RequestIDFromContext(r.Context()),
	}
}
