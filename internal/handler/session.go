package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hogarlabs/despensa/internal/auth"
	"github.com/hogarlabs/despensa/internal/membership"
	"github.com/hogarlabs/despensa/internal/store"
)

type SessionHandler struct {
	verifier *auth.Verifier
	resolver *membership.Resolver
	sessions *store.SessionStore
	ttl      time.Duration
	logger   *slog.Logger
}

func NewSessionHandler(v *auth.Verifier, r *membership.Resolver, ss *store.SessionStore, ttl time.Duration, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{verifier: v, resolver: r, sessions: ss, ttl: ttl, logger: logger}
}

type createSessionRequest struct {
	Token         string `json:"token"`
	JoinCode      string `json:"join_code"`
	HouseholdName string `json:"household_name"`
}

type sessionResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	Status    *membership.Status `json:"status"`
}

// Create is the fresh sign-in entry point: it verifies the identity token,
// resolves the membership, and mints a session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	claims, err := h.verifier.Verify(req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid identity token")
		return
	}

	identity := membership.Identity{
		UID:         claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}
	status, err := h.resolver.Ensure(identity, req.JoinCode, req.HouseholdName, true)
	if err != nil {
		writeAppError(w, err)
		return
	}

	sess, err := h.sessions.Create(identity.UID, h.ttl)
	if err != nil {
		h.logger.Error("create session", "user_uid", identity.UID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Status:    status,
	})
}

// Get restores an existing session without arming the choice gate.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	status, err := h.resolver.Current(ac.UserUID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	if err := h.sessions.Delete(ac.SessionToken); err != nil {
		h.logger.Error("delete session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
