package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hogarlabs/despensa/internal/auth"
	"github.com/hogarlabs/despensa/internal/membership"
)

type HouseholdHandler struct {
	resolver *membership.Resolver
}

func NewHouseholdHandler(r *membership.Resolver) *HouseholdHandler {
	return &HouseholdHandler{resolver: r}
}

// Get returns the resolved state plus the full membership set.
func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserUID(r.Context())

	status, err := h.resolver.Current(uid)
	if err != nil {
		writeAppError(w, err)
		return
	}
	households, err := h.resolver.Households(uid)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"households": households,
	})
}

type joinRequest struct {
	Code string `json:"code"`
}

func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	household, err := h.resolver.JoinByCode(auth.UserUID(r.Context()), req.Code)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, household)
}

type createHouseholdRequest struct {
	Name string `json:"name"`
}

func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	household, err := h.resolver.CreateAdditional(auth.UserUID(r.Context()), req.Name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, household)
}

func (h *HouseholdHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	status, err := h.resolver.ConfirmCurrent(auth.UserUID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

// Migrate re-runs the legacy import on demand. The result is always 200:
// failures are reported in the body so clients can surface them without
// treating the request itself as failed.
func (h *HouseholdHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	result, err := h.resolver.MigrateNow(auth.UserUID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
