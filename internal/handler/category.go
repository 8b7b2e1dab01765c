package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hogarlabs/despensa/internal/auth"
	"github.com/hogarlabs/despensa/internal/inventory"
	"github.com/hogarlabs/despensa/internal/model"
)

type CategoryHandler struct {
	inventory *inventory.Service
}

func NewCategoryHandler(svc *inventory.Service) *CategoryHandler {
	return &CategoryHandler{inventory: svc}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.inventory.ListCategories(auth.HouseholdID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	c, err := h.inventory.CreateCategory(auth.HouseholdID(r.Context()), req.Name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	c, err := h.inventory.RenameCategory(auth.HouseholdID(r.Context()), r.PathValue("id"), req.Name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.inventory.DeleteCategory(auth.HouseholdID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"products_deleted": deleted})
}
