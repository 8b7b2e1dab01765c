package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hogarlabs/despensa/internal/auth"
	"github.com/hogarlabs/despensa/internal/inventory"
	"github.com/hogarlabs/despensa/internal/model"
)

type ProductHandler struct {
	inventory *inventory.Service
}

func NewProductHandler(svc *inventory.Service) *ProductHandler {
	return &ProductHandler{inventory: svc}
}

func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.ListProducts(auth.HouseholdID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

type createProductRequest struct {
	Name       string `json:"name"`
	Quantity   any    `json:"quantity"`
	Threshold  any    `json:"threshold"`
	AutoList   *bool  `json:"auto_list"`
	ManualList *bool  `json:"manual_list"`
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	autoList := true
	if req.AutoList != nil {
		autoList = *req.AutoList
	}
	manualList := req.ManualList != nil && *req.ManualList

	p, err := h.inventory.CreateProduct(
		auth.HouseholdID(r.Context()), r.PathValue("id"),
		req.Name, req.Quantity, req.Threshold, autoList, manualList,
	)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Patch applies only the fields present in the body. Quantity and threshold
// accept any JSON type and are coerced; list flags must be booleans.
func (h *ProductHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	id := r.PathValue("id")

	var (
		p   *model.Product
		err error
	)
	apply := func(update func() (*model.Product, error)) bool {
		if err != nil {
			return false
		}
		p, err = update()
		return err == nil
	}

	if raw, ok := fields["name"]; ok {
		var name string
		if jsonErr := json.Unmarshal(raw, &name); jsonErr != nil {
			writeError(w, http.StatusBadRequest, "name must be a string")
			return
		}
		apply(func() (*model.Product, error) { return h.inventory.RenameProduct(householdID, id, name) })
	}
	if raw, ok := fields["quantity"]; ok {
		var quantity any
		json.Unmarshal(raw, &quantity)
		apply(func() (*model.Product, error) { return h.inventory.SetProductQuantity(householdID, id, quantity) })
	}
	if raw, ok := fields["threshold"]; ok {
		var threshold any
		json.Unmarshal(raw, &threshold)
		apply(func() (*model.Product, error) { return h.inventory.SetProductThreshold(householdID, id, threshold) })
	}
	if raw, ok := fields["auto_list"]; ok {
		var autoList bool
		if jsonErr := json.Unmarshal(raw, &autoList); jsonErr != nil {
			writeError(w, http.StatusBadRequest, "auto_list must be a boolean")
			return
		}
		apply(func() (*model.Product, error) { return h.inventory.SetAutoList(householdID, id, autoList) })
	}
	if raw, ok := fields["manual_list"]; ok {
		var manualList bool
		if jsonErr := json.Unmarshal(raw, &manualList); jsonErr != nil {
			writeError(w, http.StatusBadRequest, "manual_list must be a boolean")
			return
		}
		apply(func() (*model.Product, error) { return h.inventory.SetManualList(householdID, id, manualList) })
	}

	if err != nil {
		writeAppError(w, err)
		return
	}
	if p == nil {
		// Nothing to change: return the current state.
		p, err = h.inventory.GetProduct(householdID, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, p)
}

type quantityRequest struct {
	Quantity any `json:"quantity"`
}

func (h *ProductHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	p, err := h.inventory.SetProductQuantity(auth.HouseholdID(r.Context()), r.PathValue("id"), req.Quantity)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.DeleteProduct(auth.HouseholdID(r.Context()), r.PathValue("id")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
