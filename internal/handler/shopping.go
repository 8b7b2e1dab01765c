package handler

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/hogarlabs/despensa/internal/auth"
	"github.com/hogarlabs/despensa/internal/inventory"
	"github.com/hogarlabs/despensa/internal/model"
	"github.com/hogarlabs/despensa/internal/shopping"
)

type ShoppingHandler struct {
	inventory *inventory.Service
	locale    language.Tag
}

// NewShoppingHandler keeps the locale tag rather than a collator: collators
// carry mutable comparison buffers, so each request builds its own.
func NewShoppingHandler(svc *inventory.Service, locale language.Tag) *ShoppingHandler {
	return &ShoppingHandler{inventory: svc, locale: locale}
}

type shoppingItem struct {
	model.Product
	Urgent bool `json:"urgent"`
}

// Get derives the shopping list from the household's current inventory.
func (h *ShoppingHandler) Get(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.ListHouseholdProducts(auth.HouseholdID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}

	selected := shopping.Select(products, shopping.NewCollator(h.locale))
	items := make([]shoppingItem, 0, len(selected))
	for _, p := range selected {
		items = append(items, shoppingItem{Product: p, Urgent: shopping.Urgent(p)})
	}
	writeJSON(w, http.StatusOK, items)
}
