// Package shopping decides which products belong on the shopping list.
// The list is never persisted: it is derived from product state on every
// read, so there is no stale-view problem and every caller agrees on the
// rule.
package shopping

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hogarlabs/despensa/internal/model"
)

// OnList reports whether a product needs replenishment. A manual override
// always wins; otherwise the product is listed when auto-listing is enabled
// and the quantity has fallen to or below its threshold.
func OnList(p model.Product) bool {
	if p.ManualList {
		return true
	}
	return p.AutoList && p.Quantity <= p.Threshold
}

// Urgent reports whether a listed product has run out entirely.
func Urgent(p model.Product) bool {
	return p.Quantity == 0
}

// NewCollator builds the collator used for name ordering. Collators are not
// safe for concurrent use; build one per call site that sorts.
func NewCollator(tag language.Tag) *collate.Collator {
	return collate.New(tag)
}

// Sort orders products for display: ascending quantity, ties broken by
// locale-aware name comparison.
func Sort(products []model.Product, c *collate.Collator) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity < products[j].Quantity
		}
		return c.CompareString(products[i].Name, products[j].Name) < 0
	})
}

// Select filters the shopping-list members out of products and returns them
// in display order.
func Select(products []model.Product, c *collate.Collator) []model.Product {
	var listed []model.Product
	for _, p := range products {
		if OnList(p) {
			listed = append(listed, p)
		}
	}
	Sort(listed, c)
	return listed
}
