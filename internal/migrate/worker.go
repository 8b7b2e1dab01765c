// Package migrate performs the one-time import of pre-household inventory
// into a target household.
package migrate

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/hogarlabs/despensa/internal/inventory"
	"github.com/hogarlabs/despensa/internal/store"
)

// Result is what callers see. The worker never returns a Go error: internal
// failures become OK=false with a display-safe message, so navigation can
// show a soft failure instead of crashing.
type Result struct {
	OK         bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Migrated   bool   `json:"migrated"`
	Categories int    `json:"categories"`
	Products   int    `json:"products"`
}

type Worker struct {
	db         *sql.DB
	legacy     *store.LegacyStore
	categories *store.CategoryStore
	products   *store.ProductStore
	logger     *slog.Logger
}

func NewWorker(db *sql.DB, logger *slog.Logger) *Worker {
	return &Worker{
		db:         db,
		legacy:     store.NewLegacyStore(db),
		categories: store.NewCategoryStore(db),
		products:   store.NewProductStore(db),
		logger:     logger,
	}
}

// normalizeName is the de-duplication key: case-insensitive, trimmed.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type plannedCategory struct {
	id        string
	name      string
	createdAt time.Time
}

type plannedProduct struct {
	id         string
	categoryID string
	name       string
	quantity   int
	threshold  int
	autoList   bool
	manualList bool
	createdAt  time.Time
}

// Run imports the legacy categories and products owned by userUID (or
// unowned, predating ownership tracking) into the target household. The
// whole import commits as one all-or-nothing batch; a batch with zero
// operations performs no write and reports Migrated=false. Repeated runs
// are harmless even without the caller's migrated flag, because category
// and product name de-duplication maps everything onto the rows the first
// run created.
func (w *Worker) Run(userUID, householdID string) Result {
	legacyCategories, err := w.legacy.ListCategories()
	if err != nil {
		return w.fail("load legacy categories", err)
	}
	legacyProducts, err := w.legacy.ListProducts()
	if err != nil {
		return w.fail("load legacy products", err)
	}
	existingCategories, err := w.categories.ListByHousehold(householdID)
	if err != nil {
		return w.fail("load target categories", err)
	}
	existingProducts, err := w.products.ListByHousehold(householdID)
	if err != nil {
		return w.fail("load target products", err)
	}

	categoryIndex := make(map[string]string, len(existingCategories))
	for _, c := range existingCategories {
		categoryIndex[normalizeName(c.Name)] = c.ID
	}
	productIndex := make(map[string]bool, len(existingProducts))
	for _, p := range existingProducts {
		productIndex[p.CategoryID+"\x00"+normalizeName(p.Name)] = true
	}

	ownedBy := func(owner *string) bool {
		return owner == nil || *owner == userUID
	}

	// Map each qualifying legacy category to a target category id, creating
	// only where no name match exists. Legacy categories with empty names
	// are skipped, which silently drops their products too.
	var newCategories []plannedCategory
	legacyToTarget := make(map[string]string)
	for _, lc := range legacyCategories {
		if !ownedBy(lc.OwnerUID) {
			continue
		}
		name := strings.TrimSpace(lc.Name)
		if name == "" {
			continue
		}
		key := normalizeName(name)
		if id, ok := categoryIndex[key]; ok {
			legacyToTarget[lc.ID] = id
			continue
		}
		planned := plannedCategory{id: xid.New().String(), name: name, createdAt: lc.CreatedAt}
		newCategories = append(newCategories, planned)
		categoryIndex[key] = planned.id
		legacyToTarget[lc.ID] = planned.id
	}

	var newProducts []plannedProduct
	for _, lp := range legacyProducts {
		if !ownedBy(lp.OwnerUID) {
			continue
		}
		name := strings.TrimSpace(lp.Name)
		if name == "" {
			continue
		}
		targetCategory, ok := legacyToTarget[lp.CategoryID]
		if !ok {
			continue
		}
		if productIndex[targetCategory+"\x00"+normalizeName(name)] {
			continue
		}
		newProducts = append(newProducts, plannedProduct{
			id:         xid.New().String(),
			categoryID: targetCategory,
			name:       name,
			quantity:   inventory.CoerceQuantity(lp.Quantity),
			threshold:  inventory.CoerceThreshold(lp.Threshold),
			autoList:   lp.AutoList,
			manualList: lp.ManualList,
			createdAt:  lp.CreatedAt,
		})
	}

	if len(newCategories) == 0 && len(newProducts) == 0 {
		return Result{OK: true, Migrated: false}
	}

	if err := w.commit(householdID, newCategories, newProducts); err != nil {
		return w.fail("commit import batch", err)
	}

	w.logger.Info("legacy data imported",
		"user_uid", userUID,
		"household_id", householdID,
		"categories", len(newCategories),
		"products", len(newProducts),
	)
	return Result{
		OK:         true,
		Migrated:   true,
		Categories: len(newCategories),
		Products:   len(newProducts),
	}
}

func (w *Worker) commit(householdID string, categories []plannedCategory, products []plannedProduct) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, c := range categories {
		if _, err := tx.Exec(
			`INSERT INTO categories (id, household_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			c.id, householdID, c.name, c.createdAt.UTC(), now,
		); err != nil {
			return fmt.Errorf("insert category %q: %w", c.name, err)
		}
	}
	for _, p := range products {
		if _, err := tx.Exec(
			`INSERT INTO products (id, household_id, category_id, name, quantity, threshold, auto_list, manual_list, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.id, householdID, p.categoryID, p.name, p.quantity, p.threshold,
			boolToInt(p.autoList), boolToInt(p.manualList), p.createdAt.UTC(), now,
		); err != nil {
			return fmt.Errorf("insert product %q: %w", p.name, err)
		}
	}

	return tx.Commit()
}

func (w *Worker) fail(op string, err error) Result {
	w.logger.Error("legacy migration failed", "op", op, "error", err)
	return Result{OK: false, Error: fmt.Sprintf("%s: %v", op, err)}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
