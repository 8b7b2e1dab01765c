package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/hogarlabs/despensa/internal/apperror"
	"github.com/hogarlabs/despensa/internal/database"
	"github.com/hogarlabs/despensa/internal/model"
	"github.com/hogarlabs/despensa/internal/store"
)

type recordedEvent struct {
	householdID, entity, action, id string
}

type recordingBroadcaster struct {
	events []recordedEvent
}

func (b *recordingBroadcaster) EntityChanged(householdID, entity, action, id string) {
	b.events = append(b.events, recordedEvent{householdID, entity, action, id})
}

func setupService(t *testing.T) (*Service, *recordingBroadcaster, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hs := store.NewHouseholdStore(db)
	h, err := hs.Create("user-1", "Casa")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	b := &recordingBroadcaster{}
	svc := NewService(store.NewCategoryStore(db), store.NewProductStore(db), b, slog.Default())
	return svc, b, h.ID
}

func TestCreateCategoryValidation(t *testing.T) {
	svc, _, hid := setupService(t)

	if _, err := svc.CreateCategory(hid, "   "); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Errorf("blank name: err = %v, want InvalidInput", err)
	}
	long := strings.Repeat("a", 51)
	if _, err := svc.CreateCategory(hid, long); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Errorf("51-char name: err = %v, want InvalidInput", err)
	}

	c, err := svc.CreateCategory(hid, "  Despensa  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != "Despensa" {
		t.Errorf("name = %q, want trimmed %q", c.Name, "Despensa")
	}
}

func TestCreateProductCoercion(t *testing.T) {
	svc, _, hid := setupService(t)
	c, _ := svc.CreateCategory(hid, "Despensa")

	p, err := svc.CreateProduct(hid, c.ID, "Arroz", "abc", -5, true, false)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if p.Quantity != 0 {
		t.Errorf("quantity = %d, want coerced 0", p.Quantity)
	}
	if p.Threshold != 2 {
		t.Errorf("threshold = %d, want coerced 2", p.Threshold)
	}
}

func TestCreateProductUnknownCategory(t *testing.T) {
	svc, _, hid := setupService(t)

	_, err := svc.CreateProduct(hid, "missing", "Arroz", 1, 2, true, false)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestCategoryScopedToHousehold(t *testing.T) {
	svc, _, hid := setupService(t)
	c, _ := svc.CreateCategory(hid, "Despensa")

	if _, err := svc.GetCategory("other-household", c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("cross-household read: err = %v, want NotFound", err)
	}
}

func TestTypedProductUpdates(t *testing.T) {
	svc, _, hid := setupService(t)
	c, _ := svc.CreateCategory(hid, "Despensa")
	p, _ := svc.CreateProduct(hid, c.ID, "Arroz", 3, 2, true, false)

	if got, err := svc.SetProductQuantity(hid, p.ID, "7"); err != nil || got.Quantity != 7 {
		t.Fatalf("set quantity: got %+v err %v", got, err)
	}
	if got, err := svc.SetProductQuantity(hid, p.ID, "abc"); err != nil || got.Quantity != 0 {
		t.Fatalf("coerced quantity: got %+v err %v", got, err)
	}
	if got, err := svc.SetProductThreshold(hid, p.ID, -5); err != nil || got.Threshold != 2 {
		t.Fatalf("coerced threshold: got %+v err %v", got, err)
	}
	if got, err := svc.SetManualList(hid, p.ID, true); err != nil || !got.ManualList {
		t.Fatalf("set manual: got %+v err %v", got, err)
	}
	if _, err := svc.RenameProduct(hid, p.ID, ""); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("rename blank: err = %v, want InvalidInput", err)
	}
}

func TestDeleteCategoryCascade(t *testing.T) {
	svc, _, hid := setupService(t)
	c, _ := svc.CreateCategory(hid, "Despensa")
	svc.CreateProduct(hid, c.ID, "Arroz", 1, 2, true, false)
	svc.CreateProduct(hid, c.ID, "Pasta", 1, 2, true, false)
	svc.CreateProduct(hid, c.ID, "Sal", 1, 2, true, false)

	deleted, err := svc.DeleteCategory(hid, c.ID)
	if err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if deleted != 3 {
		t.Errorf("products deleted = %d, want 3", deleted)
	}

	if _, err := svc.GetCategory(hid, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("category should be gone")
	}
	products, err := svc.ListHouseholdProducts(hid)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("expected no products referencing deleted category, got %d", len(products))
	}
}

func TestSubscribeCategories(t *testing.T) {
	svc, _, hid := setupService(t)
	svc.CreateCategory(hid, "Nevera")

	var deliveries [][]model.Category
	unsubscribe, err := svc.SubscribeCategories(hid, func(cs []model.Category) {
		deliveries = append(deliveries, cs)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Fires once immediately with current state.
	if len(deliveries) != 1 || len(deliveries[0]) != 1 {
		t.Fatalf("expected immediate snapshot with 1 category, got %+v", deliveries)
	}

	svc.CreateCategory(hid, "Despensa")
	if len(deliveries) != 2 {
		t.Fatalf("expected delivery after create, got %d", len(deliveries))
	}
	if got := deliveries[1]; len(got) != 2 || got[0].Name != "Despensa" {
		t.Errorf("expected ordered snapshot [Despensa Nevera], got %+v", got)
	}

	unsubscribe()
	svc.CreateCategory(hid, "Baño")
	if len(deliveries) != 2 {
		t.Error("expected no delivery after unsubscribe")
	}
}

func TestSubscribeCategoriesScopedByHousehold(t *testing.T) {
	svc, _, hid := setupService(t)

	var deliveries int
	_, err := svc.SubscribeCategories("other-household", func([]model.Category) {
		deliveries++
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	deliveries = 0 // ignore the immediate (empty) snapshot

	svc.CreateCategory(hid, "Despensa")
	if deliveries != 0 {
		t.Error("change in one household must not reach another household's stream")
	}
}

// A commit racing with a new subscription must never leave the subscriber
// on a pre-commit snapshot: either the snapshot already includes the change
// or a notification follows it.
func TestSubscribeDuringConcurrentCommit(t *testing.T) {
	svc, _, hid := setupService(t)

	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("Categoria %02d", i)

		done := make(chan error, 1)
		go func() {
			_, err := svc.CreateCategory(hid, name)
			done <- err
		}()

		var mu sync.Mutex
		var last []model.Category
		unsubscribe, err := svc.SubscribeCategories(hid, func(cs []model.Category) {
			mu.Lock()
			last = cs
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		if err := <-done; err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		unsubscribe()

		mu.Lock()
		found := false
		for _, c := range last {
			if c.Name == name {
				found = true
			}
		}
		mu.Unlock()
		if !found {
			t.Fatalf("iteration %d: last delivery is missing %q", i, name)
		}
	}
}

func TestSubscribeProducts(t *testing.T) {
	svc, _, hid := setupService(t)
	c, _ := svc.CreateCategory(hid, "Despensa")
	other, _ := svc.CreateCategory(hid, "Nevera")

	var deliveries [][]model.Product
	unsubscribe, err := svc.SubscribeProducts(hid, c.ID, func(ps []model.Product) {
		deliveries = append(deliveries, ps)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()

	if len(deliveries) != 1 || len(deliveries[0]) != 0 {
		t.Fatalf("expected immediate empty snapshot, got %+v", deliveries)
	}

	p, _ := svc.CreateProduct(hid, c.ID, "Arroz", 1, 2, true, false)
	if len(deliveries) != 2 || len(deliveries[1]) != 1 {
		t.Fatalf("expected delivery after create, got %+v", deliveries)
	}

	// Changes in another category do not reach this stream.
	svc.CreateProduct(hid, other.ID, "Leche", 1, 2, true, false)
	if len(deliveries) != 2 {
		t.Error("expected no delivery for another category's product")
	}

	svc.SetProductQuantity(hid, p.ID, 9)
	if len(deliveries) != 3 || deliveries[2][0].Quantity != 9 {
		t.Fatalf("expected updated snapshot, got %+v", deliveries)
	}
}

func TestBroadcasterReceivesChanges(t *testing.T) {
	svc, b, hid := setupService(t)

	c, _ := svc.CreateCategory(hid, "Despensa")
	p, _ := svc.CreateProduct(hid, c.ID, "Arroz", 1, 2, true, false)
	svc.DeleteProduct(hid, p.ID)

	want := []recordedEvent{
		{hid, "category", "created", c.ID},
		{hid, "product", "created", p.ID},
		{hid, "product", "deleted", p.ID},
	}
	if len(b.events) != len(want) {
		t.Fatalf("events = %d, want %d: %+v", len(b.events), len(want), b.events)
	}
	for i, ev := range want {
		if b.events[i] != ev {
			t.Errorf("event %d = %+v, want %+v", i, b.events[i], ev)
		}
	}
}
