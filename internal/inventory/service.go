// Package inventory is the single data-access surface for categories and
// products. Callers never touch the stores directly: the service validates
// input, applies the numeric coercion policy, runs the explicit two-phase
// category cascade, and feeds every committed change to live subscribers.
package inventory

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hogarlabs/despensa/internal/apperror"
	"github.com/hogarlabs/despensa/internal/model"
	"github.com/hogarlabs/despensa/internal/store"
)

const maxNameLength = 50

// Broadcaster receives committed entity changes for remote fan-out.
type Broadcaster interface {
	EntityChanged(householdID, entity, action, id string)
}

type productStreamKey struct {
	householdID string
	categoryID  string
}

type Service struct {
	categories  *store.CategoryStore
	products    *store.ProductStore
	broadcaster Broadcaster
	logger      *slog.Logger

	// mu serializes snapshot reads and delivery so each stream observes
	// updates in commit order.
	mu           sync.Mutex
	nextSubID    int
	categorySubs map[string]map[int]func([]model.Category)
	productSubs  map[productStreamKey]map[int]func([]model.Product)
}

func NewService(cs *store.CategoryStore, ps *store.ProductStore, b Broadcaster, logger *slog.Logger) *Service {
	return &Service{
		categories:   cs,
		products:     ps,
		broadcaster:  b,
		logger:       logger,
		categorySubs: make(map[string]map[int]func([]model.Category)),
		productSubs:  make(map[productStreamKey]map[int]func([]model.Product)),
	}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.InvalidInput("name", "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", apperror.InvalidInput("name", "name must be 50 characters or fewer")
	}
	return name, nil
}

// --- Categories ---

func (s *Service) CreateCategory(householdID, name string) (*model.Category, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	c, err := s.categories.Create(householdID, name)
	if err != nil {
		return nil, apperror.StoreUnavailable("create category", err)
	}

	s.notifyCategories(householdID)
	s.broadcast(householdID, "category", "created", c.ID)
	return c, nil
}

func (s *Service) GetCategory(householdID, id string) (*model.Category, error) {
	c, err := s.categories.GetByID(id)
	if err != nil {
		return nil, apperror.StoreUnavailable("get category", err)
	}
	if c == nil || c.HouseholdID != householdID {
		return nil, apperror.NotFound("category", id)
	}
	return c, nil
}

func (s *Service) ListCategories(householdID string) ([]model.Category, error) {
	categories, err := s.categories.ListByHousehold(householdID)
	if err != nil {
		return nil, apperror.StoreUnavailable("list categories", err)
	}
	return categories, nil
}

func (s *Service) RenameCategory(householdID, id, name string) (*model.Category, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetCategory(householdID, id); err != nil {
		return nil, err
	}

	c, err := s.categories.Rename(id, name)
	if err != nil {
		return nil, apperror.StoreUnavailable("rename category", err)
	}

	s.notifyCategories(householdID)
	s.broadcast(householdID, "category", "updated", id)
	return c, nil
}

// DeleteCategory removes a category and everything in it. The cascade is an
// explicit two-phase operation with no transaction around it: products go
// first, then the category. If the second phase fails after products were
// removed, the caller gets a PartialCascade so it can distinguish "category
// still exists, retry the delete" from an ordinary failure. Retrying is safe
// because the product phase deletes nothing the second time.
func (s *Service) DeleteCategory(householdID, id string) (int64, error) {
	if _, err := s.GetCategory(householdID, id); err != nil {
		return 0, err
	}

	deleted, err := s.products.DeleteByCategory(id)
	if err != nil {
		return 0, apperror.StoreUnavailable("delete category products", err)
	}

	if err := s.categories.Delete(id); err != nil {
		s.logger.Error("category cascade incomplete",
			"category_id", id, "products_deleted", deleted, "error", err)
		return deleted, &apperror.PartialCascade{
			CategoryID:      id,
			ProductsDeleted: deleted,
			Cause:           err,
		}
	}

	s.notifyCategories(householdID)
	s.notifyProducts(householdID, id)
	s.broadcast(householdID, "category", "deleted", id)
	return deleted, nil
}

// --- Products ---

// CreateProduct accepts quantity and threshold as loosely typed values and
// coerces them per the permissive-write policy.
func (s *Service) CreateProduct(householdID, categoryID, name string, quantity, threshold any, autoList, manualList bool) (*model.Product, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetCategory(householdID, categoryID); err != nil {
		return nil, err
	}

	p, err := s.products.Create(
		householdID, categoryID, name,
		CoerceQuantity(quantity), CoerceThreshold(threshold),
		autoList, manualList,
	)
	if err != nil {
		return nil, apperror.StoreUnavailable("create product", err)
	}

	s.notifyProducts(householdID, categoryID)
	s.broadcast(householdID, "product", "created", p.ID)
	return p, nil
}

func (s *Service) GetProduct(householdID, id string) (*model.Product, error) {
	p, err := s.products.GetByID(id)
	if err != nil {
		return nil, apperror.StoreUnavailable("get product", err)
	}
	if p == nil || p.HouseholdID != householdID {
		return nil, apperror.NotFound("product", id)
	}
	return p, nil
}

func (s *Service) ListProducts(householdID, categoryID string) ([]model.Product, error) {
	if _, err := s.GetCategory(householdID, categoryID); err != nil {
		return nil, err
	}
	products, err := s.products.ListByCategory(categoryID)
	if err != nil {
		return nil, apperror.StoreUnavailable("list products", err)
	}
	return products, nil
}

func (s *Service) ListHouseholdProducts(householdID string) ([]model.Product, error) {
	products, err := s.products.ListByHousehold(householdID)
	if err != nil {
		return nil, apperror.StoreUnavailable("list household products", err)
	}
	return products, nil
}

// Product updates are a closed set of typed commands rather than a generic
// field-map merge, so every writable field is validated at this boundary.

func (s *Service) RenameProduct(householdID, id, name string) (*model.Product, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	return s.updateProduct(householdID, id, func(pid string) (*model.Product, error) {
		return s.products.SetName(pid, name)
	})
}

func (s *Service) SetProductQuantity(householdID, id string, quantity any) (*model.Product, error) {
	return s.updateProduct(householdID, id, func(pid string) (*model.Product, error) {
		return s.products.SetQuantity(pid, CoerceQuantity(quantity))
	})
}

func (s *Service) SetProductThreshold(householdID, id string, threshold any) (*model.Product, error) {
	return s.updateProduct(householdID, id, func(pid string) (*model.Product, error) {
		return s.products.SetThreshold(pid, CoerceThreshold(threshold))
	})
}

func (s *Service) SetAutoList(householdID, id string, autoList bool) (*model.Product, error) {
	return s.updateProduct(householdID, id, func(pid string) (*model.Product, error) {
		return s.products.SetAutoList(pid, autoList)
	})
}

func (s *Service) SetManualList(householdID, id string, manualList bool) (*model.Product, error) {
	return s.updateProduct(householdID, id, func(pid string) (*model.Product, error) {
		return s.products.SetManualList(pid, manualList)
	})
}

func (s *Service) updateProduct(householdID, id string, apply func(string) (*model.Product, error)) (*model.Product, error) {
	existing, err := s.GetProduct(householdID, id)
	if err != nil {
		return nil, err
	}

	p, err := apply(id)
	if err != nil {
		return nil, apperror.StoreUnavailable("update product", err)
	}

	s.notifyProducts(householdID, existing.CategoryID)
	s.broadcast(householdID, "product", "updated", id)
	return p, nil
}

func (s *Service) DeleteProduct(householdID, id string) error {
	existing, err := s.GetProduct(householdID, id)
	if err != nil {
		return err
	}

	if err := s.products.Delete(id); err != nil {
		return apperror.StoreUnavailable("delete product", err)
	}

	s.notifyProducts(householdID, existing.CategoryID)
	s.broadcast(householdID, "product", "deleted", id)
	return nil
}

// --- Subscriptions ---

// SubscribeCategories registers fn for a household's category stream. It
// fires once synchronously with the current name-ordered snapshot, then
// after every committed change. The returned function cancels the
// subscription; a fresh subscription restarts the stream with a new
// snapshot. Callbacks run on the mutating goroutine; they must not block
// and must not unsubscribe from inside the callback.
func (s *Service) SubscribeCategories(householdID string, fn func([]model.Category)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Read the snapshot under mu. A commit between an early read and
	// registration would notify before the subscriber exists, leaving it
	// on a stale snapshot until the next unrelated change.
	snapshot, err := s.ListCategories(householdID)
	if err != nil {
		return nil, err
	}

	s.nextSubID++
	id := s.nextSubID
	subs, ok := s.categorySubs[householdID]
	if !ok {
		subs = make(map[int]func([]model.Category))
		s.categorySubs[householdID] = subs
	}
	subs[id] = fn
	fn(snapshot)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.categorySubs[householdID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(s.categorySubs, householdID)
			}
		}
	}, nil
}

// SubscribeProducts is SubscribeCategories scoped to one category's
// products.
func (s *Service) SubscribeProducts(householdID, categoryID string, fn func([]model.Product)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot under mu, same as SubscribeCategories.
	snapshot, err := s.ListProducts(householdID, categoryID)
	if err != nil {
		return nil, err
	}

	key := productStreamKey{householdID: householdID, categoryID: categoryID}
	s.nextSubID++
	id := s.nextSubID
	subs, ok := s.productSubs[key]
	if !ok {
		subs = make(map[int]func([]model.Product))
		s.productSubs[key] = subs
	}
	subs[id] = fn
	fn(snapshot)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.productSubs[key]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(s.productSubs, key)
			}
		}
	}, nil
}

// notifyCategories re-reads the household's categories and delivers the
// snapshot to every subscriber. The read happens under mu so concurrent
// commits cannot reorder deliveries within a stream.
func (s *Service) notifyCategories(householdID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.categorySubs[householdID]
	if len(subs) == 0 {
		return
	}

	snapshot, err := s.categories.ListByHousehold(householdID)
	if err != nil {
		s.logger.Error("category snapshot for subscribers", "household_id", householdID, "error", err)
		return
	}
	for _, fn := range subs {
		fn(snapshot)
	}
}

func (s *Service) notifyProducts(householdID, categoryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := productStreamKey{householdID: householdID, categoryID: categoryID}
	subs := s.productSubs[key]
	if len(subs) == 0 {
		return
	}

	snapshot, err := s.products.ListByCategory(categoryID)
	if err != nil {
		s.logger.Error("product snapshot for subscribers",
			"household_id", householdID, "category_id", categoryID, "error", err)
		return
	}
	for _, fn := range subs {
		fn(snapshot)
	}
}

func (s *Service) broadcast(householdID, entity, action, id string) {
	if s.broadcaster != nil {
		s.broadcaster.EntityChanged(householdID, entity, action, id)
	}
}
