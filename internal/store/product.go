package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/hogarlabs/despensa/internal/model"
)

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var autoList, manualList int

	err := scanner.Scan(
		&p.ID, &p.HouseholdID, &p.CategoryID, &p.Name, &p.Quantity,
		&p.Threshold, &autoList, &manualList, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.AutoList = autoList != 0
	p.ManualList = manualList != 0
	return &p, nil
}

const productCols = `id, household_id, category_id, name, quantity, threshold, auto_list, manual_list, created_at, updated_at`

func (s *ProductStore) Create(householdID, categoryID, name string, quantity, threshold int, autoList, manualList bool) (*model.Product, error) {
	id := xid.New().String()
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO products (id, household_id, category_id, name, quantity, threshold, auto_list, manual_list, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, householdID, categoryID, name, quantity, threshold, boolToInt(autoList), boolToInt(manualList), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProductStore) GetByID(id string) (*model.Product, error) {
	row := s.db.QueryRow(`SELECT `+productCols+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *ProductStore) ListByCategory(categoryID string) ([]model.Product, error) {
	rows, err := s.db.Query(
		`SELECT `+productCols+` FROM products WHERE category_id = ? ORDER BY name ASC`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list products by category: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *ProductStore) ListByHousehold(householdID string) ([]model.Product, error) {
	rows, err := s.db.Query(
		`SELECT `+productCols+` FROM products WHERE household_id = ? ORDER BY name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list products by household: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *ProductStore) SetName(id, name string) (*model.Product, error) {
	return s.set(id, `name = ?`, name)
}

func (s *ProductStore) SetQuantity(id string, quantity int) (*model.Product, error) {
	return s.set(id, `quantity = ?`, quantity)
}

func (s *ProductStore) SetThreshold(id string, threshold int) (*model.Product, error) {
	return s.set(id, `threshold = ?`, threshold)
}

func (s *ProductStore) SetAutoList(id string, autoList bool) (*model.Product, error) {
	return s.set(id, `auto_list = ?`, boolToInt(autoList))
}

func (s *ProductStore) SetManualList(id string, manualList bool) (*model.Product, error) {
	return s.set(id, `manual_list = ?`, boolToInt(manualList))
}

func (s *ProductStore) set(id, assignment string, value any) (*model.Product, error) {
	_, err := s.db.Exec(
		`UPDATE products SET `+assignment+`, updated_at = ? WHERE id = ?`,
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProductStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// DeleteByCategory removes every product in a category and reports how many
// rows went away. Safe to retry: a repeat run deletes zero rows.
func (s *ProductStore) DeleteByCategory(categoryID string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM products WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("delete products by category: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
