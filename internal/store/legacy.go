package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/hogarlabs/despensa/internal/model"
)

// LegacyStore reads the pre-household inventory tables that the migration
// worker imports from. Writes exist only so deployments can stage data for
// import (and for tests).
type LegacyStore struct {
	db *sql.DB
}

func NewLegacyStore(db *sql.DB) *LegacyStore {
	return &LegacyStore{db: db}
}

func scanLegacyCategory(scanner interface{ Scan(...any) error }) (*model.LegacyCategory, error) {
	var c model.LegacyCategory
	var owner sql.NullString
	err := scanner.Scan(&c.ID, &c.Name, &owner, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if owner.Valid {
		c.OwnerUID = &owner.String
	}
	return &c, nil
}

func scanLegacyProduct(scanner interface{ Scan(...any) error }) (*model.LegacyProduct, error) {
	var p model.LegacyProduct
	var owner sql.NullString
	var autoList, manualList int
	err := scanner.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Quantity, &p.Threshold,
		&autoList, &manualList, &owner, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.AutoList = autoList != 0
	p.ManualList = manualList != 0
	if owner.Valid {
		p.OwnerUID = &owner.String
	}
	return &p, nil
}

func (s *LegacyStore) ListCategories() ([]model.LegacyCategory, error) {
	rows, err := s.db.Query(`SELECT id, name, owner_uid, created_at FROM legacy_categories ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list legacy categories: %w", err)
	}
	defer rows.Close()

	var categories []model.LegacyCategory
	for rows.Next() {
		c, err := scanLegacyCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan legacy category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *LegacyStore) ListProducts() ([]model.LegacyProduct, error) {
	rows, err := s.db.Query(
		`SELECT id, category_id, name, quantity, threshold, auto_list, manual_list, owner_uid, created_at
		 FROM legacy_products ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list legacy products: %w", err)
	}
	defer rows.Close()

	var products []model.LegacyProduct
	for rows.Next() {
		p, err := scanLegacyProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan legacy product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *LegacyStore) CreateCategory(name string, ownerUID *string, createdAt time.Time) (*model.LegacyCategory, error) {
	id := xid.New().String()
	var owner sql.NullString
	if ownerUID != nil {
		owner = sql.NullString{String: *ownerUID, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO legacy_categories (id, name, owner_uid, created_at) VALUES (?, ?, ?, ?)`,
		id, name, owner, createdAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert legacy category: %w", err)
	}
	row := s.db.QueryRow(`SELECT id, name, owner_uid, created_at FROM legacy_categories WHERE id = ?`, id)
	return scanLegacyCategory(row)
}

func (s *LegacyStore) CreateProduct(categoryID, name string, quantity, threshold int, autoList, manualList bool, ownerUID *string, createdAt time.Time) (*model.LegacyProduct, error) {
	id := xid.New().String()
	var owner sql.NullString
	if ownerUID != nil {
		owner = sql.NullString{String: *ownerUID, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO legacy_products (id, category_id, name, quantity, threshold, auto_list, manual_list, owner_uid, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, categoryID, name, quantity, threshold, boolToInt(autoList), boolToInt(manualList), owner, createdAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert legacy product: %w", err)
	}
	row := s.db.QueryRow(
		`SELECT id, category_id, name, quantity, threshold, auto_list, manual_list, owner_uid, created_at
		 FROM legacy_products WHERE id = ?`, id)
	return scanLegacyProduct(row)
}
