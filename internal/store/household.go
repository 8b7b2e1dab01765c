package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/hogarlabs/despensa/internal/invite"
	"github.com/hogarlabs/despensa/internal/model"
)

// maxCodeAttempts bounds the invite-code retry loop. Codes are six characters
// over a 36-symbol alphabet, so consecutive collisions are vanishingly rare;
// hitting the bound means something is wrong with the randomness source.
const maxCodeAttempts = 10

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.InviteCode, &h.OwnerUID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const householdCols = `id, name, invite_code, owner_uid, created_at, updated_at`

// Create allocates a household with a freshly generated invite code. The
// unique index on invite_code is the uniqueness authority: on collision the
// insert fails and we retry with a new candidate, so no two households can
// ever share a code at the moment of successful creation.
func (s *HouseholdStore) Create(ownerUID, name string) (*model.Household, error) {
	id := xid.New().String()
	now := time.Now().UTC()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := invite.Generate()
		if err != nil {
			return nil, err
		}

		_, err = s.db.Exec(
			`INSERT INTO households (id, name, invite_code, owner_uid, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, name, code, ownerUID, now, now,
		)
		if err == nil {
			return s.GetByID(id)
		}
		if isUniqueViolation(err) {
			continue
		}
		return nil, fmt.Errorf("insert household: %w", err)
	}
	return nil, fmt.Errorf("insert household: could not allocate a unique invite code after %d attempts", maxCodeAttempts)
}

func (s *HouseholdStore) GetByID(id string) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// GetByCode resolves an invite code to its household. The code is trimmed
// and uppercased before the point lookup on the invite_code index; a miss
// returns (nil, nil) because callers treat it as a valid negative result.
func (s *HouseholdStore) GetByCode(code string) (*model.Household, error) {
	normalized := invite.Normalize(code)
	if normalized == "" {
		return nil, nil
	}

	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE invite_code = ?`, normalized)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household by code: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) GetName(id string) (string, error) {
	var name string
	err := s.db.QueryRow(`SELECT name FROM households WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get household name: %w", err)
	}
	return name, nil
}

func (s *HouseholdStore) CountAll() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM households`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count households: %w", err)
	}
	return n, nil
}

// DeleteIfEmpty removes a household only if no membership references it and
// it owns no inventory. Used to release the household created by the loser
// of a concurrent first-sign-in race.
func (s *HouseholdStore) DeleteIfEmpty(id string) error {
	_, err := s.db.Exec(
		`DELETE FROM households WHERE id = ?
		   AND NOT EXISTS (SELECT 1 FROM memberships WHERE household_id = ?)
		   AND NOT EXISTS (SELECT 1 FROM membership_households WHERE household_id = ?)
		   AND NOT EXISTS (SELECT 1 FROM categories WHERE household_id = ?)`,
		id, id, id, id,
	)
	if err != nil {
		return fmt.Errorf("delete empty household: %w", err)
	}
	return nil
}

// SeedDefaults inserts the starter categories for a new household in a
// single transaction.
func (s *HouseholdStore) SeedDefaults(householdID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	names := []string{"Despensa", "Nevera", "Congelador", "Limpieza", "Baño"}
	for _, name := range names {
		if _, err := tx.Exec(
			`INSERT INTO categories (id, household_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			xid.New().String(), householdID, name, now, now,
		); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}

	return tx.Commit()
}

// isUniqueViolation reports whether err is a SQLite unique-constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
