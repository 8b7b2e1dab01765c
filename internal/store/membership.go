package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hogarlabs/despensa/internal/model"
)

type MembershipStore struct {
	db *sql.DB
}

func NewMembershipStore(db *sql.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

func scanMembership(scanner interface{ Scan(...any) error }) (*model.Membership, error) {
	var m model.Membership
	var householdID, inviteCode, householdName sql.NullString
	var migrated int

	err := scanner.Scan(
		&m.UserUID, &m.Email, &m.DisplayName, &householdID, &inviteCode,
		&householdName, &migrated, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.LegacyMigrated = migrated != 0
	if householdID.Valid {
		m.HouseholdID = &householdID.String
	}
	if inviteCode.Valid {
		m.InviteCode = &inviteCode.String
	}
	if householdName.Valid {
		m.HouseholdName = &householdName.String
	}
	return &m, nil
}

const membershipCols = `user_uid, email, display_name, household_id, invite_code, household_name, legacy_migrated, created_at, updated_at`

// Upsert creates or refreshes the profile fields of a membership without
// touching its household assignment. Two devices racing through a first
// sign-in both land here safely; the active household is settled separately
// by ClaimActive.
func (s *MembershipStore) Upsert(uid, email, displayName string) (*model.Membership, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO memberships (user_uid, email, display_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_uid) DO UPDATE SET
		   email = excluded.email,
		   display_name = excluded.display_name,
		   updated_at = excluded.updated_at`,
		uid, email, displayName, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert membership: %w", err)
	}
	return s.Get(uid)
}

func (s *MembershipStore) Get(uid string) (*model.Membership, error) {
	row := s.db.QueryRow(`SELECT `+membershipCols+` FROM memberships WHERE user_uid = ?`, uid)
	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// ClaimActive assigns the household as active only if the membership has
// none yet. It returns false when another writer already claimed one, in
// which case the caller must re-read and adopt the winner's household.
func (s *MembershipStore) ClaimActive(uid, householdID, inviteCode, householdName string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE memberships SET household_id = ?, invite_code = ?, household_name = ?, updated_at = ?
		 WHERE user_uid = ? AND household_id IS NULL`,
		householdID, inviteCode, householdName, time.Now().UTC(), uid,
	)
	if err != nil {
		return false, fmt.Errorf("claim active household: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// SetActive switches the active household unconditionally (join-by-code and
// create-additional flows).
func (s *MembershipStore) SetActive(uid, householdID, inviteCode, householdName string) error {
	_, err := s.db.Exec(
		`UPDATE memberships SET household_id = ?, invite_code = ?, household_name = ?, updated_at = ?
		 WHERE user_uid = ?`,
		householdID, inviteCode, householdName, time.Now().UTC(), uid,
	)
	if err != nil {
		return fmt.Errorf("set active household: %w", err)
	}
	return nil
}

// AddHousehold appends a household to the membership set. Joining the same
// household twice is a no-op, not an error.
func (s *MembershipStore) AddHousehold(uid, householdID string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO membership_households (user_uid, household_id, created_at) VALUES (?, ?, ?)`,
		uid, householdID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add membership household: %w", err)
	}
	return nil
}

// ListHouseholds returns every household in the user's membership set,
// ordered by name.
func (s *MembershipStore) ListHouseholds(uid string) ([]model.Household, error) {
	rows, err := s.db.Query(
		`SELECT h.id, h.name, h.invite_code, h.owner_uid, h.created_at, h.updated_at
		 FROM households h
		 JOIN membership_households mh ON h.id = mh.household_id
		 WHERE mh.user_uid = ?
		 ORDER BY h.name ASC`,
		uid,
	)
	if err != nil {
		return nil, fmt.Errorf("list membership households: %w", err)
	}
	defer rows.Close()

	var households []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	return households, rows.Err()
}

func (s *MembershipStore) SetLegacyMigrated(uid string) error {
	_, err := s.db.Exec(
		`UPDATE memberships SET legacy_migrated = 1, updated_at = ? WHERE user_uid = ?`,
		time.Now().UTC(), uid,
	)
	if err != nil {
		return fmt.Errorf("set legacy migrated: %w", err)
	}
	return nil
}
