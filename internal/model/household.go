package model

import "time"

type Household struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"invite_code"`
	OwnerUID   string    `json:"owner_uid"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Membership is a user's record of which households they have joined and
// which one is active. HouseholdID is nil when the user has no active
// household and must join or create one before proceeding. InviteCode and
// HouseholdName are a denormalized cache of the active household.
type Membership struct {
	UserUID        string    `json:"user_uid"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	HouseholdID    *string   `json:"household_id"`
	InviteCode     *string   `json:"invite_code"`
	HouseholdName  *string   `json:"household_name"`
	LegacyMigrated bool      `json:"legacy_migrated"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
