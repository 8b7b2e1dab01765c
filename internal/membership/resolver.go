// Package membership resolves an authenticated identity to its household.
// It owns first-sign-in household creation, join-by-code, multi-household
// selection, and the one-time trigger of the legacy import.
package membership

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hogarlabs/despensa/internal/apperror"
	"github.com/hogarlabs/despensa/internal/invite"
	"github.com/hogarlabs/despensa/internal/migrate"
	"github.com/hogarlabs/despensa/internal/model"
	"github.com/hogarlabs/despensa/internal/store"
)

// Identity is what the external auth provider hands us. The UID is the only
// field this package relies on; email and display name are carried along
// for the membership profile.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Status describes the resolved membership. NeedsChoice means the caller
// must confirm, join, or create a household before inventory operations
// proceed.
type Status struct {
	HouseholdID   string          `json:"household_id,omitempty"`
	InviteCode    string          `json:"invite_code,omitempty"`
	HouseholdName string          `json:"household_name,omitempty"`
	NeedsChoice   bool            `json:"needs_choice"`
	Migration     *migrate.Result `json:"migration,omitempty"`
}

// Migrator runs the legacy import. Satisfied by *migrate.Worker.
type Migrator interface {
	Run(userUID, householdID string) migrate.Result
}

type Resolver struct {
	households  *store.HouseholdStore
	memberships *store.MembershipStore
	migrator    Migrator
	logger      *slog.Logger
}

func NewResolver(hs *store.HouseholdStore, ms *store.MembershipStore, m Migrator, logger *slog.Logger) *Resolver {
	return &Resolver{
		households:  hs,
		memberships: ms,
		migrator:    m,
		logger:      logger,
	}
}

// Ensure is idempotent and safe to call on every session restore. The
// freshSignIn flag marks an explicit new sign-in (as opposed to an
// auth-state refresh): a returning user with an active household is then
// pushed back through the choice gate so they can confirm or switch.
//
// Two devices racing through a first sign-in both end up here; the active
// household is settled by an atomic conditional claim, so the loser adopts
// the winner's household instead of overwriting it.
func (r *Resolver) Ensure(id Identity, joinCode, householdName string, freshSignIn bool) (*Status, error) {
	if id.UID == "" {
		return nil, apperror.NoActiveSession()
	}

	existing, err := r.memberships.Get(id.UID)
	if err != nil {
		return nil, apperror.StoreUnavailable("get membership", err)
	}

	m, err := r.memberships.Upsert(id.UID, id.Email, id.DisplayName)
	if err != nil {
		return nil, apperror.StoreUnavailable("upsert membership", err)
	}

	if m.HouseholdID != nil {
		status := statusFromMembership(m)
		status.NeedsChoice = freshSignIn
		status.Migration = r.runLegacyImport(id.UID, *m.HouseholdID, m.LegacyMigrated)
		return status, nil
	}

	// A membership that lost its active household (schema reset, partial
	// migration) never defaults silently: the user must choose.
	if existing != nil && joinCode == "" {
		return &Status{NeedsChoice: true}, nil
	}

	household, created, err := r.resolveOrCreate(id, joinCode, householdName)
	if err != nil {
		return nil, err
	}

	claimed, err := r.memberships.ClaimActive(id.UID, household.ID, household.InviteCode, household.Name)
	if err != nil {
		return nil, apperror.StoreUnavailable("claim active household", err)
	}

	if !claimed {
		// Another device won the race. Release anything we created and
		// adopt the winner's household.
		if created {
			if err := r.households.DeleteIfEmpty(household.ID); err != nil {
				r.logger.Warn("release unclaimed household", "household_id", household.ID, "error", err)
			}
		}
		m, err = r.memberships.Get(id.UID)
		if err != nil {
			return nil, apperror.StoreUnavailable("reread membership", err)
		}
		if m == nil || m.HouseholdID == nil {
			return nil, apperror.StoreUnavailable("reread membership", fmt.Errorf("lost claim but no active household for %s", id.UID))
		}
		if err := r.memberships.AddHousehold(id.UID, *m.HouseholdID); err != nil {
			return nil, apperror.StoreUnavailable("append membership set", err)
		}
		status := statusFromMembership(m)
		status.Migration = r.runLegacyImport(id.UID, *m.HouseholdID, m.LegacyMigrated)
		return status, nil
	}

	if err := r.memberships.AddHousehold(id.UID, household.ID); err != nil {
		return nil, apperror.StoreUnavailable("append membership set", err)
	}
	if created {
		if err := r.households.SeedDefaults(household.ID); err != nil {
			// Starter categories are a convenience; the household works
			// without them.
			r.logger.Warn("seed starter categories", "household_id", household.ID, "error", err)
		}
	}

	return &Status{
		HouseholdID:   household.ID,
		InviteCode:    household.InviteCode,
		HouseholdName: household.Name,
		Migration:     r.runLegacyImport(id.UID, household.ID, m.LegacyMigrated),
	}, nil
}

// runLegacyImport fires the legacy import the first time an identity
// resolves to an active household, then latches the flag so later
// resolutions skip it. A failed run leaves the flag unset and will retry
// on the next resolution. Manual re-trigger remains available via
// MigrateNow.
func (r *Resolver) runLegacyImport(uid, householdID string, alreadyMigrated bool) *migrate.Result {
	if alreadyMigrated {
		return nil
	}

	result := r.migrator.Run(uid, householdID)
	if result.OK {
		if err := r.memberships.SetLegacyMigrated(uid); err != nil {
			r.logger.Error("set migration flag", "user_uid", uid, "error", err)
		}
	}
	return &result
}

func (r *Resolver) resolveOrCreate(id Identity, joinCode, householdName string) (h *model.Household, created bool, err error) {
	if code := invite.Normalize(joinCode); code != "" {
		h, err := r.households.GetByCode(code)
		if err != nil {
			return nil, false, apperror.StoreUnavailable("resolve invite code", err)
		}
		if h == nil {
			return nil, false, apperror.InvalidCode(code)
		}
		return h, false, nil
	}

	h, err = r.households.Create(id.UID, defaultHouseholdName(householdName, id.DisplayName))
	if err != nil {
		return nil, false, apperror.StoreUnavailable("create household", err)
	}
	return h, true, nil
}

func defaultHouseholdName(requested, displayName string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	if displayName != "" {
		return "Hogar de " + displayName
	}
	return "Mi Hogar"
}

// JoinByCode switches the active household to the one the code resolves to
// and appends it to the membership set. Prior memberships are kept.
func (r *Resolver) JoinByCode(uid, code string) (*model.Household, error) {
	if uid == "" {
		return nil, apperror.NoActiveSession()
	}

	m, err := r.memberships.Get(uid)
	if err != nil {
		return nil, apperror.StoreUnavailable("get membership", err)
	}
	if m == nil {
		return nil, apperror.NotFound("membership", uid)
	}

	normalized := invite.Normalize(code)
	h, err := r.households.GetByCode(normalized)
	if err != nil {
		return nil, apperror.StoreUnavailable("resolve invite code", err)
	}
	if h == nil {
		return nil, apperror.InvalidCode(normalized)
	}

	if err := r.memberships.SetActive(uid, h.ID, h.InviteCode, h.Name); err != nil {
		return nil, apperror.StoreUnavailable("set active household", err)
	}
	if err := r.memberships.AddHousehold(uid, h.ID); err != nil {
		return nil, apperror.StoreUnavailable("append membership set", err)
	}
	return h, nil
}

// CreateAdditional always creates a fresh household (never joins), assigns
// it as active, and appends it to the membership set.
func (r *Resolver) CreateAdditional(uid, name string) (*model.Household, error) {
	if uid == "" {
		return nil, apperror.NoActiveSession()
	}

	m, err := r.memberships.Get(uid)
	if err != nil {
		return nil, apperror.StoreUnavailable("get membership", err)
	}
	if m == nil {
		return nil, apperror.NotFound("membership", uid)
	}

	h, err := r.households.Create(uid, defaultHouseholdName(name, m.DisplayName))
	if err != nil {
		return nil, apperror.StoreUnavailable("create household", err)
	}

	if err := r.memberships.SetActive(uid, h.ID, h.InviteCode, h.Name); err != nil {
		return nil, apperror.StoreUnavailable("set active household", err)
	}
	if err := r.memberships.AddHousehold(uid, h.ID); err != nil {
		return nil, apperror.StoreUnavailable("append membership set", err)
	}
	if err := r.households.SeedDefaults(h.ID); err != nil {
		r.logger.Warn("seed starter categories", "household_id", h.ID, "error", err)
	}
	return h, nil
}

// ConfirmCurrent acknowledges the active household without changing it,
// clearing the choice gate. Confirming with no active household is an
// error: there is nothing to confirm.
func (r *Resolver) ConfirmCurrent(uid string) (*Status, error) {
	if uid == "" {
		return nil, apperror.NoActiveSession()
	}

	m, err := r.memberships.Get(uid)
	if err != nil {
		return nil, apperror.StoreUnavailable("get membership", err)
	}
	if m == nil || m.HouseholdID == nil {
		return nil, apperror.InvalidInput("household", "no active household to confirm")
	}
	return statusFromMembership(m), nil
}

// Current returns the resolved state without side effects.
func (r *Resolver) Current(uid string) (*Status, error) {
	if uid == "" {
		return nil, apperror.NoActiveSession()
	}

	m, err := r.memberships.Get(uid)
	if err != nil {
		return nil, apperror.StoreUnavailable("get membership", err)
	}
	if m == nil {
		return nil, apperror.NotFound("membership", uid)
	}
	s := statusFromMembership(m)
	s.NeedsChoice = m.HouseholdID == nil
	return s, nil
}

// Households lists the user's full membership set.
func (r *Resolver) Households(uid string) ([]model.Household, error) {
	if uid == "" {
		return nil, apperror.NoActiveSession()
	}
	households, err := r.memberships.ListHouseholds(uid)
	if err != nil {
		return nil, apperror.StoreUnavailable("list households", err)
	}
	return households, nil
}

// MigrateNow re-triggers the legacy import manually against the active
// household, regardless of the migration flag.
func (r *Resolver) MigrateNow(uid string) (*migrate.Result, error) {
	if uid == "" {
		return nil, apperror.NoActiveSession()
	}

	m, err := r.memberships.Get(uid)
	if err != nil {
		return nil, apperror.StoreUnavailable("get membership", err)
	}
	if m == nil || m.HouseholdID == nil {
		return nil, apperror.InvalidInput("household", "no active household to migrate into")
	}

	result := r.migrator.Run(uid, *m.HouseholdID)
	if result.OK && !m.LegacyMigrated {
		if err := r.memberships.SetLegacyMigrated(uid); err != nil {
			r.logger.Error("set migration flag", "user_uid", uid, "error", err)
		}
	}
	return &result, nil
}

func statusFromMembership(m *model.Membership) *Status {
	s := &Status{}
	if m.HouseholdID != nil {
		s.HouseholdID = *m.HouseholdID
	}
	if m.InviteCode != nil {
		s.InviteCode = *m.InviteCode
	}
	if m.HouseholdName != nil {
		s.HouseholdName = *m.HouseholdName
	}
	return s
}
