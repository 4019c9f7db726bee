// Package store holds the mutation rules for the in-memory persisted
// store: account lifecycle, the ticket state machine, and the bounded
// broadcast/radio logs. Functions here are plain state transitions; the
// mutation coordinator serializes access and the service layer turns the
// results into events.
package store

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nullgrid/nullgrid/internal/models"
)

var identityPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{2,23}$`)

// NormalizeIdentity maps a raw handle to its canonical form. All lookups
// and uniqueness checks happen on normalized identities.
func NormalizeIdentity(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidIdentity reports whether a normalized identity is well-formed.
func ValidIdentity(identity string) bool {
	return identityPattern.MatchString(identity)
}

// User looks up a record by normalized identity.
func User(s *models.PersistedStore, identity string) (*models.UserRecord, bool) {
	u, ok := s.Users[identity]
	return u, ok
}

// CreatePending registers a new identity awaiting approval. The identity
// must be free across active, pending and banned records alike.
func CreatePending(s *models.PersistedStore, identity, displayName string, now time.Time) (*models.UserRecord, error) {
	if _, exists := s.Users[identity]; exists {
		return nil, ErrDuplicateIdentity
	}
	if displayName == "" {
		displayName = identity
	}
	u := &models.UserRecord{
		Identity:    identity,
		DisplayName: displayName,
		Role:        models.RoleOperator,
		Status:      models.StatusPending,
		CreatedAt:   now,
	}
	s.Users[identity] = u
	return u, nil
}

// Approve activates a pending registration as an operator and arms the
// given temporary credential hash. Approving anything but a pending
// record fails with ErrNotPending and has no side effects.
func Approve(s *models.PersistedStore, identity, passwordHash string) (*models.UserRecord, error) {
	u, ok := s.Users[identity]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Status != models.StatusPending {
		return nil, ErrNotPending
	}
	u.Status = models.StatusActive
	u.Role = models.RoleOperator
	u.PasswordHash = passwordHash
	return u, nil
}

// Deny removes a pending registration, freeing the identity.
func Deny(s *models.PersistedStore, identity string) error {
	u, ok := s.Users[identity]
	if !ok {
		return ErrNotFound
	}
	if u.Status != models.StatusPending {
		return ErrNotPending
	}
	delete(s.Users, identity)
	return nil
}

// SetPassword replaces the stored credential hash of an active account.
func SetPassword(s *models.PersistedStore, identity, passwordHash string) (*models.UserRecord, error) {
	u, ok := s.Users[identity]
	if !ok {
		return nil, ErrNotFound
	}
	switch u.Status {
	case models.StatusPending:
		return nil, ErrNotApproved
	case models.StatusBanned:
		return nil, ErrBanned
	}
	u.PasswordHash = passwordHash
	return u, nil
}

// SetBan flips the banned status of an account. The admin record is
// protected; locking out the only admin would strand the grid.
func SetBan(s *models.PersistedStore, identity string, banned bool) (*models.UserRecord, error) {
	u, ok := s.Users[identity]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Role == models.RoleAdmin {
		return nil, ErrProtectedIdentity
	}
	if u.Status == models.StatusPending {
		return nil, ErrNotPending
	}
	if banned {
		u.Status = models.StatusBanned
	} else {
		u.Status = models.StatusActive
	}
	return u, nil
}

// UpdateProfile applies a partial profile patch.
func UpdateProfile(s *models.PersistedStore, identity string, patch models.ProfilePatch) (*models.UserRecord, error) {
	u, ok := s.Users[identity]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.Clearance != nil {
		u.Clearance = *patch.Clearance
	}
	if patch.Department != nil {
		u.Department = *patch.Department
	}
	if patch.Title != nil {
		u.Title = *patch.Title
	}
	return u, nil
}

// EnsureAdmin provisions the single admin record on first boot. If the
// admin already exists its credential hash is refreshed from deployment
// config; a second identity can never claim the admin role.
func EnsureAdmin(s *models.PersistedStore, identity, displayName, passwordHash string, now time.Time) (*models.UserRecord, error) {
	for _, u := range s.Users {
		if u.Role == models.RoleAdmin && u.Identity != identity {
			return nil, ErrDuplicateIdentity
		}
	}
	u, ok := s.Users[identity]
	if !ok {
		u = &models.UserRecord{
			Identity:    identity,
			DisplayName: displayName,
			Role:        models.RoleAdmin,
			Status:      models.StatusActive,
			CreatedAt:   now,
		}
		s.Users[identity] = u
	}
	if u.Role != models.RoleAdmin {
		return nil, ErrDuplicateIdentity
	}
	u.Status = models.StatusActive
	u.PasswordHash = passwordHash
	return u, nil
}

// PendingUsers lists registrations awaiting approval, oldest first.
func PendingUsers(s *models.PersistedStore) []models.Profile {
	var out []models.Profile
	for _, u := range s.Users {
		if u.Status == models.StatusPending {
			out = append(out, u.Profile())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// AllUsers lists every record sorted by identity.
func AllUsers(s *models.PersistedStore) []models.Profile {
	out := make([]models.Profile, 0, len(s.Users))
	for _, u := range s.Users {
		out = append(out, u.Profile())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// StalePending returns identities of pending registrations created before
// the cutoff. Used by the scheduled sweep.
func StalePending(s *models.PersistedStore, cutoff time.Time) []string {
	var out []string
	for _, u := range s.Users {
		if u.Status == models.StatusPending && u.CreatedAt.Before(cutoff) {
			out = append(out, u.Identity)
		}
	}
	sort.Strings(out)
	return out
}
