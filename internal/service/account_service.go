package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nullgrid/nullgrid/internal/auth"
	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/store"
)

// AccountService covers the admin-side account lifecycle plus profile
// self-service.
type AccountService struct {
	co     *coordinator.Coordinator
	pepper string
	log    *slog.Logger
}

// NewAccountService creates the account service.
func NewAccountService(co *coordinator.Coordinator, pepper string, log *slog.Logger) *AccountService {
	if log == nil {
		log = slog.Default()
	}
	return &AccountService{co: co, pepper: pepper, log: log}
}

// Approve activates a pending registration. It returns the activated
// profile and a one-time temporary secret for the admin to hand to the
// operator out of band; only its hash is stored.
func (s *AccountService) Approve(ctx context.Context, rawIdentity string) (models.Profile, string, error) {
	identity := store.NormalizeIdentity(rawIdentity)

	tempSecret, err := auth.GenerateTempSecret()
	if err != nil {
		return models.Profile{}, "", err
	}
	// Hash ahead of submission; argon2 must not run on the coordinator.
	tempHash, err := auth.HashSecret(tempSecret, s.pepper)
	if err != nil {
		return models.Profile{}, "", err
	}

	var profile models.Profile
	err = s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		u, err := store.Approve(st.Store, identity, tempHash)
		if err != nil {
			return coordinator.Result{}, err
		}
		profile = u.Profile()
		return coordinator.Result{
			Dirty: true,
			Events: []events.Event{
				{Kind: events.KindUserApproved, Payload: profile, Audience: events.Admins()},
			},
		}, nil
	})
	if err != nil {
		return models.Profile{}, "", err
	}
	s.log.Info("registration approved", "identity", identity)
	return profile, tempSecret, nil
}

// Deny discards a pending registration and frees the identity.
func (s *AccountService) Deny(ctx context.Context, rawIdentity string) error {
	identity := store.NormalizeIdentity(rawIdentity)
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		if err := store.Deny(st.Store, identity); err != nil {
			return coordinator.Result{}, err
		}
		return coordinator.Result{Dirty: true}, nil
	})
	if err == nil {
		s.log.Info("registration denied", "identity", identity)
	}
	return err
}

// SetPassword replaces an account's secret.
func (s *AccountService) SetPassword(ctx context.Context, rawIdentity, secret string) error {
	identity := store.NormalizeIdentity(rawIdentity)
	if len(secret) < 8 {
		return fmt.Errorf("%w: secret must be at least 8 characters", ErrValidation)
	}
	hash, err := auth.HashSecret(secret, s.pepper)
	if err != nil {
		return err
	}
	return s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		if _, err := store.SetPassword(st.Store, identity, hash); err != nil {
			return coordinator.Result{}, err
		}
		return coordinator.Result{Dirty: true}, nil
	})
}

// SetBan bans or reinstates an account. Banning cuts every live session
// of the identity; their connections observe the closed outbox and drop.
func (s *AccountService) SetBan(ctx context.Context, rawIdentity string, banned bool) (models.Profile, error) {
	identity := store.NormalizeIdentity(rawIdentity)

	var profile models.Profile
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		u, err := store.SetBan(st.Store, identity, banned)
		if err != nil {
			return coordinator.Result{}, err
		}
		profile = u.Profile()
		res := coordinator.Result{Dirty: true}
		if banned {
			wasOnline := st.Sessions.IsOnline(identity)
			st.Sessions.CloseAll(identity)
			res.Events = append(res.Events, events.Event{
				Kind:     events.KindUserBanned,
				Payload:  profile,
				Audience: events.Admins(),
			})
			if wasOnline {
				res.Events = append(res.Events, events.Event{
					Kind:     events.KindUserOffline,
					Payload:  map[string]string{"identity": identity},
					Audience: events.Everyone(),
				})
			}
		}
		return res, nil
	})
	if err != nil {
		return models.Profile{}, err
	}
	s.log.Info("ban status changed", "identity", identity, "banned", banned)
	return profile, nil
}

// UpdateProfile applies a partial patch to the mutable profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, rawIdentity string, patch models.ProfilePatch) (models.Profile, error) {
	identity := store.NormalizeIdentity(rawIdentity)
	if patch.DisplayName != nil {
		name, err := cleanText("display name", *patch.DisplayName, maxNameLen)
		if err != nil {
			return models.Profile{}, err
		}
		patch.DisplayName = &name
	}
	if patch.Department != nil {
		dept, err := cleanText("department", *patch.Department, maxNameLen)
		if err != nil {
			return models.Profile{}, err
		}
		patch.Department = &dept
	}
	if patch.Title != nil {
		title, err := cleanText("title", *patch.Title, maxNameLen)
		if err != nil {
			return models.Profile{}, err
		}
		patch.Title = &title
	}
	if patch.Clearance != nil && (*patch.Clearance < 0 || *patch.Clearance > 10) {
		return models.Profile{}, fmt.Errorf("%w: clearance must be between 0 and 10", ErrValidation)
	}

	var profile models.Profile
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		u, err := store.UpdateProfile(st.Store, identity, patch)
		if err != nil {
			return coordinator.Result{}, err
		}
		profile = u.Profile()
		return coordinator.Result{Dirty: true}, nil
	})
	return profile, err
}

// Users lists every account.
func (s *AccountService) Users(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	err := s.co.View(ctx, func(st *coordinator.State) error {
		out = store.AllUsers(st.Store)
		return nil
	})
	return out, err
}

// PendingUsers lists registrations awaiting approval, oldest first.
func (s *AccountService) PendingUsers(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	err := s.co.View(ctx, func(st *coordinator.State) error {
		out = store.PendingUsers(st.Store)
		return nil
	})
	return out, err
}

// ExpireStalePending removes pending registrations older than maxAge.
// Returns how many were swept; used by the scheduled maintenance job.
func (s *AccountService) ExpireStalePending(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	var swept int
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		stale := store.StalePending(st.Store, cutoff)
		for _, identity := range stale {
			if err := store.Deny(st.Store, identity); err != nil {
				return coordinator.Result{}, err
			}
		}
		swept = len(stale)
		return coordinator.Result{Dirty: swept > 0}, nil
	})
	if err == nil && swept > 0 {
		s.log.Info("expired stale registrations", "count", swept)
	}
	return swept, err
}
