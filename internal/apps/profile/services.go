package profile

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
)

type Service struct {
	store           *kv.Store
	defaultLanguage string
}

func NewService(store *kv.Store, defaultLanguage string) *Service {
	if defaultLanguage == "" {
		defaultLanguage = "Русский"
	}
	return &Service{store: store, defaultLanguage: defaultLanguage}
}

// Default is what a never-written profile reads as.
func (s *Service) Default(userID string) Profile {
	return Profile{UserID: userID, Language: s.defaultLanguage}
}

// Get returns the stored profile, or the default and false when the user
// has none yet. Reading never creates the record.
func (s *Service) Get(ctx context.Context, userID string) (Profile, bool, error) {
	p := s.Default(userID)
	found, err := s.store.Get(ctx, kv.ProfileKey(userID), &p)
	if err != nil {
		return Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	p.UserID = userID
	return p, found, nil
}

// Update merges upd into the stored profile. Karma and HasSubscription are
// only applied when privileged is true.
func (s *Service) Update(ctx context.Context, userID string, upd Update, privileged bool) (Profile, error) {
	if userID == "" {
		return Profile{}, apperr.Invalid("User ID is required")
	}
	if err := validate(upd); err != nil {
		return Profile{}, err
	}

	var out Profile
	err := s.store.Transaction(ctx, func(tx *kv.Store) error {
		p, err := s.lockTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		if upd.FirstName != nil {
			p.FirstName = strings.TrimSpace(*upd.FirstName)
		}
		if upd.LastName != nil {
			p.LastName = strings.TrimSpace(*upd.LastName)
		}
		if upd.City != nil {
			p.City = strings.TrimSpace(*upd.City)
		}
		if upd.Language != nil {
			p.Language = strings.TrimSpace(*upd.Language)
			if p.Language == "" {
				p.Language = s.defaultLanguage
			}
		}
		if privileged {
			if upd.Karma != nil {
				p.Karma = *upd.Karma
			}
			if upd.HasSubscription != nil {
				p.HasSubscription = *upd.HasSubscription
			}
		}

		if err := s.saveTx(ctx, tx, &p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Profile{}, err
	}
	return out, nil
}

// AdjustKarmaTx adds delta to the profile's karma inside tx and returns the
// new total. The profile row stays locked until tx ends.
func (s *Service) AdjustKarmaTx(ctx context.Context, tx *kv.Store, userID string, delta int) (int, error) {
	p, err := s.lockTx(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if delta == 0 {
		return p.Karma, nil
	}
	p.Karma += delta
	if err := s.saveTx(ctx, tx, &p); err != nil {
		return 0, err
	}
	return p.Karma, nil
}

// AddDonationTx adds amount to the profile's donation total inside tx.
func (s *Service) AddDonationTx(ctx context.Context, tx *kv.Store, userID string, amount float64) (float64, error) {
	p, err := s.lockTx(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	p.TotalDonations += amount
	if err := s.saveTx(ctx, tx, &p); err != nil {
		return 0, err
	}
	return p.TotalDonations, nil
}

// SetSubscription flips the subscription gate for userID.
func (s *Service) SetSubscription(ctx context.Context, userID string, active bool) error {
	return s.store.Transaction(ctx, func(tx *kv.Store) error {
		p, err := s.lockTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if p.HasSubscription == active {
			return nil
		}
		p.HasSubscription = active
		return s.saveTx(ctx, tx, &p)
	})
}

// SetKarmaTx overwrites the karma total. Used by reconciliation.
func (s *Service) SetKarmaTx(ctx context.Context, tx *kv.Store, userID string, karma int) error {
	p, err := s.lockTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	p.Karma = karma
	return s.saveTx(ctx, tx, &p)
}

// lockTx creates the profile if missing and returns it with its row locked.
func (s *Service) lockTx(ctx context.Context, tx *kv.Store, userID string) (Profile, error) {
	key := kv.ProfileKey(userID)
	if _, err := tx.SetIfAbsent(ctx, key, s.Default(userID)); err != nil {
		return Profile{}, fmt.Errorf("create profile: %w", err)
	}
	p := s.Default(userID)
	if _, err := tx.GetForUpdate(ctx, key, &p); err != nil {
		return Profile{}, fmt.Errorf("lock profile: %w", err)
	}
	p.UserID = userID
	return p, nil
}

func (s *Service) saveTx(ctx context.Context, tx *kv.Store, p *Profile) error {
	now := time.Now().UTC()
	p.UpdatedAt = &now
	if err := tx.Set(ctx, kv.ProfileKey(p.UserID), p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func validate(upd Update) error {
	fields := map[string]*string{
		"firstName": upd.FirstName,
		"lastName":  upd.LastName,
		"city":      upd.City,
		"language":  upd.Language,
	}
	for name, v := range fields {
		if v != nil && utf8.RuneCountInString(*v) > maxFieldLength {
			return apperr.Newf(apperr.InvalidArgument, "%s must be at most %d characters", name, maxFieldLength)
		}
	}
	return nil
}
