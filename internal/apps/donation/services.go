package donation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/profile"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
)

type Service struct {
	store    *kv.Store
	profiles *profile.Service
	now      func() time.Time
}

func NewService(store *kv.Store, profiles *profile.Service) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Record stores a donation and adds it to the profile total in the same
// transaction.
func (s *Service) Record(ctx context.Context, userID string, amount float64) (CreateResult, error) {
	if userID == "" {
		return CreateResult{}, apperr.Invalid("User ID is required")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 || amount > maxAmount {
		return CreateResult{}, apperr.Invalid("Amount must be a positive number")
	}

	var res CreateResult
	err := s.store.Transaction(ctx, func(tx *kv.Store) error {
		d := Donation{UserID: userID, Amount: amount}
		created := s.now().Truncate(time.Millisecond)
		for {
			d.ID = kv.DonationKey(userID, created)
			d.CreatedAt = created
			wrote, err := tx.SetIfAbsent(ctx, d.ID, d)
			if err != nil {
				return err
			}
			if wrote {
				break
			}
			created = created.Add(time.Millisecond)
		}

		total, err := s.profiles.AddDonationTx(ctx, tx, userID, amount)
		if err != nil {
			return err
		}
		res = CreateResult{Donation: d, TotalDonations: total}
		return nil
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("record donation: %w", err)
	}

	slog.InfoContext(ctx, "donation recorded", "user_id", userID, "amount", amount)
	return res, nil
}

// List returns the user's donations, oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]Donation, error) {
	if userID == "" {
		return nil, apperr.Invalid("User ID is required")
	}
	entries, err := s.store.ScanOwned(ctx, kv.DonationPrefix(userID), userID, kv.DonationOwner)
	if err != nil {
		return nil, err
	}
	return kv.DecodeAll[Donation](entries)
}
