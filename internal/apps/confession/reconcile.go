package confession

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/profile"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
)

// Drift is a profile whose stored karma differs from the sum of its
// completed confessions.
type Drift struct {
	UserID   string `json:"userId"`
	Stored   int    `json:"stored"`
	Expected int    `json:"expected"`
	Fixed    bool   `json:"fixed"`
}

// Reconcile recomputes every user's karma from their completed confessions
// and reports the profiles that disagree. With fix set each drifting profile
// is rewritten under the same locks completion uses.
func (s *Service) Reconcile(ctx context.Context, fix bool) ([]Drift, error) {
	expected, err := s.expectedKarma(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := kv.ScanAs[profile.Profile](ctx, s.store, kv.ProfilePrefix)
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}

	stored := make(map[string]int, len(profiles))
	for _, p := range profiles {
		stored[p.UserID] = p.Karma
	}
	users := make(map[string]struct{}, len(stored)+len(expected))
	for id := range stored {
		users[id] = struct{}{}
	}
	for id := range expected {
		users[id] = struct{}{}
	}

	var drifts []Drift
	for id := range users {
		if id == "" || stored[id] == expected[id] {
			continue
		}
		drifts = append(drifts, Drift{UserID: id, Stored: stored[id], Expected: expected[id]})
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].UserID < drifts[j].UserID })

	if !fix {
		return drifts, nil
	}
	for i := range drifts {
		d := &drifts[i]
		err := s.store.Transaction(ctx, func(tx *kv.Store) error {
			entries, err := tx.ScanOwnedForUpdate(ctx, kv.ConfessionPrefix(d.UserID), d.UserID, kv.ConfessionOwner)
			if err != nil {
				return err
			}
			sum, err := completedSum(entries)
			if err != nil {
				return err
			}
			d.Expected = sum
			return s.profiles.SetKarmaTx(ctx, tx, d.UserID, sum)
		})
		if err != nil {
			return drifts, fmt.Errorf("fix karma for %s: %w", d.UserID, err)
		}
		d.Fixed = true
		slog.InfoContext(ctx, "karma reconciled", "user_id", d.UserID, "stored", d.Stored, "expected", d.Expected)
	}
	return drifts, nil
}

func (s *Service) expectedKarma(ctx context.Context) (map[string]int, error) {
	entries, err := s.store.ScanPrefix(ctx, kv.ConfessionRootPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan confessions: %w", err)
	}
	out := make(map[string]int)
	for _, e := range entries {
		owner, ok := kv.ConfessionOwner(e.Key)
		if !ok {
			continue
		}
		var c Confession
		if err := e.Decode(&c); err != nil {
			return nil, err
		}
		if c.Completed {
			out[owner] += c.KarmaChange
		}
	}
	return out, nil
}

func completedSum(entries []kv.Entry) (int, error) {
	sum := 0
	for _, e := range entries {
		var c Confession
		if err := e.Decode(&c); err != nil {
			return 0, err
		}
		if c.Completed {
			sum += c.KarmaChange
		}
	}
	return sum, nil
}
