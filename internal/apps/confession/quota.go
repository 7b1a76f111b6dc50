package confession

import (
	"context"
	"time"
)

// CheckLimit reports whether userID may complete another confession today.
// Subscribers are unlimited; free users get the configured number of
// completions per UTC day.
func (s *Service) CheckLimit(ctx context.Context, userID string) (Limit, error) {
	p, _, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return Limit{}, err
	}

	list, err := s.List(ctx, userID)
	if err != nil {
		return Limit{}, err
	}
	today := completedOn(list, s.now())

	if p.HasSubscription {
		return Limit{CanConfess: true, ConfessionsToday: today, Limit: Unlimited, HasSubscription: true}, nil
	}

	limit := s.limits.DailyConfessionLimit(ctx)
	return Limit{
		CanConfess:       limit < 0 || today < limit,
		ConfessionsToday: today,
		Limit:            limit,
	}, nil
}

func completedOn(list []Confession, day time.Time) int {
	y, m, d := day.UTC().Date()
	n := 0
	for _, c := range list {
		if !c.Completed || c.CompletedAt == nil {
			continue
		}
		cy, cm, cd := c.CompletedAt.UTC().Date()
		if cy == y && cm == m && cd == d {
			n++
		}
	}
	return n
}

// StaticLimit is a LimitSource with a fixed value.
type StaticLimit int

func (l StaticLimit) DailyConfessionLimit(context.Context) int { return int(l) }
