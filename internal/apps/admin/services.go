package admin

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/confession"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/donation"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/profile"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const statsConcurrency = 8

type UserStats struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	CreatedAt        time.Time `json:"createdAt"`
	Karma            int       `json:"karma"`
	ConfessionsCount int       `json:"confessionsCount"`
	HasSubscription  bool      `json:"hasSubscription"`
	TotalDonations   float64   `json:"totalDonations"`
}

type Service struct {
	db          *gorm.DB
	profiles    *profile.Service
	confessions *confession.Service
	donations   *donation.Service
}

func NewService(db *gorm.DB, profiles *profile.Service, confessions *confession.Service, donations *donation.Service) *Service {
	return &Service{db: db, profiles: profiles, confessions: confessions, donations: donations}
}

// Users lists every account with its karma, completed confession count,
// subscription flag and donation sum, newest registration first.
func (s *Service) Users(ctx context.Context) ([]UserStats, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]UserStats, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsConcurrency)
	for i, u := range users {
		g.Go(func() error {
			stats, err := s.stats(gctx, u)
			if err != nil {
				return fmt.Errorf("stats for %s: %w", u.ID, err)
			}
			out[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Service) stats(ctx context.Context, u models.User) (UserStats, error) {
	id := u.ID.String()
	stats := UserStats{
		ID:        id,
		Email:     u.Email,
		Name:      u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
	if stats.Name == "" {
		stats.Name = u.Email
	}

	p, _, err := s.profiles.Get(ctx, id)
	if err != nil {
		return UserStats{}, err
	}
	stats.Karma = p.Karma
	stats.HasSubscription = p.HasSubscription

	list, err := s.confessions.List(ctx, id)
	if err != nil {
		return UserStats{}, err
	}
	for _, c := range list {
		if c.Completed {
			stats.ConfessionsCount++
		}
	}

	donations, err := s.donations.List(ctx, id)
	if err != nil {
		return UserStats{}, err
	}
	for _, d := range donations {
		stats.TotalDonations += d.Amount
	}
	return stats, nil
}
