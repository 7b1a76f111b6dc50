package profile

import "time"

// Profile is the mutable per-user record stored at profile:<userId>.
// Karma is the running total of karmaChange over the user's completed,
// not yet deleted confessions.
type Profile struct {
	UserID          string     `json:"userId"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	City            string     `json:"city"`
	Language        string     `json:"language"`
	Karma           int        `json:"karma"`
	HasSubscription bool       `json:"hasSubscription"`
	TotalDonations  float64    `json:"totalDonations"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// Update is a partial profile change. Nil fields keep their stored value.
type Update struct {
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	City            *string `json:"city"`
	Language        *string `json:"language"`
	Karma           *int    `json:"karma"`
	HasSubscription *bool   `json:"hasSubscription"`
}

const maxFieldLength = 100
