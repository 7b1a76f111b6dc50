package confession

import (
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/karma"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
)

// Confession is stored at confession:<userId>:<unixMillis>. KarmaChange is
// applied to the owner's profile exactly once, when Completed flips to true,
// and reversed when a completed record is deleted.
type Confession struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	Messages       []models.Message `json:"messages"`
	KarmaChange    int              `json:"karmaChange"`
	Summary        string           `json:"summary"`
	Reasoning      string           `json:"reasoning,omitempty"`
	AnalysisSource string           `json:"analysisSource,omitempty"`
	Completed      bool             `json:"completed"`
	CreatedAt      time.Time        `json:"createdAt"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
}

// Draft is the single open conversation of a user, stored at
// confession_active_<userId> and overwritten on every exchange.
type Draft struct {
	UserID    string           `json:"userId"`
	Messages  []models.Message `json:"messages"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type Limit struct {
	CanConfess       bool `json:"canConfess"`
	ConfessionsToday int  `json:"confessionsToday"`
	Limit            int  `json:"limit"`
	HasSubscription  bool `json:"hasSubscription"`
}

type CompleteResult struct {
	Confession Confession `json:"confession"`
	NewKarma   int        `json:"newKarma"`
}

type DeleteResult struct {
	Reverted int `json:"reverted"`
	NewKarma int `json:"newKarma"`
}

type BulkDeleteResult struct {
	DeletedCount int `json:"deletedCount"`
	Reverted     int `json:"reverted"`
	NewKarma     int `json:"newKarma"`
}

type FinalizeResult struct {
	Confession Confession   `json:"confession"`
	NewKarma   int          `json:"newKarma"`
	Analysis   karma.Result `json:"analysis"`
}

// Unlimited is the Limit value reported for subscribers.
const Unlimited = -1
