package donation

import "time"

// maxAmount rejects obviously mistyped amounts.
const maxAmount = 1_000_000

// Donation is stored at donation:<userId>:<unixMillis>.
type Donation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateRequest struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

type CreateResult struct {
	Donation       Donation `json:"donation"`
	TotalDonations float64  `json:"totalDonations"`
}
