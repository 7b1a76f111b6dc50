package feedback

import "time"

const (
	StatusNew      = "new"
	StatusReviewed = "reviewed"
	StatusResolved = "resolved"

	TypeFeedback  = "feedback"
	TypeComplaint = "complaint"

	anonymousName = "Аноним"
)

// Feedback is a user report stored at feedback:<unixMillis>:<userId>.
type Feedback struct {
	ID          string     `json:"id"`
	UserID      *string    `json:"userId"`
	UserName    string     `json:"userName"`
	UserEmail   *string    `json:"userEmail"`
	Type        string     `json:"type"`
	Message     string     `json:"message"`
	ImageBase64 *string    `json:"imageBase64"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type SubmitRequest struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	UserEmail   string `json:"userEmail"`
	Type        string `json:"type"`
	Message     string `json:"message"`
	ImageBase64 string `json:"imageBase64"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

func validStatus(s string) bool {
	return s == StatusNew || s == StatusReviewed || s == StatusResolved
}
