package feedback

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
)

// maxImageBytes bounds the base64 screenshot attached to a report.
const maxImageBytes = 3 << 20

type Service struct {
	store *kv.Store
	now   func() time.Time
}

func NewService(store *kv.Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Feedback, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Feedback{}, apperr.Invalid("Message is required")
	}
	if len(req.ImageBase64) > maxImageBytes {
		return Feedback{}, apperr.Invalid("Image is too large")
	}

	fb := Feedback{
		UserID:      optional(req.UserID),
		UserName:    req.UserName,
		UserEmail:   optional(req.UserEmail),
		Type:        req.Type,
		Message:     message,
		ImageBase64: optional(req.ImageBase64),
		Status:      StatusNew,
	}
	if fb.UserName == "" {
		fb.UserName = anonymousName
	}
	if fb.Type != TypeComplaint {
		fb.Type = TypeFeedback
	}

	created := s.now().Truncate(time.Millisecond)
	for {
		fb.ID = kv.FeedbackKey(created, req.UserID)
		fb.CreatedAt = created
		wrote, err := s.store.SetIfAbsent(ctx, fb.ID, fb)
		if err != nil {
			return Feedback{}, fmt.Errorf("submit feedback: %w", err)
		}
		if wrote {
			return fb, nil
		}
		created = created.Add(time.Millisecond)
	}
}

// List returns every report, newest first.
func (s *Service) List(ctx context.Context) ([]Feedback, error) {
	list, err := kv.ScanAs[Feedback](ctx, s.store, kv.FeedbackPrefix)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *Service) SetStatus(ctx context.Context, id, status string) (Feedback, error) {
	if !validStatus(status) {
		return Feedback{}, apperr.Invalid("Invalid status")
	}
	if !strings.HasPrefix(id, kv.FeedbackPrefix) {
		return Feedback{}, notFound()
	}

	var fb Feedback
	err := s.store.Transaction(ctx, func(tx *kv.Store) error {
		found, err := tx.GetForUpdate(ctx, id, &fb)
		if err != nil {
			return err
		}
		if !found {
			return notFound()
		}
		now := s.now()
		fb.Status = status
		fb.UpdatedAt = &now
		return tx.Set(ctx, id, fb)
	})
	if err != nil {
		return Feedback{}, err
	}
	return fb, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if !strings.HasPrefix(id, kv.FeedbackPrefix) {
		return notFound()
	}
	existed, err := s.store.Del(ctx, id)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if !existed {
		return notFound()
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func notFound() error {
	return apperr.New(apperr.NotFound, "Feedback not found")
}
