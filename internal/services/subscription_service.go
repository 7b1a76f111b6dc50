package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/dto"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionFlag is the profile-side gate the webhook keeps in step.
type SubscriptionFlag interface {
	SetSubscription(ctx context.Context, userID string, active bool) error
}

type SubscriptionService struct {
	db       *gorm.DB
	profiles SubscriptionFlag
}

func NewSubscriptionService(db *gorm.DB, profiles SubscriptionFlag) *SubscriptionService {
	return &SubscriptionService{db: db, profiles: profiles}
}

// HandleWebhookEvent applies a RevenueCat event. Purchases and renewals
// grant access, expiration revokes it, cancellation only records the state
// since access lasts until the period ends. Unknown event types are ignored.
func (s *SubscriptionService) HandleWebhookEvent(ctx context.Context, event *dto.RevenueCatEvent) error {
	if event.AppUserID == "" {
		return errors.New("event has no app_user_id")
	}

	switch event.Type {
	case "INITIAL_PURCHASE", "RENEWAL", "UNCANCELLATION", "PRODUCT_CHANGE":
		if err := s.upsert(ctx, event, models.SubscriptionActive); err != nil {
			return err
		}
		return s.profiles.SetSubscription(ctx, event.AppUserID, true)
	case "CANCELLATION":
		return s.setStatus(ctx, event, models.SubscriptionCancelled)
	case "EXPIRATION":
		if err := s.setStatus(ctx, event, models.SubscriptionExpired); err != nil {
			return err
		}
		return s.profiles.SetSubscription(ctx, event.AppUserID, false)
	default:
		slog.DebugContext(ctx, "ignoring webhook event", "event_type", event.Type)
		return nil
	}
}

func (s *SubscriptionService) upsert(ctx context.Context, event *dto.RevenueCatEvent, status string) error {
	db := s.db.WithContext(ctx)

	var sub models.Subscription
	err := db.Where("revenuecat_id = ?", event.AppUserID).First(&sub).Error
	if err == nil {
		return db.Model(&sub).Updates(map[string]interface{}{
			"status":               status,
			"product_id":           event.ProductID,
			"current_period_start": msToTime(event.PurchasedAtMs),
			"current_period_end":   msToTime(event.ExpirationAtMs),
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("subscription lookup: %w", err)
	}

	userID, ok := s.knownUser(ctx, event.AppUserID)
	if !ok {
		slog.WarnContext(ctx, "webhook for unknown user, profile flag only", "app_user_id", event.AppUserID)
		return nil
	}
	sub = models.Subscription{
		UserID:             userID,
		RevenueCatID:       event.AppUserID,
		ProductID:          event.ProductID,
		Status:             status,
		CurrentPeriodStart: msToTime(event.PurchasedAtMs),
		CurrentPeriodEnd:   msToTime(event.ExpirationAtMs),
	}
	return db.Create(&sub).Error
}

func (s *SubscriptionService) setStatus(ctx context.Context, event *dto.RevenueCatEvent, status string) error {
	return s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("revenuecat_id = ?", event.AppUserID).
		Update("status", status).Error
}

func (s *SubscriptionService) knownUser(ctx context.Context, appUserID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(appUserID)
	if err != nil {
		return uuid.Nil, false
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return uuid.Nil, false
	}
	return id, count > 0
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
