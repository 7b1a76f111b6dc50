package logging

import (
	"log/slog"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Prune deletes system_logs older than cutoff.
func Prune(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where(clause.Lt{Column: "timestamp", Value: cutoff}).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}

// StartCleanup runs a daily goroutine that deletes system_logs older than
// retentionDays.
func StartCleanup(db *gorm.DB, retentionDays int, done chan struct{}) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := Prune(db, time.Now().AddDate(0, 0, -retentionDays))
				if err != nil {
					slog.Error("log cleanup failed", "error", err)
				} else if deleted > 0 {
					slog.Info("log cleanup completed", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
}
