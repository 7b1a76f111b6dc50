package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/config"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/dto"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminRequired lets a request through when any of these hold:
// the X-Admin-Token header matches, the token already marked the caller as
// admin (role claim or configured emails/IDs), or the user row has the
// admin role.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && subtle.ConstantTimeCompare([]byte(c.Get("X-Admin-Token")), []byte(cfg.AdminToken)) == 1 {
			c.Locals(localIsAdmin, true)
			return c.Next()
		}

		if IsAdmin(c) {
			return c.Next()
		}

		userID, err := CallerUUID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err == nil && user.IsAdmin() {
			c.Locals(localIsAdmin, true)
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if strings.EqualFold(item, val) {
			return true
		}
	}
	return false
}
