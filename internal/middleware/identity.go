package middleware

import (
	"errors"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/config"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	localUserID  = "user_id"
	localIsAdmin = "is_admin"
)

var errNoIdentity = errors.New("invalid token in context")

func identify(cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		claims, err := tokenClaims(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": true, "message": "Unauthorized"})
		}
		sub, _ := claims["sub"].(string)
		if _, err := uuid.Parse(sub); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": true, "message": "Invalid subject"})
		}
		email, _ := claims["email"].(string)
		role, _ := claims["role"].(string)

		c.Locals(localUserID, sub)
		c.Locals(localIsAdmin, role == models.RoleAdmin || contains(adminEmails, email) || contains(adminUserIDs, sub))
		return c.Next()
	}
}

func tokenClaims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, errNoIdentity
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// CallerID returns the authenticated user id, or "" for anonymous requests.
func CallerID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// CallerUUID is CallerID parsed as a UUID.
func CallerUUID(c *fiber.Ctx) (uuid.UUID, error) {
	id := CallerID(c)
	if id == "" {
		return uuid.Nil, errNoIdentity
	}
	return uuid.Parse(id)
}

// IsAdmin reports whether the caller has admin rights.
func IsAdmin(c *fiber.Ctx) bool {
	admin, _ := c.Locals(localIsAdmin).(bool)
	return admin
}

// Authorize allows access to data owned by ownerID for its owner and admins.
func Authorize(c *fiber.Ctx, ownerID string) error {
	caller := CallerID(c)
	if caller == "" {
		return apperr.New(apperr.Unauthorized, "Unauthorized")
	}
	if caller == ownerID || IsAdmin(c) {
		return nil
	}
	return apperr.New(apperr.Forbidden, "Access to another user's data is not allowed")
}

// TargetUser resolves the user a request operates on: the requested id when
// given (subject to Authorize), the caller otherwise.
func TargetUser(c *fiber.Ctx, requested string) (string, error) {
	if requested == "" {
		requested = CallerID(c)
	}
	if requested == "" {
		return "", apperr.Invalid("User ID is required")
	}
	if err := Authorize(c, requested); err != nil {
		return "", err
	}
	return requested, nil
}
