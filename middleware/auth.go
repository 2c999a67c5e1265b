package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"verimail/config"
	"verimail/models"
	"verimail/utils"
)

// Protected resolves the bearer token to a workspace and stores it in the
// request context under "workspace".
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid authorization format",
				})
			}
			token = tokenParts[1]
		} else {
			token = c.Cookies("access_token")
			if token == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Authorization required",
				})
			}
		}

		claims, err := utils.ParseWorkspaceToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		var workspace models.Workspace
		if err := config.DB.First(&workspace, claims.WorkspaceID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Workspace not found",
			})
		}

		c.Locals("workspace", &workspace)
		return c.Next()
	}
}
