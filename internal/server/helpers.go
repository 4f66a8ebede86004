package server

import (
	"ripple/internal/middleware"
	"ripple/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseWindow extracts page/limit query parameters. Missing or malformed
// values come back as zero; the service layer applies defaults.
func parseWindow(c *fiber.Ctx) (page, limit int) {
	return c.QueryInt("page", 0), c.QueryInt("limit", 0)
}

// parsePostID extracts the :postId route parameter.
func parsePostID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("postId")
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid post ID")
	}
	return uint(id), nil
}

// identity returns the authenticated user's id and display name from the
// request locals populated by the auth middleware.
func identity(c *fiber.Ctx) (uint, string) {
	userID, _ := c.Locals(middleware.LocalUserID).(uint)
	userName, _ := c.Locals(middleware.LocalUserName).(string)
	return userID, userName
}

// respondData writes the standard success envelope.
func respondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// respondPage writes the success envelope with a pagination block.
func respondPage(c *fiber.Ctx, data any, pagination models.Pagination) error {
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       data,
		"pagination": pagination,
	})
}
