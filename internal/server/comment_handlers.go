package server

import (
	"ripple/internal/models"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Text string `json:"text"`
}

// GetComments handles GET /api/posts/:postId/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parsePostID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	page, limit := parseWindow(c)
	comments, pagination, err := s.feedService.ListComments(c.Context(), postID, page, limit)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, comments, pagination)
}

// CreateComment handles POST /api/posts/:postId/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parsePostID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	userID, userName := identity(c)
	comment, err := s.feedService.CreateComment(c.Context(), postID, userID, userName, req.Text)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondData(c, fiber.StatusCreated, comment)
}
