package server

import (
	"ripple/internal/models"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Description string `json:"description"`
}

type toggleLikeRequest struct {
	Increment bool `json:"increment"`
}

// GetFeed handles GET /api/posts
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page, limit := parseWindow(c)

	posts, pagination, err := s.feedService.ListFeed(c.Context(), page, limit)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, posts, pagination)
}

// GetMyPosts handles GET /api/posts/my
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	userID, _ := identity(c)
	page, limit := parseWindow(c)

	posts, pagination, err := s.feedService.ListMyPosts(c.Context(), userID, page, limit)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, posts, pagination)
}

// SearchPosts handles GET /api/posts/search?username=
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	page, limit := parseWindow(c)

	posts, pagination, err := s.feedService.SearchByAuthorName(c.Context(), c.Query("username"), page, limit)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondPage(c, posts, pagination)
}

// GetPost handles GET /api/posts/:postId
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parsePostID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	post, err := s.feedService.GetPost(c.Context(), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondData(c, fiber.StatusOK, post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	userID, userName := identity(c)
	post, err := s.feedService.CreatePost(c.Context(), userID, userName, req.Description)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondData(c, fiber.StatusCreated, post)
}

// ToggleLike handles PATCH /api/posts/:postId/like. The body's increment
// flag selects the +1 or -1 delta; the response carries the updated post.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := parsePostID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	var req toggleLikeRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	userID, _ := identity(c)
	post, err := s.feedService.ToggleLike(c.Context(), postID, userID, req.Increment)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return respondData(c, fiber.StatusOK, post)
}
