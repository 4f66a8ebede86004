package repository

import (
	"context"
	"errors"
	"strings"

	"ripple/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations. Feed windows
// order newest first with the primary key as insertion-order tiebreaker, so
// pagination is stable under equal timestamps.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Count(ctx context.Context) (int64, error)
	ListByAuthor(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	CountByAuthor(ctx context.Context, userID uint) (int64, error)
	SearchByAuthorName(ctx context.Context, query string, limit, offset int) ([]*models.Post, error)
	CountByAuthorName(ctx context.Context, query string) (int64, error)
	IncrementLikeCount(ctx context.Context, id uint, delta int) (*models.Post, error)
	IncrementCommentCount(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) CountByAuthor(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

// authorNamePattern builds the case-insensitive substring predicate argument
// for the denormalized posted_by column. LOWER/LIKE keeps the match portable
// between PostgreSQL and the SQLite test database.
func authorNamePattern(query string) string {
	return "%" + strings.ToLower(query) + "%"
}

func (r *postRepository) SearchByAuthorName(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("LOWER(posted_by) LIKE ?", authorNamePattern(query)).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) CountByAuthorName(ctx context.Context, query string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("LOWER(posted_by) LIKE ?", authorNamePattern(query)).
		Count(&total).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

// IncrementLikeCount applies the delta as a single atomic UPDATE, never
// read-modify-write, so concurrent toggles cannot lose updates. There is no
// lower clamp: without per-user like records the server cannot tell a
// legitimate un-like from a repeated one, so the raw stream of deltas is
// authoritative and the counter may go negative.
func (r *postRepository) IncrementLikeCount(ctx context.Context, id uint, delta int) (*models.Post, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Update("like_count", gorm.Expr("like_count + ?", delta))
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Post", id)
	}
	return r.GetByID(ctx, id)
}

// IncrementCommentCount bumps the cached comment counter by one. It runs as
// its own statement after the comment insert; the pair is not transactional.
func (r *postRepository) IncrementCommentCount(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Update("comment_count", gorm.Expr("comment_count + ?", 1))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
