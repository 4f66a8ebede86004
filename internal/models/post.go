package models

import (
	"time"
)

// Post is a feed entry. PostedBy is a denormalized snapshot of the author's
// display name taken at creation time; it is never recomputed, so a later
// rename leaves historical posts under the old name.
//
// LikeCount and CommentCount are cached counters maintained by direct atomic
// increments. They are never recounted from engagement records, so they track
// the true counts only as closely as the increment stream allows.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	PostedBy     string    `gorm:"not null;index" json:"posted_by"`
	Description  string    `gorm:"not null" json:"description"`
	LikeCount    int       `gorm:"not null;default:0" json:"like_count"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
