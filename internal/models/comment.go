package models

import (
	"time"
)

// Comment is an immutable reply to a post. PostedBy is the commenter's
// display name snapshot at write time, mirroring Post.PostedBy.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	PostedBy  string    `gorm:"not null" json:"posted_by"`
	Text      string    `gorm:"not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
