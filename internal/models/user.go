// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered account. NotificationToken holds the last
// device push token seen at login; it is overwritten on every successful
// login, including being cleared when the client logs in without one.
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"not null" json:"name"`
	Email             string    `gorm:"unique;not null" json:"email"`
	Password          string    `gorm:"not null" json:"-"`
	NotificationToken string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
