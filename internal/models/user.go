package models

import "time"

// User is owned by the identity provider. Beam only reads it, apart from the admin CLI toggling IsAdmin.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"-"`
	Image     string    `json:"image"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// UserSummary is the public projection used for mention autocomplete and profiles.
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID      uint
	IsAdmin bool
}
