// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Post is a top-level, user-authored markdown entry.
// ContentHTML is derived from Content on every write and is never set directly by callers.
type Post struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Content     string `gorm:"type:text;not null" json:"content,omitempty"`
	ContentHTML string `gorm:"column:content_html;type:text;not null" json:"content_html,omitempty"`
	Hidden      bool   `gorm:"not null;default:false;index" json:"hidden"`
	AuthorID    uint   `gorm:"not null;index" json:"author_id"`
	Author      User   `gorm:"foreignKey:AuthorID" json:"author"`

	Likes    []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"likes"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`

	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostSummary is the id/title projection returned by search.
type PostSummary struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}
