package model

import (
	"time"

	"gorm.io/gorm"
)

// Target platforms
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// Post lifecycle
type PostStatus string

const (
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
	PostStatusCancelled PostStatus = "cancelled"
)

type ScheduledPost struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"index;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	Platform    Platform   `json:"platform" gorm:"not null"`
	ScheduledAt time.Time  `json:"scheduled_at" gorm:"index;not null"`
	Status      PostStatus `json:"status" gorm:"default:'scheduled'"`

	// Set after a successful publish
	PublishedPostID string `json:"published_post_id"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
