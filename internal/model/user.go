package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Username string `gorm:"uniqueIndex;not null"`
	Name     string `json:"name" gorm:"not null"`

	// Optional profile fields
	Headline    string `json:"headline"`
	LinkedInURL string `json:"linkedin_url"`

	IsVerified bool `json:"is_verified" gorm:"default:false"`
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":           u.ID,
		"username":     u.Username,
		"name":         strings.TrimSpace(u.Name),
		"headline":     u.Headline,
		"linkedin_url": u.LinkedInURL,
		"is_verified":  u.IsVerified,
	}
}
