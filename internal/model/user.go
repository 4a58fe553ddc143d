package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID            string    `gorm:"primaryKey;size:128"`
	Name          string    `gorm:"size:120;not null"`
	Email         string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash  string    `gorm:"column:password_hash;size:255"`
	Location      string    `gorm:"size:255"`
	ProfilePhoto  string    `gorm:"column:profile_photo;size:512"`
	SkillsOffered []string  `gorm:"column:skills_offered;type:text;serializer:json"`
	SkillsWanted  []string  `gorm:"column:skills_wanted;type:text;serializer:json"`
	Availability  string    `gorm:"size:255;default:Not specified"`
	IsPublic      bool      `gorm:"column:is_public;not null;default:true"`
	IsBanned      bool      `gorm:"column:is_banned;not null;default:false"`
	Role          UserRole  `gorm:"size:16;not null;default:user"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID unless the id came from an external identity provider.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = UserRoleUser
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
