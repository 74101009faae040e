package models

import (
	"time"
)

// Profile is the dashboard profile of a Supabase auth user (id = auth.users.id).
type Profile struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	Username   string `gorm:"uniqueIndex;not null" json:"username"`
	AvatarName string `json:"avatar_name"`
	AvatarURL  string `gorm:"type:text" json:"avatar_url,omitempty"`
	Country    string `gorm:"type:varchar(8)" json:"country"`
	XHandle    string `gorm:"column:x_handle" json:"x_handle"`

	// Progression. CurrentXP is the carry-over inside the current rank, not a lifetime total.
	CurrentXP   int64 `gorm:"column:current_xp;not null;default:0" json:"current_xp"`
	CurrentRank int   `gorm:"not null;default:1" json:"current_rank"`
	RaidPoints  int64 `gorm:"not null;default:0" json:"raid_points"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
