package models

import "time"

type Poll struct {
	ID       string       `gorm:"primaryKey;type:uuid" json:"id"`
	Slug     string       `gorm:"uniqueIndex;not null" json:"slug"`
	Question string       `gorm:"not null" json:"question"`
	ClosesAt *time.Time   `json:"closes_at,omitempty"`
	Options  []PollOption `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"options"`

	Timestamps
}

// IsOpen reports whether votes are still accepted at t.
func (p *Poll) IsOpen(t time.Time) bool {
	return p.ClosesAt == nil || t.Before(*p.ClosesAt)
}

type PollOption struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	PollID   string `gorm:"type:uuid;index;not null" json:"poll_id"`
	Label    string `gorm:"not null" json:"label"`
	Position int    `gorm:"not null;default:0" json:"position"`
}

// Vote is a single ballot; one per user per poll, enforced by ux_vote_poll_user.
type Vote struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	PollID    string    `gorm:"type:uuid;not null;uniqueIndex:ux_vote_poll_user,priority:1" json:"poll_id"`
	OptionID  string    `gorm:"type:uuid;not null;index" json:"option_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:ux_vote_poll_user,priority:2" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
