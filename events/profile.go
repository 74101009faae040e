package events

import "time"

type ProfileChange string

const (
	ProfileEdited      ProfileChange = "edited"
	ProfileXPCredited  ProfileChange = "xp_credited"
	ProfilePointsSpent ProfileChange = "points_spent"
	ProfileCreated     ProfileChange = "created"
	ProfileSnapshot    ProfileChange = "snapshot"
)

// ProfileUpdated is published after a profile row changed.
type ProfileUpdated struct {
	UserID      string        `json:"user_id"`
	Change      ProfileChange `json:"change"`
	CurrentXP   int64         `json:"current_xp"`
	CurrentRank int           `json:"current_rank"`
	RaidPoints  int64         `json:"raid_points"`
	At          time.Time     `json:"at"`
}

type ProfileBus = Bus[ProfileUpdated]

func NewProfileBus() *ProfileBus {
	return NewBus[ProfileUpdated](DefaultBuffer)
}

// ForUser matches the events of a single user.
func ForUser(userID string) func(ProfileUpdated) bool {
	return func(ev ProfileUpdated) bool { return ev.UserID == userID }
}
