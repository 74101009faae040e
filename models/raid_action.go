package models

import "time"

type RaidActionType string

const (
	RaidActionLike    RaidActionType = "like"
	RaidActionReply   RaidActionType = "reply"
	RaidActionRetweet RaidActionType = "retweet"
)

// RaidActionXP is the XP credited for each action type.
var RaidActionXP = map[RaidActionType]int64{
	RaidActionLike:    5,
	RaidActionReply:   10,
	RaidActionRetweet: 15,
}

// RaidAction logs one engagement of a user with a raided tweet.
// (user_id, tweet_id, action_type) is unique at the database level.
type RaidAction struct {
	ID         string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string         `gorm:"type:uuid;not null;uniqueIndex:ux_raid_user_tweet_action,priority:1" json:"user_id"`
	TweetID    string         `gorm:"not null;uniqueIndex:ux_raid_user_tweet_action,priority:2" json:"tweet_id"`
	ActionType RaidActionType `gorm:"type:varchar(16);not null;uniqueIndex:ux_raid_user_tweet_action,priority:3;check:action_type IN ('like','reply','retweet')" json:"action_type"`
	XPEarned   int64          `gorm:"column:xp_earned;not null" json:"xp_earned"`
	Verified   bool           `gorm:"not null;default:false" json:"verified"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
