package models

// RankDefinition is one step of the rank ladder: reaching RankID costs XPRequired
// XP (counted from the start of the previous rank) and pays RewardPoints.
type RankDefinition struct {
	RankID       int    `gorm:"primaryKey;autoIncrement:false" json:"rank_id"`
	RankName     string `gorm:"not null" json:"rank_name"`
	XPRequired   int64  `gorm:"column:xp_required;not null" json:"xp_required"`
	RewardPoints int64  `gorm:"not null;default:0" json:"reward_points"`
}

// DefaultRankLadder seeds rank_definitions when the table is empty.
var DefaultRankLadder = []RankDefinition{
	{RankID: 1, RankName: "Recruit", XPRequired: 0, RewardPoints: 0},
	{RankID: 2, RankName: "Scout", XPRequired: 1000, RewardPoints: 50},
	{RankID: 3, RankName: "Raider", XPRequired: 2500, RewardPoints: 100},
	{RankID: 4, RankName: "Vanguard", XPRequired: 5000, RewardPoints: 200},
	{RankID: 5, RankName: "Warlord", XPRequired: 10000, RewardPoints: 400},
	{RankID: 6, RankName: "Legend", XPRequired: 20000, RewardPoints: 1000},
}
