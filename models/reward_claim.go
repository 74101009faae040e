package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusFulfilled ClaimStatus = "fulfilled"
	ClaimStatusRejected  ClaimStatus = "rejected"
)

// RewardClaim is created when a user redeems points; fulfilment happens off-platform.
type RewardClaim struct {
	ID            string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string          `gorm:"type:uuid;index;not null" json:"user_id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	WalletAddress string          `gorm:"type:varchar(128);not null" json:"wallet_address"`
	RewardType    string          `gorm:"type:varchar(64);not null" json:"reward_type"`
	RewardAmount  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"reward_amount"`
	PointsSpent   int64           `gorm:"not null" json:"points_spent"`
	Status        ClaimStatus     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ClaimedAt     time.Time       `gorm:"autoCreateTime" json:"claimed_at"`
	NotifiedAt    *time.Time      `json:"notified_at,omitempty"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// RewardOffer is a redeemable item of the reward catalog.
type RewardOffer struct {
	Type        string          `json:"reward_type"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"reward_amount"`
	PointsCost  int64           `json:"points_cost"`
	Description string          `json:"description,omitempty"`
}

// RewardCatalog lists what points can be exchanged for.
var RewardCatalog = []RewardOffer{
	{Type: "token_small", Title: "100 tokens", Amount: decimal.NewFromInt(100), PointsCost: 500, Description: "Sent to your wallet after review"},
	{Type: "token_medium", Title: "250 tokens", Amount: decimal.NewFromInt(250), PointsCost: 1100},
	{Type: "token_large", Title: "1000 tokens", Amount: decimal.NewFromInt(1000), PointsCost: 4000},
	{Type: "whitelist_spot", Title: "Whitelist spot", Amount: decimal.NewFromInt(1), PointsCost: 2500},
}

// FindRewardOffer returns the catalog entry for rewardType.
func FindRewardOffer(rewardType string) (RewardOffer, bool) {
	for _, o := range RewardCatalog {
		if o.Type == rewardType {
			return o, true
		}
	}
	return RewardOffer{}, false
}
