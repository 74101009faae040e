package services

import (
	"context"
	"errors"
	"time"

	"raid-dashboard/apperrors"
	"raid-dashboard/events"
	"raid-dashboard/logger"
	"raid-dashboard/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressState is the part of a profile the rank walk reads and writes.
type ProgressState struct {
	XP   int64
	Rank int
}

// RankUp summarises what a credit did beyond adding XP.
type RankUp struct {
	RanksGained  int
	PointsEarned int64
}

// ApplyXP adds delta to state and promotes through the ladder while the
// carried XP covers the next rank's requirement. Excess XP carries over into
// the new rank. At the top of the ladder XP keeps accumulating.
func ApplyXP(state ProgressState, ladder []models.RankDefinition, delta int64) (ProgressState, RankUp) {
	byID := make(map[int]models.RankDefinition, len(ladder))
	for _, r := range ladder {
		byID[r.RankID] = r
	}

	var up RankUp
	state.XP += delta
	for {
		next, ok := byID[state.Rank+1]
		if !ok || state.XP < next.XPRequired {
			break
		}
		state.XP -= next.XPRequired
		state.Rank++
		up.RanksGained++
		up.PointsEarned += next.RewardPoints
	}
	return state, up
}

type XPResult struct {
	Profile      *models.Profile `json:"profile"`
	RankedUp     bool            `json:"ranked_up"`
	RanksGained  int             `json:"ranks_gained"`
	PointsEarned int64           `json:"points_earned"`
}

type ProgressionService struct {
	DB  *gorm.DB
	Bus *events.ProfileBus
}

func NewProgressionService(db *gorm.DB, bus *events.ProfileBus) *ProgressionService {
	return &ProgressionService{DB: db, Bus: bus}
}

// Ranks returns the ladder ordered by rank id.
func (s *ProgressionService) Ranks(ctx context.Context) ([]models.RankDefinition, error) {
	return loadLadder(s.DB.WithContext(ctx))
}

// SeedRanks inserts the default ladder when rank_definitions is empty.
func (s *ProgressionService) SeedRanks(ctx context.Context) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.RankDefinition{}).Count(&count).Error; err != nil {
		return apperrors.FromDB(err, "counting ranks")
	}
	if count > 0 {
		return nil
	}
	ladder := make([]models.RankDefinition, len(models.DefaultRankLadder))
	copy(ladder, models.DefaultRankLadder)
	if err := s.DB.WithContext(ctx).Create(&ladder).Error; err != nil {
		return apperrors.FromDB(err, "seeding ranks")
	}
	logger.Infof("[XP] seeded %d ranks", len(ladder))
	return nil
}

// AwardXP credits delta XP to userID atomically: the profile row is locked for
// the read-walk-write so concurrent credits serialise.
func (s *ProgressionService) AwardXP(ctx context.Context, userID string, delta int64, reason string) (*XPResult, error) {
	var result *XPResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = awardXPTx(tx, userID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"user_id": userID,
		"delta":   delta,
		"xp":      result.Profile.CurrentXP,
		"rank":    result.Profile.CurrentRank,
		"reason":  reason,
	}).Info("[XP] awarded")

	publishProfile(s.Bus, result.Profile, events.ProfileXPCredited)
	return result, nil
}

// awardXPTx runs the credit inside an existing transaction. Callers publish
// the event after commit.
func awardXPTx(tx *gorm.DB, userID string, delta int64) (*XPResult, error) {
	if delta <= 0 {
		return nil, apperrors.Invalid("xp delta must be positive")
	}

	var profile models.Profile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("profile not found")
		}
		return nil, apperrors.FromDB(err, "loading profile")
	}

	ladder, err := loadLadder(tx)
	if err != nil {
		return nil, err
	}
	if len(ladder) == 0 {
		return nil, apperrors.New(apperrors.KindInternal, "rank ladder missing", nil)
	}

	state, up := ApplyXP(ProgressState{XP: profile.CurrentXP, Rank: profile.CurrentRank}, ladder, delta)

	updates := map[string]interface{}{
		"current_xp":   state.XP,
		"current_rank": state.Rank,
		"updated_at":   time.Now(),
	}
	if up.RanksGained > 0 {
		updates["raid_points"] = gorm.Expr("raid_points + ?", up.PointsEarned)
	}
	if err := tx.Model(&models.Profile{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return nil, apperrors.FromDB(err, "saving progress")
	}

	profile.CurrentXP = state.XP
	profile.CurrentRank = state.Rank
	profile.RaidPoints += up.PointsEarned

	return &XPResult{
		Profile:      &profile,
		RankedUp:     up.RanksGained > 0,
		RanksGained:  up.RanksGained,
		PointsEarned: up.PointsEarned,
	}, nil
}

func loadLadder(db *gorm.DB) ([]models.RankDefinition, error) {
	var ladder []models.RankDefinition
	if err := db.Order("rank_id ASC").Find(&ladder).Error; err != nil {
		return nil, apperrors.FromDB(err, "loading rank ladder")
	}
	return ladder, nil
}

func publishProfile(bus *events.ProfileBus, p *models.Profile, change events.ProfileChange) {
	if bus == nil || p == nil {
		return
	}
	bus.Publish(events.ProfileUpdated{
		UserID:      p.ID,
		Change:      change,
		CurrentXP:   p.CurrentXP,
		CurrentRank: p.CurrentRank,
		RaidPoints:  p.RaidPoints,
		At:          time.Now().UTC(),
	})
}
