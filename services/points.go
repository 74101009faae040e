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
)

type PointsService struct {
	DB  *gorm.DB
	Bus *events.ProfileBus
}

func NewPointsService(db *gorm.DB, bus *events.ProfileBus) *PointsService {
	return &PointsService{DB: db, Bus: bus}
}

// Balance returns the caller's spendable raid points.
func (s *PointsService) Balance(ctx context.Context, userID string) (int64, error) {
	var profile models.Profile
	err := s.DB.WithContext(ctx).Select("id", "raid_points").Where("id = ?", userID).First(&profile).Error
	if err != nil {
		return 0, apperrors.FromDB(err, "loading balance")
	}
	return profile.RaidPoints, nil
}

// Spend deducts amount from the balance, failing without side effects when the
// balance is too low. Returns the remaining balance.
func (s *PointsService) Spend(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	var remaining int64
	var profile *models.Profile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := spendTx(tx, userID, amount)
		if err != nil {
			return err
		}
		profile = p
		remaining = p.RaidPoints
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"amount":    amount,
		"remaining": remaining,
		"reason":    reason,
	}).Info("[POINTS] spent")

	publishProfile(s.Bus, profile, events.ProfilePointsSpent)
	return remaining, nil
}

// spendTx is a conditional update: the WHERE clause carries the balance check
// so two concurrent spends can never both pass it.
func spendTx(tx *gorm.DB, userID string, amount int64) (*models.Profile, error) {
	if amount <= 0 {
		return nil, apperrors.Invalid("amount must be positive")
	}

	res := tx.Model(&models.Profile{}).
		Where("id = ? AND raid_points >= ?", userID, amount).
		Updates(map[string]interface{}{
			"raid_points": gorm.Expr("raid_points - ?", amount),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return nil, apperrors.FromDB(res.Error, "spending points")
	}

	var profile models.Profile
	if err := tx.Where("id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("profile not found")
		}
		return nil, apperrors.FromDB(err, "loading profile")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.InsufficientPoints(profile.RaidPoints, amount)
	}
	return &profile, nil
}
