// services/reward_service.go
package services

import (
	"context"
	"strings"
	"time"

	"raid-dashboard/apperrors"
	"raid-dashboard/events"
	"raid-dashboard/logger"
	"raid-dashboard/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RewardService struct {
	DB  *gorm.DB
	Bus *events.ProfileBus
}

func NewRewardService(db *gorm.DB, bus *events.ProfileBus) *RewardService {
	return &RewardService{DB: db, Bus: bus}
}

type ClaimRequest struct {
	RewardType    string `json:"reward_type" validate:"required"`
	WalletAddress string `json:"wallet_address" validate:"required,min=20,max=128"`
	Email         string `json:"email" validate:"omitempty,email"`
}

type ClaimFilter struct {
	Status models.ClaimStatus
	Page   int
	Size   int
}

func (s *RewardService) Catalog() []models.RewardOffer {
	return models.RewardCatalog
}

// Claim redeems points for a catalog reward. The spend and the claim row are
// written in one transaction.
func (s *RewardService) Claim(ctx context.Context, userID string, req ClaimRequest) (*models.RewardClaim, error) {
	offer, ok := models.FindRewardOffer(req.RewardType)
	if !ok {
		return nil, apperrors.Invalid("unknown reward type")
	}

	var claim *models.RewardClaim
	var profile *models.Profile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := spendTx(tx, userID, offer.PointsCost)
		if err != nil {
			return err
		}
		profile = p

		claim = &models.RewardClaim{
			ID:            uuid.NewString(),
			UserID:        userID,
			Username:      p.Username,
			Email:         strings.TrimSpace(req.Email),
			WalletAddress: strings.TrimSpace(req.WalletAddress),
			RewardType:    offer.Type,
			RewardAmount:  offer.Amount,
			PointsSpent:   offer.PointsCost,
			Status:        models.ClaimStatusPending,
		}
		if err := tx.Create(claim).Error; err != nil {
			return apperrors.FromDB(err, "creating claim")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"claim_id": claim.ID,
		"reward":   claim.RewardType,
		"points":   claim.PointsSpent,
	}).Info("[CLAIMS] reward claimed")

	publishProfile(s.Bus, profile, events.ProfilePointsSpent)
	return claim, nil
}

// ListClaims returns the caller's claims, newest first.
func (s *RewardService) ListClaims(ctx context.Context, userID string) ([]models.RewardClaim, error) {
	var claims []models.RewardClaim
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("claimed_at DESC").
		Find(&claims).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "listing claims")
	}
	return claims, nil
}

// ListAllClaims is the admin view, paginated and optionally filtered by status.
func (s *RewardService) ListAllClaims(ctx context.Context, f ClaimFilter) ([]models.RewardClaim, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 || f.Size > 100 {
		f.Size = 20
	}

	q := s.DB.WithContext(ctx).Model(&models.RewardClaim{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.FromDB(err, "counting claims")
	}

	var claims []models.RewardClaim
	err := q.Order("claimed_at DESC").
		Limit(f.Size).
		Offset((f.Page - 1) * f.Size).
		Find(&claims).Error
	if err != nil {
		return nil, 0, apperrors.FromDB(err, "listing claims")
	}
	return claims, total, nil
}

// UpdateClaimStatus moves a pending claim to fulfilled or rejected. Rejected
// claims refund their points.
func (s *RewardService) UpdateClaimStatus(ctx context.Context, claimID string, status models.ClaimStatus) (*models.RewardClaim, error) {
	if status != models.ClaimStatusFulfilled && status != models.ClaimStatusRejected {
		return nil, apperrors.Invalid("status must be fulfilled or rejected")
	}

	var claim models.RewardClaim
	var refunded *models.Profile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", claimID).First(&claim).Error; err != nil {
			return apperrors.FromDB(err, "claim not found")
		}
		if claim.Status != models.ClaimStatusPending {
			return apperrors.Conflict("claim already " + string(claim.Status))
		}

		res := tx.Model(&models.RewardClaim{}).
			Where("id = ? AND status = ?", claimID, models.ClaimStatusPending).
			Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
		if res.Error != nil {
			return apperrors.FromDB(res.Error, "updating claim")
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("claim changed concurrently")
		}
		claim.Status = status

		if status == models.ClaimStatusRejected {
			if err := tx.Model(&models.Profile{}).
				Where("id = ?", claim.UserID).
				Update("raid_points", gorm.Expr("raid_points + ?", claim.PointsSpent)).Error; err != nil {
				return apperrors.FromDB(err, "refunding points")
			}
			var p models.Profile
			if err := tx.Where("id = ?", claim.UserID).First(&p).Error; err == nil {
				refunded = &p
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{"claim_id": claimID, "status": status}).Info("[CLAIMS] status updated")
	publishProfile(s.Bus, refunded, events.ProfileEdited)
	return &claim, nil
}

// PendingUnnotified returns pending claims nobody has been told about yet.
func (s *RewardService) PendingUnnotified(ctx context.Context, limit int) ([]models.RewardClaim, error) {
	var claims []models.RewardClaim
	err := s.DB.WithContext(ctx).
		Where("status = ? AND notified_at IS NULL", models.ClaimStatusPending).
		Order("claimed_at ASC").
		Limit(limit).
		Find(&claims).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "listing unnotified claims")
	}
	return claims, nil
}

func (s *RewardService) MarkNotified(ctx context.Context, claimID string, at time.Time) error {
	err := s.DB.WithContext(ctx).
		Model(&models.RewardClaim{}).
		Where("id = ?", claimID).
		Update("notified_at", at).Error
	return apperrors.FromDB(err, "marking claim notified")
}
