package services

import (
	"context"
	"regexp"
	"strings"

	"raid-dashboard/apperrors"
	"raid-dashboard/events"
	"raid-dashboard/logger"
	"raid-dashboard/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	tweetIDPattern  = regexp.MustCompile(`^[0-9]{1,25}$`)
	tweetURLPattern = regexp.MustCompile(`(?i)^https?://(?:www\.|mobile\.)?(?:x|twitter)\.com/[^/]+/status(?:es)?/([0-9]{1,25})`)
)

// NormalizeTweetID accepts a bare status id or a tweet URL and returns the id.
func NormalizeTweetID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if tweetIDPattern.MatchString(raw) {
		return raw, nil
	}
	if m := tweetURLPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	return "", apperrors.Invalid("tweet_id must be a status id or tweet url")
}

type RaidActionResult struct {
	Action *models.RaidAction `json:"action"`
	XP     *XPResult          `json:"xp"`
}

type RaidService struct {
	DB  *gorm.DB
	Bus *events.ProfileBus
}

func NewRaidService(db *gorm.DB, bus *events.ProfileBus) *RaidService {
	return &RaidService{DB: db, Bus: bus}
}

// LogAction records an engagement and credits its XP. The unique index on
// (user_id, tweet_id, action_type) decides duplicates.
func (s *RaidService) LogAction(ctx context.Context, userID, tweetRef string, actionType models.RaidActionType) (*RaidActionResult, error) {
	xp, ok := models.RaidActionXP[actionType]
	if !ok {
		return nil, apperrors.Invalid("action_type must be like, reply or retweet")
	}
	tweetID, err := NormalizeTweetID(tweetRef)
	if err != nil {
		return nil, err
	}

	action := &models.RaidAction{
		ID:         uuid.NewString(),
		UserID:     userID,
		TweetID:    tweetID,
		ActionType: actionType,
		XPEarned:   xp,
	}

	var result *XPResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(action).Error; err != nil {
			if apperrors.IsUniqueViolation(err) {
				return apperrors.New(apperrors.KindConflict, "action already logged", err)
			}
			return apperrors.FromDB(err, "logging raid action")
		}
		var err error
		result, err = awardXPTx(tx, userID, xp)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"tweet_id": tweetID,
		"action":   actionType,
		"xp":       xp,
	}).Info("[RAIDS] action logged")

	publishProfile(s.Bus, result.Profile, events.ProfileXPCredited)
	return &RaidActionResult{Action: action, XP: result}, nil
}

func (s *RaidService) ListActions(ctx context.Context, userID string, limit int) ([]models.RaidAction, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var actions []models.RaidAction
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&actions).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "listing raid actions")
	}
	return actions, nil
}

// Verify marks an action as checked by an admin.
func (s *RaidService) Verify(ctx context.Context, actionID string) (*models.RaidAction, error) {
	var action models.RaidAction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", actionID).First(&action).Error; err != nil {
			return apperrors.FromDB(err, "raid action not found")
		}
		if action.Verified {
			return nil
		}
		action.Verified = true
		return apperrors.FromDB(
			tx.Model(&models.RaidAction{}).Where("id = ?", actionID).Update("verified", true).Error,
			"verifying raid action",
		)
	})
	if err != nil {
		return nil, err
	}
	return &action, nil
}
