package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"raid-dashboard/apperrors"
	"raid-dashboard/events"
	"raid-dashboard/games"
	"raid-dashboard/logger"
	"raid-dashboard/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PlayResult struct {
	games.Outcome
	PointsSpent int64           `json:"points_spent"`
	XP          *XPResult       `json:"xp,omitempty"`
	Profile     *models.Profile `json:"profile"`
}

type MinigameService struct {
	DB      *gorm.DB
	Bus     *events.ProfileBus
	Catalog games.Catalog
	src     games.Source
}

func NewMinigameService(db *gorm.DB, bus *events.ProfileBus, catalog games.Catalog, src games.Source) *MinigameService {
	if src == nil {
		src = NewLockedSource(time.Now().UnixNano())
	}
	return &MinigameService{DB: db, Bus: bus, Catalog: catalog, src: src}
}

func (s *MinigameService) Games() []games.Game {
	return s.Catalog.List()
}

// Play charges the game's cost, resolves the play and credits any prize as XP.
// Charge and credit commit in one transaction.
func (s *MinigameService) Play(ctx context.Context, userID string, kind games.Kind, pick int) (*PlayResult, error) {
	game, ok := s.Catalog[kind]
	if !ok {
		return nil, apperrors.NotFound("unknown game")
	}

	var result PlayResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := chargeTx(tx, userID, game.PointsCost)
		if err != nil {
			return err
		}
		result.PointsSpent = game.PointsCost
		result.Profile = profile

		outcome, err := game.Play(s.src, pick)
		if err != nil {
			return apperrors.New(apperrors.KindInvalid, err.Error(), nil)
		}
		result.Outcome = outcome

		if outcome.Prize > 0 {
			xp, err := awardXPTx(tx, userID, outcome.Prize)
			if err != nil {
				return err
			}
			result.XP = xp
			result.Profile = xp.Profile
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"user_id": userID,
		"game":    kind,
		"prize":   result.Prize,
	}).Info("[GAMES] played")

	change := events.ProfilePointsSpent
	if result.XP != nil {
		change = events.ProfileXPCredited
	}
	publishProfile(s.Bus, result.Profile, change)
	return &result, nil
}

// chargeTx spends cost, or only loads the profile for a free game.
func chargeTx(tx *gorm.DB, userID string, cost int64) (*models.Profile, error) {
	if cost > 0 {
		return spendTx(tx, userID, cost)
	}
	var profile models.Profile
	if err := tx.Where("id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("profile not found")
		}
		return nil, apperrors.FromDB(err, "loading profile")
	}
	return &profile, nil
}

// lockedSource makes a *rand.Rand safe for concurrent plays.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLockedSource(seed int64) games.Source {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))}
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

func (l *lockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}
