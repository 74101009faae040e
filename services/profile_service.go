package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"raid-dashboard/apperrors"
	"raid-dashboard/events"
	"raid-dashboard/logger"
	"raid-dashboard/models"

	"github.com/google/uuid"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 32
	MaxAvatarBytes = 2 << 20
)

var (
	usernameStrip = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
	xHandleRe     = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

	avatarExt = map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
)

// AvatarStore persists avatar images and returns their public URL.
type AvatarStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ProfileUpdate carries the editable fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	Username   *string `json:"username"`
	AvatarName *string `json:"avatar_name" validate:"omitempty,max=64"`
	Country    *string `json:"country"`
	XHandle    *string `json:"x_handle"`
}

type LeaderboardEntry struct {
	Position    int    `json:"position"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Country     string `json:"country,omitempty"`
	CurrentRank int    `json:"current_rank"`
	CurrentXP   int64  `json:"current_xp"`
}

type ProfileService struct {
	DB      *gorm.DB
	Bus     *events.ProfileBus
	Avatars AvatarStore
}

func NewProfileService(db *gorm.DB, bus *events.ProfileBus, avatars AvatarStore) *ProfileService {
	return &ProfileService{DB: db, Bus: bus, Avatars: avatars}
}

// NormalizeUsername folds to ASCII, turns spaces into underscores and drops
// anything outside [A-Za-z0-9_.-].
func NormalizeUsername(raw string) (string, error) {
	s := unidecode.Unidecode(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), "_")
	s = usernameStrip.ReplaceAllString(s, "")
	if len(s) < MinUsernameLen || len(s) > MaxUsernameLen {
		return "", apperrors.Invalid(fmt.Sprintf("username must be %d-%d characters", MinUsernameLen, MaxUsernameLen))
	}
	return s, nil
}

// NormalizeCountry returns the canonical ISO 3166-1 region code. Empty clears.
func NormalizeCountry(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	region, err := language.ParseRegion(raw)
	if err != nil || !region.IsCountry() {
		return "", apperrors.Invalid("country must be an ISO 3166 country code")
	}
	return region.String(), nil
}

func NormalizeXHandle(raw string) (string, error) {
	h := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if h == "" {
		return "", nil
	}
	if !xHandleRe.MatchString(h) {
		return "", apperrors.Invalid("x_handle must be 1-15 letters, digits or underscores")
	}
	return h, nil
}

// defaultUsername derives a username from the email local part, falling back
// to the user id.
func defaultUsername(userID, email string) string {
	local, _, _ := strings.Cut(email, "@")
	if name, err := NormalizeUsername(local); err == nil {
		if len(name) > MaxUsernameLen-7 {
			name = name[:MaxUsernameLen-7]
		}
		return name
	}
	return "raider_" + shortID(userID, 8)
}

func shortID(id string, n int) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > n {
		return id[:n]
	}
	return id
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, apperrors.FromDB(err, "profile not found")
	}
	return &p, nil
}

// Ensure returns the caller's profile, creating a rank 1 profile on first use.
func (s *ProfileService) Ensure(ctx context.Context, userID, email string) (*models.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, err
	}

	base := defaultUsername(userID, email)
	candidates := []string{base, base + "_" + shortID(userID, 6)}

	for _, name := range candidates {
		profile := models.Profile{
			ID:          userID,
			Username:    name,
			CurrentRank: 1,
		}
		res := s.DB.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
			Create(&profile)
		if res.Error != nil {
			if apperrors.IsUniqueViolation(res.Error) {
				continue
			}
			return nil, apperrors.FromDB(res.Error, "creating profile")
		}
		if res.RowsAffected == 0 {
			// created concurrently
			return s.Get(ctx, userID)
		}
		logger.Infof("[PROFILE] created profile %s (%s)", userID, name)
		publishProfile(s.Bus, &profile, events.ProfileCreated)
		return &profile, nil
	}
	return nil, apperrors.Conflict("could not allocate a username")
}

// Update applies the non-nil fields of upd after normalising them.
func (s *ProfileService) Update(ctx context.Context, userID string, upd ProfileUpdate) (*models.Profile, error) {
	changes := map[string]interface{}{}

	if upd.Username != nil {
		name, err := NormalizeUsername(*upd.Username)
		if err != nil {
			return nil, err
		}
		changes["username"] = name
	}
	if upd.AvatarName != nil {
		changes["avatar_name"] = strings.TrimSpace(*upd.AvatarName)
	}
	if upd.Country != nil {
		country, err := NormalizeCountry(*upd.Country)
		if err != nil {
			return nil, err
		}
		changes["country"] = country
	}
	if upd.XHandle != nil {
		handle, err := NormalizeXHandle(*upd.XHandle)
		if err != nil {
			return nil, err
		}
		changes["x_handle"] = handle
	}
	if len(changes) == 0 {
		return s.Get(ctx, userID)
	}
	changes["updated_at"] = time.Now()

	res := s.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", userID).Updates(changes)
	if res.Error != nil {
		if apperrors.IsUniqueViolation(res.Error) {
			return nil, apperrors.New(apperrors.KindConflict, "username already taken", res.Error)
		}
		return nil, apperrors.FromDB(res.Error, "updating profile")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("profile not found")
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	publishProfile(s.Bus, p, events.ProfileEdited)
	return p, nil
}

// UploadAvatar stores an image under avatars/<user>/<uuid><ext> and records its URL.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, body []byte) (*models.Profile, error) {
	if s.Avatars == nil {
		return nil, apperrors.Unavailable("avatar storage is not configured")
	}
	if len(body) == 0 {
		return nil, apperrors.Invalid("empty file")
	}
	if len(body) > MaxAvatarBytes {
		return nil, apperrors.Invalid("avatar exceeds 2MB")
	}

	contentType := http.DetectContentType(body)
	ext, ok := avatarExt[contentType]
	if !ok {
		return nil, apperrors.Invalid("avatar must be png, jpeg, gif or webp")
	}

	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), ext)
	url, err := s.Avatars.Put(ctx, key, body, contentType)
	if err != nil {
		return nil, apperrors.New(apperrors.KindUpstream, "avatar upload failed", err)
	}

	res := s.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"avatar_url": url, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, apperrors.FromDB(res.Error, "saving avatar url")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("profile not found")
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	publishProfile(s.Bus, p, events.ProfileEdited)
	return p, nil
}

// Leaderboard ranks profiles by rank, then XP within the rank.
func (s *ProfileService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var profiles []models.Profile
	err := s.DB.WithContext(ctx).
		Order("current_rank DESC").
		Order("current_xp DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "loading leaderboard")
	}

	out := make([]LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		out[i] = LeaderboardEntry{
			Position:    i + 1,
			UserID:      p.ID,
			Username:    p.Username,
			AvatarURL:   p.AvatarURL,
			Country:     p.Country,
			CurrentRank: p.CurrentRank,
			CurrentXP:   p.CurrentXP,
		}
	}
	return out, nil
}

// Delete removes the profile row and the user's activity. Missing rows are fine.
func (s *ProfileService) Delete(ctx context.Context, userID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.Vote{}, &models.RaidAction{}, &models.Profile{}} {
			col := "user_id"
			if _, ok := m.(*models.Profile); ok {
				col = "id"
			}
			if err := tx.Where(col+" = ?", userID).Delete(m).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.FromDB(err, "deleting user data")
			}
		}
		return nil
	})
}
