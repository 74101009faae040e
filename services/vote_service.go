package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"raid-dashboard/apperrors"
	"raid-dashboard/logger"
	"raid-dashboard/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type CreatePollRequest struct {
	Question string     `json:"question" validate:"required,min=5,max=280"`
	Options  []string   `json:"options" validate:"required,min=2,max=10,dive,required,max=120"`
	ClosesAt *time.Time `json:"closes_at"`
}

type OptionTally struct {
	OptionID string `json:"option_id"`
	Label    string `json:"label"`
	Votes    int64  `json:"votes"`
}

type PollResults struct {
	Poll       *models.Poll  `json:"poll"`
	Options    []OptionTally `json:"options"`
	TotalVotes int64         `json:"total_votes"`
	MyOptionID *string       `json:"my_option_id,omitempty"`
}

type VoteService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewVoteService(db *gorm.DB) *VoteService {
	return &VoteService{DB: db, Now: time.Now}
}

const slugAttempts = 3

// freeSlug returns base, or the first base-N (N >= 2) not in taken.
func freeSlug(base string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, t := range taken {
		used[t] = true
	}
	if !used[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !used[candidate] {
			return candidate
		}
	}
}

// CreatePoll stores a poll with its options. The slug is derived from the
// question and suffixed on collision.
func (s *VoteService) CreatePoll(ctx context.Context, req CreatePollRequest) (*models.Poll, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" || len(req.Options) < 2 {
		return nil, apperrors.Invalid("a poll needs a question and at least two options")
	}

	poll := &models.Poll{
		ID:       uuid.NewString(),
		Question: question,
		ClosesAt: req.ClosesAt,
	}
	for i, label := range req.Options {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, apperrors.Invalid("option labels cannot be empty")
		}
		poll.Options = append(poll.Options, models.PollOption{
			ID:       uuid.NewString(),
			PollID:   poll.ID,
			Label:    label,
			Position: i,
		})
	}

	base := slug.Make(question)
	if base == "" {
		base = "poll"
	}

	var err error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var taken []string
			if err := tx.Model(&models.Poll{}).
				Where("slug = ? OR slug LIKE ?", base, base+"-%").
				Pluck("slug", &taken).Error; err != nil {
				return err
			}
			poll.Slug = freeSlug(base, taken)
			return tx.Create(poll).Error
		})
		// a concurrent poll may have taken the slug between the check and the insert
		if err == nil || !apperrors.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return nil, apperrors.FromDB(err, "creating poll")
	}

	logger.Infof("[VOTES] poll %s created with %d options", poll.Slug, len(poll.Options))
	return poll, nil
}

// GetPoll accepts either the poll id or its slug.
func (s *VoteService) GetPoll(ctx context.Context, ref string) (*models.Poll, error) {
	var poll models.Poll
	q := s.DB.WithContext(ctx).Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
	if _, err := uuid.Parse(ref); err == nil {
		q = q.Where("id = ?", ref)
	} else {
		q = q.Where("slug = ?", ref)
	}
	if err := q.First(&poll).Error; err != nil {
		return nil, apperrors.FromDB(err, "poll not found")
	}
	return &poll, nil
}

// Cast records the caller's vote. One vote per user per poll is enforced by the
// ux_vote_poll_user index.
func (s *VoteService) Cast(ctx context.Context, userID, pollRef, optionID string) (*models.Vote, error) {
	poll, err := s.GetPoll(ctx, pollRef)
	if err != nil {
		return nil, err
	}
	if !poll.IsOpen(s.Now()) {
		return nil, apperrors.Invalid("poll is closed")
	}

	valid := false
	for _, o := range poll.Options {
		if o.ID == optionID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, apperrors.Invalid("option does not belong to this poll")
	}

	vote := &models.Vote{
		ID:       uuid.NewString(),
		PollID:   poll.ID,
		OptionID: optionID,
		UserID:   userID,
	}
	if err := s.DB.WithContext(ctx).Create(vote).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.New(apperrors.KindConflict, "already voted", err)
		}
		return nil, apperrors.FromDB(err, "casting vote")
	}
	return vote, nil
}

// Results tallies votes per option. userID may be empty for anonymous callers.
func (s *VoteService) Results(ctx context.Context, pollRef, userID string) (*PollResults, error) {
	poll, err := s.GetPoll(ctx, pollRef)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		OptionID string
		Votes    int64
	}
	err = s.DB.WithContext(ctx).
		Model(&models.Vote{}).
		Select("option_id, COUNT(*) AS votes").
		Where("poll_id = ?", poll.ID).
		Group("option_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "tallying votes")
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.OptionID] = r.Votes
	}

	out := &PollResults{Poll: poll}
	for _, o := range poll.Options {
		n := counts[o.ID]
		out.Options = append(out.Options, OptionTally{OptionID: o.ID, Label: o.Label, Votes: n})
		out.TotalVotes += n
	}

	if userID != "" {
		var mine models.Vote
		err := s.DB.WithContext(ctx).Where("poll_id = ? AND user_id = ?", poll.ID, userID).Limit(1).Find(&mine).Error
		if err != nil {
			return nil, apperrors.FromDB(err, "loading own vote")
		}
		if mine.ID != "" {
			out.MyOptionID = &mine.OptionID
		}
	}
	return out, nil
}
