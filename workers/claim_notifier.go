package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"raid-dashboard/logger"
	"raid-dashboard/models"
	"raid-dashboard/services"

	"github.com/sirupsen/logrus"
)

type ClaimSource interface {
	PendingUnnotified(ctx context.Context, limit int) ([]models.RewardClaim, error)
	MarkNotified(ctx context.Context, claimID string, at time.Time) error
}

type Mailer interface {
	Send(ctx context.Context, msg services.EmailMessage) (map[string]interface{}, error)
}

// ClaimNotifier emails the operator about new reward claims.
type ClaimNotifier struct {
	Claims    ClaimSource
	Mailer    Mailer
	To        string
	Interval  time.Duration
	BatchSize int
	now       func() time.Time
}

func NewClaimNotifier(claims ClaimSource, mailer Mailer, to string, interval time.Duration) *ClaimNotifier {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ClaimNotifier{
		Claims:    claims,
		Mailer:    mailer,
		To:        to,
		Interval:  interval,
		BatchSize: 25,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled.
func (n *ClaimNotifier) Run(ctx context.Context) {
	logger.Infof("[CLAIMS] notifier started (every %s, to %s)", n.Interval, n.To)
	ticker := time.NewTicker(n.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[CLAIMS] notifier stopped")
			return
		case <-ticker.C:
			n.Tick(ctx)
		}
	}
}

// Tick sends one email per pending claim and stamps it. A failed send leaves
// the claim for the next tick. Returns how many claims were notified.
func (n *ClaimNotifier) Tick(ctx context.Context) int {
	claims, err := n.Claims.PendingUnnotified(ctx, n.BatchSize)
	if err != nil {
		logger.Errorf("[CLAIMS] loading pending claims: %v", err)
		return 0
	}

	sent := 0
	for _, claim := range claims {
		log := logger.WithFields(logrus.Fields{"claim_id": claim.ID, "user_id": claim.UserID})

		if _, err := n.Mailer.Send(ctx, claimEmail(n.To, claim)); err != nil {
			log.Warnf("[CLAIMS] notify failed: %v", err)
			continue
		}
		if err := n.Claims.MarkNotified(ctx, claim.ID, n.now().UTC()); err != nil {
			log.Errorf("[CLAIMS] marking notified: %v", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		logger.Infof("[CLAIMS] notified %d claim(s)", sent)
	}
	return sent
}

func claimEmail(to string, c models.RewardClaim) services.EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "New reward claim %s\n\n", c.ID)
	fmt.Fprintf(&b, "User: %s (%s)\n", c.Username, c.UserID)
	if c.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", c.Email)
	}
	fmt.Fprintf(&b, "Reward: %s x %s\n", c.RewardType, c.RewardAmount.String())
	fmt.Fprintf(&b, "Points spent: %d\n", c.PointsSpent)
	fmt.Fprintf(&b, "Wallet: %s\n", c.WalletAddress)
	fmt.Fprintf(&b, "Claimed at: %s\n", c.ClaimedAt.UTC().Format(time.RFC3339))

	return services.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Reward claim: %s for %s", c.RewardType, c.Username),
		Body:    b.String(),
	}
}
