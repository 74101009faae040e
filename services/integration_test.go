//go:build integration

package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"raid-dashboard/apperrors"
	"raid-dashboard/events"
	"raid-dashboard/games"
	"raid-dashboard/models"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("raid_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("failed to start container: %v", err)
	}

	code := func() int {
		defer func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				log.Printf("failed to terminate container: %v", err)
			}
		}()

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			log.Printf("failed to get connection string: %v", err)
			return 1
		}
		testDB, err = gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			log.Printf("failed to connect: %v", err)
			return 1
		}
		if err := testDB.AutoMigrate(
			&models.Profile{}, &models.RankDefinition{}, &models.RaidAction{},
			&models.Poll{}, &models.PollOption{}, &models.Vote{}, &models.RewardClaim{},
		); err != nil {
			log.Printf("failed to migrate: %v", err)
			return 1
		}
		if err := NewProgressionService(testDB, nil).SeedRanks(ctx); err != nil {
			log.Printf("failed to seed: %v", err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

func newProfile(t *testing.T, xp int64, rank int, points int64) *models.Profile {
	t.Helper()
	id := uuid.NewString()
	p := &models.Profile{
		ID:          id,
		Username:    "user_" + id[:8],
		CurrentXP:   xp,
		CurrentRank: rank,
		RaidPoints:  points,
	}
	if err := testDB.Create(p).Error; err != nil {
		t.Fatalf("creating profile: %v", err)
	}
	return p
}

func reload(t *testing.T, id string) models.Profile {
	t.Helper()
	var p models.Profile
	if err := testDB.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("reloading profile: %v", err)
	}
	return p
}

func TestAwardXP_RankUpExample(t *testing.T) {
	bus := events.NewProfileBus()
	updates, cancel := bus.Subscribe()
	defer cancel()

	p := newProfile(t, 950, 1, 0)
	res, err := NewProgressionService(testDB, bus).AwardXP(context.Background(), p.ID, 100, "test")
	if err != nil {
		t.Fatalf("AwardXP: %v", err)
	}
	if !res.RankedUp || res.RanksGained != 1 || res.PointsEarned != 50 {
		t.Errorf("result = %+v", res)
	}

	got := reload(t, p.ID)
	if got.CurrentRank != 2 || got.CurrentXP != 50 || got.RaidPoints != 50 {
		t.Errorf("profile = rank %d xp %d points %d", got.CurrentRank, got.CurrentXP, got.RaidPoints)
	}

	select {
	case ev := <-updates:
		if ev.UserID != p.ID || ev.Change != events.ProfileXPCredited || ev.CurrentRank != 2 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Error("no profile event published")
	}
}

func TestAwardXP_Errors(t *testing.T) {
	svc := NewProgressionService(testDB, nil)
	ctx := context.Background()

	if _, err := svc.AwardXP(ctx, uuid.NewString(), 10, "test"); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Errorf("missing profile: got %v", err)
	}
	p := newProfile(t, 0, 1, 0)
	if _, err := svc.AwardXP(ctx, p.ID, 0, "test"); !apperrors.Is(err, apperrors.KindInvalid) {
		t.Errorf("zero delta: got %v", err)
	}
}

func TestAwardXP_ConcurrentCreditsAreNotLost(t *testing.T) {
	p := newProfile(t, 0, 1, 0)
	svc := NewProgressionService(testDB, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AwardXP(context.Background(), p.ID, 100, "concurrent"); err != nil {
				t.Errorf("AwardXP: %v", err)
			}
		}()
	}
	wg.Wait()

	// 2000 XP: 1000 buys rank 2, 1000 carries over (rank 3 needs 2500).
	got := reload(t, p.ID)
	if got.CurrentRank != 2 || got.CurrentXP != 1000 || got.RaidPoints != 50 {
		t.Fatalf("profile = rank %d xp %d points %d", got.CurrentRank, got.CurrentXP, got.RaidPoints)
	}
}

func TestSpend(t *testing.T) {
	svc := NewPointsService(testDB, nil)
	ctx := context.Background()
	p := newProfile(t, 0, 1, 100)

	if _, err := svc.Spend(ctx, p.ID, 150, "test"); !apperrors.Is(err, apperrors.KindInsufficientPoints) {
		t.Fatalf("overspend: got %v", err)
	}
	if bal, _ := svc.Balance(ctx, p.ID); bal != 100 {
		t.Fatalf("balance after failed spend = %d", bal)
	}

	remaining, err := svc.Spend(ctx, p.ID, 40, "test")
	if err != nil || remaining != 60 {
		t.Fatalf("Spend = %d, %v", remaining, err)
	}
	if _, err := svc.Spend(ctx, uuid.NewString(), 1, "test"); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("missing profile: got %v", err)
	}
}

func TestSpend_ConcurrentNeverOverdraws(t *testing.T) {
	svc := NewPointsService(testDB, nil)
	p := newProfile(t, 0, 1, 100)

	var ok int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Spend(context.Background(), p.ID, 30, "race"); err == nil {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()

	if ok != 3 {
		t.Fatalf("%d spends succeeded, want 3", ok)
	}
	if got := reload(t, p.ID); got.RaidPoints != 10 {
		t.Fatalf("balance = %d, want 10", got.RaidPoints)
	}
}

func TestRaidLogAction_DuplicateIsConflict(t *testing.T) {
	svc := NewRaidService(testDB, nil)
	ctx := context.Background()
	p := newProfile(t, 0, 1, 0)

	res, err := svc.LogAction(ctx, p.ID, "https://x.com/raidhq/status/1790000000000000001", models.RaidActionRetweet)
	if err != nil {
		t.Fatalf("LogAction: %v", err)
	}
	if res.Action.TweetID != "1790000000000000001" || res.XP.Profile.CurrentXP != 15 {
		t.Errorf("result = %+v / %+v", res.Action, res.XP.Profile)
	}

	if _, err := svc.LogAction(ctx, p.ID, "1790000000000000001", models.RaidActionRetweet); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("duplicate: got %v", err)
	}
	if _, err := svc.LogAction(ctx, p.ID, "1790000000000000001", models.RaidActionLike); err != nil {
		t.Fatalf("other action on same tweet: %v", err)
	}

	if got := reload(t, p.ID); got.CurrentXP != 20 {
		t.Fatalf("xp = %d, want 20", got.CurrentXP)
	}

	actions, err := svc.ListActions(ctx, p.ID, 10)
	if err != nil || len(actions) != 2 {
		t.Fatalf("ListActions = %d, %v", len(actions), err)
	}
	verified, err := svc.Verify(ctx, actions[0].ID)
	if err != nil || !verified.Verified {
		t.Fatalf("Verify = %+v, %v", verified, err)
	}
}

func TestVoting(t *testing.T) {
	svc := NewVoteService(testDB)
	ctx := context.Background()

	poll, err := svc.CreatePoll(ctx, CreatePollRequest{Question: "Next raid target?", Options: []string{"Alpha", "Beta"}})
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if poll.Slug != "next-raid-target" {
		t.Errorf("slug = %q", poll.Slug)
	}
	again, err := svc.CreatePoll(ctx, CreatePollRequest{Question: "Next raid target?", Options: []string{"A", "B"}})
	if err != nil || again.Slug == poll.Slug {
		t.Fatalf("second poll slug %q, %v", again.Slug, err)
	}

	alice, bob := newProfile(t, 0, 1, 0), newProfile(t, 0, 1, 0)
	alpha, beta := poll.Options[0].ID, poll.Options[1].ID

	if _, err := svc.Cast(ctx, alice.ID, poll.ID, alpha); err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if _, err := svc.Cast(ctx, alice.ID, poll.Slug, beta); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("second vote: got %v", err)
	}
	if _, err := svc.Cast(ctx, bob.ID, poll.ID, again.Options[0].ID); !apperrors.Is(err, apperrors.KindInvalid) {
		t.Fatalf("foreign option: got %v", err)
	}
	if _, err := svc.Cast(ctx, bob.ID, poll.ID, alpha); err != nil {
		t.Fatalf("Cast: %v", err)
	}

	res, err := svc.Results(ctx, poll.ID, alice.ID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if res.TotalVotes != 2 || res.Options[0].Votes != 2 || res.Options[1].Votes != 0 {
		t.Errorf("tally = %+v", res.Options)
	}
	if res.MyOptionID == nil || *res.MyOptionID != alpha {
		t.Errorf("my option = %v", res.MyOptionID)
	}

	svc.Now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	closes := time.Now().Add(24 * time.Hour)
	closed, _ := svc.CreatePoll(ctx, CreatePollRequest{Question: "Closed poll here", Options: []string{"x", "y"}, ClosesAt: &closes})
	if _, err := svc.Cast(ctx, bob.ID, closed.ID, closed.Options[0].ID); !apperrors.Is(err, apperrors.KindInvalid) {
		t.Fatalf("closed poll: got %v", err)
	}
}

func TestCreatePoll_SlugSuffixAlreadyTaken(t *testing.T) {
	svc := NewVoteService(testDB)
	ctx := context.Background()

	numbered, err := svc.CreatePoll(ctx, CreatePollRequest{Question: "Best meme 2", Options: []string{"a", "b"}})
	if err != nil || numbered.Slug != "best-meme-2" {
		t.Fatalf("first poll = %v, %v", numbered, err)
	}
	plain, err := svc.CreatePoll(ctx, CreatePollRequest{Question: "Best meme", Options: []string{"a", "b"}})
	if err != nil || plain.Slug != "best-meme" {
		t.Fatalf("second poll = %v, %v", plain, err)
	}
	again, err := svc.CreatePoll(ctx, CreatePollRequest{Question: "Best meme", Options: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("third poll rejected: %v", err)
	}
	if again.Slug != "best-meme-3" {
		t.Fatalf("third poll slug = %q, want best-meme-3", again.Slug)
	}
}

func TestRewardClaimLifecycle(t *testing.T) {
	svc := NewRewardService(testDB, nil)
	ctx := context.Background()
	req := ClaimRequest{RewardType: "token_small", WalletAddress: "So1anaWa11etAddre55xxxxxxxxxxxxxxxxxxxx"}

	poor := newProfile(t, 0, 1, 100)
	if _, err := svc.Claim(ctx, poor.ID, req); !apperrors.Is(err, apperrors.KindInsufficientPoints) {
		t.Fatalf("poor claim: got %v", err)
	}
	if claims, _ := svc.ListClaims(ctx, poor.ID); len(claims) != 0 {
		t.Fatalf("failed claim left %d rows", len(claims))
	}

	rich := newProfile(t, 0, 1, 1200)
	claim, err := svc.Claim(ctx, rich.ID, req)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.Status != models.ClaimStatusPending || claim.PointsSpent != 500 || claim.Username != rich.Username {
		t.Errorf("claim = %+v", claim)
	}
	if got := reload(t, rich.ID); got.RaidPoints != 700 {
		t.Fatalf("balance = %d", got.RaidPoints)
	}

	pending, err := svc.PendingUnnotified(ctx, 100)
	if err != nil {
		t.Fatalf("PendingUnnotified: %v", err)
	}
	found := false
	for _, c := range pending {
		found = found || c.ID == claim.ID
	}
	if !found {
		t.Fatal("new claim not listed as unnotified")
	}
	if err := svc.MarkNotified(ctx, claim.ID, time.Now()); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	if _, err := svc.UpdateClaimStatus(ctx, claim.ID, models.ClaimStatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := reload(t, rich.ID); got.RaidPoints != 1200 {
		t.Fatalf("balance after refund = %d", got.RaidPoints)
	}
	if _, err := svc.UpdateClaimStatus(ctx, claim.ID, models.ClaimStatusFulfilled); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("second transition: got %v", err)
	}

	all, total, err := svc.ListAllClaims(ctx, ClaimFilter{Status: models.ClaimStatusRejected})
	if err != nil || total < 1 || len(all) < 1 {
		t.Fatalf("ListAllClaims = %d/%d, %v", len(all), total, err)
	}
}

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }
func (constSource) Intn(int) int       { return 0 }

func TestMinigamePlay(t *testing.T) {
	catalog, err := games.NewCatalog(games.DefaultGames...)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewMinigameService(testDB, nil, catalog, constSource(0.99))
	ctx := context.Background()

	game := catalog[games.Dice]
	p := newProfile(t, 0, 1, game.PointsCost)
	res, err := svc.Play(ctx, p.ID, games.Dice, 0)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	// A draw of 99 lands in the last bucket.
	wantPrize := game.Table.Entries[len(game.Table.Entries)-1].Prize
	if res.Prize != wantPrize || res.PointsSpent != game.PointsCost {
		t.Errorf("result = %+v", res)
	}
	got := reload(t, p.ID)
	if got.RaidPoints != 0 || got.CurrentXP != wantPrize {
		t.Errorf("profile = points %d xp %d", got.RaidPoints, got.CurrentXP)
	}

	if _, err := svc.Play(ctx, p.ID, games.Dice, 0); !apperrors.Is(err, apperrors.KindInsufficientPoints) {
		t.Fatalf("broke play: got %v", err)
	}
	if _, err := svc.Play(ctx, p.ID, games.Kind("roulette"), 0); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("unknown game: got %v", err)
	}
}

func TestMinigamePlay_FreeGame(t *testing.T) {
	free := games.Game{
		Kind: games.CoinFlip, Title: "Free Flip", PointsCost: 0,
		Table: games.Table{Entries: []games.Entry{{Prize: 0, Weight: 50}, {Prize: 10, Weight: 50}}},
	}
	catalog, err := games.NewCatalog(free)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	svc := NewMinigameService(testDB, nil, catalog, constSource(0.99))
	ctx := context.Background()

	p := newProfile(t, 0, 1, 0)
	res, err := svc.Play(ctx, p.ID, games.CoinFlip, 0)
	if err != nil {
		t.Fatalf("free play with no points: %v", err)
	}
	if res.PointsSpent != 0 || res.Prize != 10 {
		t.Errorf("result = %+v", res)
	}
	if got := reload(t, p.ID); got.RaidPoints != 0 || got.CurrentXP != 10 {
		t.Errorf("profile = points %d xp %d", got.RaidPoints, got.CurrentXP)
	}
	if _, err := svc.Play(ctx, uuid.NewString(), games.CoinFlip, 0); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("missing profile: got %v", err)
	}
}

func TestProfileEnsureAndUpdate(t *testing.T) {
	svc := NewProfileService(testDB, nil, nil)
	ctx := context.Background()
	id := uuid.NewString()

	p, err := svc.Ensure(ctx, id, fmt.Sprintf("raider%s@example.com", id[:4]))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if p.CurrentRank != 1 || p.CurrentXP != 0 || p.RaidPoints != 0 {
		t.Errorf("default profile = %+v", p)
	}
	again, err := svc.Ensure(ctx, id, "")
	if err != nil || again.Username != p.Username {
		t.Fatalf("second Ensure = %+v, %v", again, err)
	}

	country, handle := "de", "@raid_hq"
	updated, err := svc.Update(ctx, id, ProfileUpdate{Country: &country, XHandle: &handle})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Country != "DE" || updated.XHandle != "raid_hq" {
		t.Errorf("updated = %+v", updated)
	}

	other := newProfile(t, 0, 1, 0)
	taken := other.Username
	if _, err := svc.Update(ctx, id, ProfileUpdate{Username: &taken}); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("taken username: got %v", err)
	}

	board, err := svc.Leaderboard(ctx, 100)
	if err != nil || len(board) == 0 || board[0].Position != 1 {
		t.Fatalf("Leaderboard = %v, %v", board, err)
	}
	for i := 1; i < len(board); i++ {
		prev, cur := board[i-1], board[i]
		if cur.CurrentRank > prev.CurrentRank || (cur.CurrentRank == prev.CurrentRank && cur.CurrentXP > prev.CurrentXP) {
			t.Fatalf("leaderboard out of order at %d", i)
		}
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, id); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("after delete: got %v", err)
	}
}
