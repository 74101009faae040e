package services

import (
	"math/rand"
	"testing"

	"raid-dashboard/models"
)

var testLadder = []models.RankDefinition{
	{RankID: 1, RankName: "Recruit", XPRequired: 0},
	{RankID: 2, RankName: "Scout", XPRequired: 1000, RewardPoints: 50},
	{RankID: 3, RankName: "Raider", XPRequired: 2500, RewardPoints: 100},
	{RankID: 4, RankName: "Vanguard", XPRequired: 5000, RewardPoints: 200},
}

func TestApplyXP(t *testing.T) {
	tests := []struct {
		name       string
		state      ProgressState
		delta      int64
		wantState  ProgressState
		wantRanks  int
		wantPoints int64
	}{
		{"below threshold", ProgressState{XP: 100, Rank: 1}, 50, ProgressState{XP: 150, Rank: 1}, 0, 0},
		{"crosses with carry over", ProgressState{XP: 950, Rank: 1}, 100, ProgressState{XP: 50, Rank: 2}, 1, 50},
		{"lands exactly on threshold", ProgressState{XP: 900, Rank: 1}, 100, ProgressState{XP: 0, Rank: 2}, 1, 50},
		{"multiple ranks at once", ProgressState{XP: 0, Rank: 1}, 3600, ProgressState{XP: 100, Rank: 3}, 2, 150},
		{"max rank accumulates", ProgressState{XP: 10, Rank: 4}, 99999, ProgressState{XP: 100009, Rank: 4}, 0, 0},
		{"reaches max rank and keeps excess", ProgressState{XP: 0, Rank: 3}, 7000, ProgressState{XP: 2000, Rank: 4}, 1, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, up := ApplyXP(tt.state, testLadder, tt.delta)
			if got != tt.wantState {
				t.Errorf("state = %+v, want %+v", got, tt.wantState)
			}
			if up.RanksGained != tt.wantRanks || up.PointsEarned != tt.wantPoints {
				t.Errorf("rank up = %+v, want ranks=%d points=%d", up, tt.wantRanks, tt.wantPoints)
			}
		})
	}
}

func TestApplyXP_UnorderedLadder(t *testing.T) {
	shuffled := []models.RankDefinition{testLadder[3], testLadder[1], testLadder[0], testLadder[2]}
	got, up := ApplyXP(ProgressState{XP: 950, Rank: 1}, shuffled, 100)
	if got != (ProgressState{XP: 50, Rank: 2}) || up.PointsEarned != 50 {
		t.Fatalf("got %+v %+v", got, up)
	}
}

func TestApplyXP_SplitCreditsMatchSingleCredit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		start := ProgressState{XP: rng.Int63n(1000), Rank: 1}
		a := rng.Int63n(6000) + 1
		b := rng.Int63n(6000) + 1

		mid, up1 := ApplyXP(start, testLadder, a)
		split, up2 := ApplyXP(mid, testLadder, b)
		whole, upAll := ApplyXP(start, testLadder, a+b)

		if split != whole {
			t.Fatalf("start=%+v a=%d b=%d: split %+v != whole %+v", start, a, b, split, whole)
		}
		if up1.PointsEarned+up2.PointsEarned != upAll.PointsEarned {
			t.Fatalf("start=%+v a=%d b=%d: points %d+%d != %d", start, a, b, up1.PointsEarned, up2.PointsEarned, upAll.PointsEarned)
		}
		if up1.RanksGained+up2.RanksGained != upAll.RanksGained {
			t.Fatalf("ranks gained differ for a=%d b=%d", a, b)
		}
	}
}

func TestApplyXP_KeepsXPBelowNextThreshold(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	state := ProgressState{Rank: 1}
	for i := 0; i < 500; i++ {
		state, _ = ApplyXP(state, testLadder, rng.Int63n(400)+1)
		if state.Rank < len(testLadder) && state.XP >= testLadder[state.Rank].XPRequired {
			t.Fatalf("state %+v holds enough xp for the next rank", state)
		}
	}
}
