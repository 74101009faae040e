package games

import (
	"fmt"
	"sort"
)

type Kind string

const (
	SpinWheel   Kind = "spin-wheel"
	ScratchCard Kind = "scratch-card"
	Dice        Kind = "dice"
	Slots       Kind = "slots"
	CoinFlip    Kind = "coin-flip"
	PickACard   Kind = "pick-a-card"
)

// Game is a playable minigame: the points it costs and the XP table it pays from.
type Game struct {
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	PointsCost int64  `json:"points_cost"`
	Table      Table  `json:"table"`
}

// Outcome is the result of a single play.
type Outcome struct {
	Kind  Kind    `json:"kind"`
	Prize int64   `json:"prize"`
	Cards []int64 `json:"cards,omitempty"`
	// Pick is the index of the card the player turned, for Pick a Card.
	Pick *int `json:"pick,omitempty"`
}

// Play resolves one play of g. pick selects a card for Pick a Card and is
// ignored by the other games.
func (g Game) Play(src Source, pick int) (Outcome, error) {
	if g.Kind != PickACard {
		return Outcome{Kind: g.Kind, Prize: g.Table.Draw(src)}, nil
	}
	if pick < 0 || pick >= CardCount {
		return Outcome{}, fmt.Errorf("pick must be between 0 and %d", CardCount-1)
	}
	cards := DealCards(g.Table, src)
	return Outcome{
		Kind:  g.Kind,
		Prize: cards[pick],
		Cards: cards[:],
		Pick:  &pick,
	}, nil
}

// Catalog indexes games by kind.
type Catalog map[Kind]Game

// NewCatalog validates every table and indexes the games.
func NewCatalog(games ...Game) (Catalog, error) {
	c := make(Catalog, len(games))
	for _, g := range games {
		if err := g.Table.Validate(); err != nil {
			return nil, fmt.Errorf("game %s: %w", g.Kind, err)
		}
		if g.PointsCost < 0 {
			return nil, fmt.Errorf("game %s: negative cost", g.Kind)
		}
		c[g.Kind] = g
	}
	return c, nil
}

// List returns the games sorted by kind.
func (c Catalog) List() []Game {
	out := make([]Game, 0, len(c))
	for _, g := range c {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// DefaultGames are the dashboard minigames. The scratch card and slots tables
// sum to less than 100; the remainder pays nothing.
var DefaultGames = []Game{
	{
		Kind: SpinWheel, Title: "Spin the Wheel", PointsCost: 10,
		Table: Table{Entries: []Entry{
			{Prize: 0, Weight: 35}, {Prize: 10, Weight: 25}, {Prize: 20, Weight: 20},
			{Prize: 35, Weight: 12}, {Prize: 50, Weight: 6}, {Prize: 100, Weight: 2},
		}},
	},
	{
		Kind: ScratchCard, Title: "Scratch Card", PointsCost: 15,
		Table: Table{Entries: []Entry{
			{Prize: 0, Weight: 30}, {Prize: 15, Weight: 20}, {Prize: 20, Weight: 15},
			{Prize: 25, Weight: 10}, {Prize: 60, Weight: 5},
		}},
	},
	{
		Kind: Dice, Title: "Lucky Dice", PointsCost: 5,
		Table: Table{Entries: []Entry{
			{Prize: 0, Weight: 50}, {Prize: 5, Weight: 25}, {Prize: 10, Weight: 15},
			{Prize: 20, Weight: 8}, {Prize: 40, Weight: 2},
		}},
	},
	{
		Kind: Slots, Title: "Slots", PointsCost: 20,
		Table: Table{Entries: []Entry{
			{Prize: 0, Weight: 45}, {Prize: 20, Weight: 25}, {Prize: 40, Weight: 12},
			{Prize: 80, Weight: 5}, {Prize: 200, Weight: 1},
		}},
	},
	{
		Kind: CoinFlip, Title: "Coin Flip", PointsCost: 5,
		Table: Table{Entries: []Entry{
			{Prize: 0, Weight: 50}, {Prize: 10, Weight: 50},
		}},
	},
	{
		Kind: PickACard, Title: "Pick a Card", PointsCost: 10,
		Table: Table{Entries: []Entry{
			{Prize: 10, Weight: 50}, {Prize: 25, Weight: 35}, {Prize: 50, Weight: 15},
		}},
	},
}
