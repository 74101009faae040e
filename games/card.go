package games

// CardCount is the number of face-down cards in Pick a Card.
const CardCount = 3

// DealCards lays out the Pick a Card board: one card is forced to zero, the
// other two draw independently from t, then the three are shuffled. At most two
// cards can ever pay out.
func DealCards(t Table, src Source) [CardCount]int64 {
	var cards [CardCount]int64
	cards[0] = 0
	for i := 1; i < CardCount; i++ {
		cards[i] = t.Draw(src)
	}
	for i := CardCount - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return cards
}
