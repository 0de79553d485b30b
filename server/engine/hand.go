package engine

// CalculateHand counts every Ace as 11, then demotes Aces to 1 one at a
// time while the hand is over 21.
func CalculateHand(cards []Card) HandValue {
	total, aces := 0, 0
	for _, c := range cards {
		total += c.Rank.Value()
		if c.Rank == Ace {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return HandValue{
		Total:  total,
		IsSoft: aces > 0,
		IsPair: len(cards) == 2 && cards[0].Rank == cards[1].Rank,
	}
}

// DealerValue maps the upcard to its chart column, 2..11 (11 is the Ace).
func DealerValue(c Card) int { return c.Rank.Value() }
