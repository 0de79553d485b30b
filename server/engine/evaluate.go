package engine

import "fmt"

// Evaluate is the table advisor: dealer upcard + ordered player cards in,
// verdict out. Callers guarantee at least two player cards. It has no state
// and is safe to call from any goroutine.
func Evaluate(dealer Card, player []Card) Advice {
	hv := CalculateHand(player)
	d := DealerValue(dealer)

	if hv.Total > 21 {
		zero := 0
		return Advice{
			Action:         Bust,
			Confidence:     100,
			WinProbability: &zero,
			Explanation:    fmt.Sprintf("You currently have %d. You have busted.", hv.Total),
		}
	}

	var pairRank Rank
	if len(player) > 0 {
		pairRank = player[0].Rank
	}
	rule := Lookup(hv, pairRank, len(player), d)
	action := Degrade(rule.Code, len(player), hv)
	p := WinProbability(hv, d)

	return Advice{
		Action:         action,
		Confidence:     100,
		WinProbability: &p,
		Explanation:    fmt.Sprintf("%s (Table Rule: Player %s%d vs Dealer %d)", rule.Text, softLabel(hv), hv.Total, d),
	}
}

func softLabel(hv HandValue) string {
	if hv.IsSoft {
		return "Soft "
	}
	return ""
}
