package engine

import "fmt"

func between(d, lo, hi int) bool { return d >= lo && d <= hi }

func pick[T any](ok bool, yes, no T) T {
	if ok {
		return yes
	}
	return no
}

// Lookup is the raw basic-strategy table. It knows nothing about whether the
// action is still legal for the hand size; see Degrade for that. pairRank is
// only read when hv.IsPair and cards == 2.
func Lookup(hv HandValue, pairRank Rank, cards int, d int) Rule {
	switch {
	case hv.IsPair && cards == 2:
		return pairRule(pairRank, d)
	case hv.IsSoft:
		return softRule(hv.Total, d)
	default:
		return hardRule(hv.Total, d)
	}
}

func pairRule(r Rank, d int) Rule {
	switch r {
	case Two, Three:
		return Rule{pick(between(d, 4, 7), Split, Hit), "Split 2s and 3s against Dealer 4-7."}
	case Four:
		return Rule{Hit, "Never split 4s (per this chart)."}
	case Five:
		return Rule{pick(between(d, 2, 9), Double, Hit), "Double 5s against Dealer 2-9."}
	case Six:
		return Rule{pick(between(d, 3, 6), Split, Hit), "Split 6s against Dealer 3-6."}
	case Seven:
		return Rule{pick(between(d, 2, 7), Split, Hit), "Split 7s against Dealer 2-7."}
	case Eight:
		return Rule{pick(between(d, 2, 9), Split, Hit), "Always split 8s (unless Dealer has 10 or Ace)."}
	case Nine:
		return Rule{pick(d == 7 || d == 10 || d == 11, Stand, Split), "Split 9s against 2-6 and 8-9. Stand on 7."}
	case Ten, Jack, Queen, King:
		return Rule{Stand, "Never split 10s."}
	default: // Ace
		return Rule{Split, "Always split Aces."}
	}
}

func softRule(total, d int) Rule {
	switch {
	case total >= 19:
		return Rule{Stand, "Stand on Soft 19 and 20."}
	case total == 18:
		code := Hit
		if between(d, 3, 6) {
			code = Double
		} else if d == 2 || d == 7 || d == 8 {
			code = Stand
		}
		return Rule{code, "Soft 18: Double vs 3-6, Stand vs 2,7,8, Hit vs 9+."}
	case total == 17:
		return Rule{pick(between(d, 3, 6), Double, Hit), "Soft 17: Double vs 3-6."}
	case total == 15 || total == 16:
		return Rule{pick(between(d, 4, 6), Double, Hit), fmt.Sprintf("Soft %d: Double vs 4-6.", total)}
	case total == 14:
		return Rule{pick(d == 5 || d == 6, Double, Hit), "Soft 14: Double vs 5-6."}
	case total == 13:
		return Rule{pick(d == 6, Double, Hit), "Soft 13: Double vs 6 only."}
	default:
		// Only A,A reaches soft 12 and the pair branch takes it first.
		return Rule{Hit, "Soft 12 or less: Hit."}
	}
}

func hardRule(t, d int) Rule {
	switch {
	case t >= 17:
		return Rule{Stand, "Stand on Hard 17+."}
	case t >= 13:
		return Rule{pick(between(d, 2, 6), Stand, Hit), fmt.Sprintf("Hard %d: Stand vs 2-6, Hit vs 7+.", t)}
	case t == 12:
		return Rule{pick(between(d, 4, 6), Stand, Hit), "Hard 12: Stand vs 4-6, else Hit."}
	case t == 11:
		return Rule{pick(d <= 10, Double, Hit), "Always Double 11 (except vs Ace)."}
	case t == 10:
		return Rule{pick(between(d, 2, 9), Double, Hit), "Double 10 vs 2-9."}
	case t == 9:
		return Rule{pick(between(d, 3, 6), Double, Hit), "Double 9 vs 3-6."}
	default:
		return Rule{Hit, "Always Hit hard 8 or less."}
	}
}

// Degrade rewrites actions that need exactly two starting cards. A 3+ card
// hand can neither split nor double: doubles fall back to Hit, except soft
// 18 which stands.
func Degrade(code Action, cards int, hv HandValue) Action {
	if cards <= 2 {
		return code
	}
	switch code {
	case Split:
		return Hit
	case Double:
		if hv.IsSoft && hv.Total == 18 {
			return Stand
		}
		return Hit
	}
	return code
}

// WinProbability is a hand-tuned presentation figure, not a simulation.
func WinProbability(hv HandValue, d int) int {
	t := hv.Total
	switch {
	case t == 21:
		return 100
	case t == 20:
		return 92
	case t == 19:
		return 85
	case t == 18:
		switch {
		case between(d, 2, 6):
			return 70
		case d == 7:
			return 60
		case d == 8:
			return 45
		}
		return 40
	case t == 17:
		return pick(between(d, 2, 6), 65, 25)
	case t >= 12 && t <= 16:
		return pick(between(d, 4, 6), 45, 30)
	case t == 11:
		return 70
	case t == 10:
		return 65
	case t == 9:
		return 55
	}
	return 40
}
