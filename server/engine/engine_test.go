package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cards(ranks ...Rank) []Card {
	out := make([]Card, len(ranks))
	for i, r := range ranks {
		out[i] = Card{Rank: r, Suit: Suits[i%len(Suits)]}
	}
	return out
}

func up(r Rank) Card { return Card{Rank: r, Suit: Spades} }

func TestCalculateHand(t *testing.T) {
	tests := []struct {
		name  string
		hand  []Card
		total int
		soft  bool
		pair  bool
	}{
		{"pair of 10s", cards(Ten, Ten), 20, false, true},
		{"ten king is not a pair", cards(Ten, King), 20, false, false},
		{"blackjack", cards(Ace, King), 21, true, false},
		{"soft 17", cards(Ace, Six), 17, true, false},
		{"double ace", cards(Ace, Ace), 12, true, true},
		{"bust rescue", cards(Ace, Five, Eight), 14, false, false},
		{"two aces demoted", cards(Ace, Ace, Nine), 21, true, false},
		{"three aces", cards(Ace, Ace, Ace), 13, true, false},
		{"hard bust", cards(Ten, Six, Six), 22, false, false},
		{"all aces low still bust", cards(Ace, King, Queen, Five), 26, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hv := CalculateHand(tt.hand)
			assert.Equal(t, tt.total, hv.Total)
			assert.Equal(t, tt.soft, hv.IsSoft)
			assert.Equal(t, tt.pair, hv.IsPair)
		})
	}
}

func TestDealerValue(t *testing.T) {
	want := map[Rank]int{Two: 2, Nine: 9, Ten: 10, Jack: 10, Queen: 10, King: 10, Ace: 11}
	for r, v := range want {
		assert.Equal(t, v, DealerValue(up(r)), "rank %s", r)
	}
}

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name   string
		dealer Rank
		hand   []Card
		want   Action
	}{
		{"5,5 doubles vs 6", Six, cards(Five, Five), Double},
		{"always split aces", Ten, cards(Ace, Ace), Split},
		{"9,9 stands vs 7", Seven, cards(Nine, Nine), Stand},
		{"soft 17 doubles vs 4", Four, cards(Ace, Six), Double},
		{"soft 17 three cards degrades to hit", Nine, cards(Ace, Six, Four), Hit},
		{"8,8 split vs 9", Nine, cards(Eight, Eight), Split},
		{"8,8 hit vs ace", Ace, cards(Eight, Eight), Hit},
		{"hard 16 vs 10 hits", Ten, cards(Ten, Six), Hit},
		{"hard 12 vs 4 stands", Four, cards(Ten, Two), Stand},
		{"hard 11 vs ace hits", Ace, cards(Six, Five), Hit},
		{"hard 11 vs 10 doubles", Ten, cards(Six, Five), Double},
		{"soft 18 vs 9 hits", Nine, cards(Ace, Seven), Hit},
		{"soft 18 vs 8 stands", Eight, cards(Ace, Seven), Stand},
		{"soft 18 three cards vs 5 stands", Five, cards(Ace, Two, Five), Stand},
		{"hard 10 three cards vs 6 hits", Six, cards(Two, Three, Five), Hit},
		{"pair of 3s in three cards is not split", Five, cards(Three, Three, Two), Hit},
		{"queen jack stands", Six, cards(Queen, Jack), Stand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := Evaluate(up(tt.dealer), tt.hand)
			assert.Equal(t, tt.want, adv.Action)
			assert.Equal(t, 100, adv.Confidence)
			require.NotNil(t, adv.WinProbability)
		})
	}
}

// TestDecisionTableEdges pins every chart row at both ends of its dealer
// range and one column past each end. Dealer 11 is the Ace.
func TestDecisionTableEdges(t *testing.T) {
	upcards := map[int]Rank{2: Two, 3: Three, 4: Four, 5: Five, 6: Six, 7: Seven, 8: Eight, 9: Nine, 10: Ten, 11: Ace}
	H, S, D, P := Hit, Stand, Double, Split
	rows := []struct {
		name string
		hand []Card
		want map[int]Action
	}{
		{"2,2", cards(Two, Two), map[int]Action{2: H, 3: H, 4: P, 7: P, 8: H, 11: H}},
		{"3,3", cards(Three, Three), map[int]Action{3: H, 4: P, 7: P, 8: H}},
		{"4,4", cards(Four, Four), map[int]Action{2: H, 5: H, 6: H, 11: H}},
		{"5,5", cards(Five, Five), map[int]Action{2: D, 9: D, 10: H, 11: H}},
		{"6,6", cards(Six, Six), map[int]Action{2: H, 3: P, 6: P, 7: H}},
		{"7,7", cards(Seven, Seven), map[int]Action{2: P, 7: P, 8: H, 11: H}},
		{"8,8", cards(Eight, Eight), map[int]Action{2: P, 9: P, 10: H, 11: H}},
		{"9,9", cards(Nine, Nine), map[int]Action{2: P, 6: P, 7: S, 8: P, 9: P, 10: S, 11: S}},
		{"10,10", cards(Ten, Ten), map[int]Action{2: S, 6: S, 11: S}},
		{"K,K", cards(King, King), map[int]Action{5: S, 11: S}},
		{"A,A", cards(Ace, Ace), map[int]Action{2: P, 6: P, 10: P, 11: P}},

		{"soft 13", cards(Ace, Two), map[int]Action{2: H, 5: H, 6: D, 7: H}},
		{"soft 14", cards(Ace, Three), map[int]Action{4: H, 5: D, 6: D, 7: H}},
		{"soft 15", cards(Ace, Four), map[int]Action{3: H, 4: D, 6: D, 7: H}},
		{"soft 16", cards(Ace, Five), map[int]Action{3: H, 4: D, 6: D, 7: H}},
		{"soft 17", cards(Ace, Six), map[int]Action{2: H, 3: D, 6: D, 7: H}},
		{"soft 18", cards(Ace, Seven), map[int]Action{2: S, 3: D, 6: D, 7: S, 8: S, 9: H, 11: H}},
		{"soft 19", cards(Ace, Eight), map[int]Action{2: S, 6: S, 11: S}},
		{"soft 20", cards(Ace, Nine), map[int]Action{2: S, 6: S, 11: S}},
		{"soft 21", cards(Ace, King), map[int]Action{2: S, 11: S}},

		{"hard 8", cards(Five, Three), map[int]Action{2: H, 6: H, 11: H}},
		{"hard 9", cards(Five, Four), map[int]Action{2: H, 3: D, 6: D, 7: H}},
		{"hard 10", cards(Six, Four), map[int]Action{2: D, 9: D, 10: H, 11: H}},
		{"hard 11", cards(Six, Five), map[int]Action{2: D, 10: D, 11: H}},
		{"hard 12", cards(Ten, Two), map[int]Action{2: H, 3: H, 4: S, 6: S, 7: H}},
		{"hard 13", cards(Ten, Three), map[int]Action{2: S, 6: S, 7: H, 11: H}},
		{"hard 16", cards(Ten, Six), map[int]Action{2: S, 6: S, 7: H, 11: H}},
		{"hard 17", cards(Ten, Seven), map[int]Action{2: S, 7: S, 11: S}},
		{"hard 20", cards(King, Queen), map[int]Action{2: S, 11: S}},
	}
	for _, row := range rows {
		for d, want := range row.want {
			adv := Evaluate(up(upcards[d]), row.hand)
			assert.Equal(t, want, adv.Action, "%s vs dealer %d", row.name, d)
		}
	}
}

func TestEvaluateBust(t *testing.T) {
	adv := Evaluate(up(Five), cards(Ten, Six, Six))
	assert.Equal(t, Bust, adv.Action)
	assert.Equal(t, 100, adv.Confidence)
	require.NotNil(t, adv.WinProbability)
	assert.Equal(t, 0, *adv.WinProbability)
	assert.Equal(t, "You currently have 22. You have busted.", adv.Explanation)
}

func TestEvaluateExplanation(t *testing.T) {
	adv := Evaluate(up(Four), cards(Ace, Six))
	assert.Equal(t, "Soft 17: Double vs 3-6. (Table Rule: Player Soft 17 vs Dealer 4)", adv.Explanation)
	assert.Equal(t, 65, *adv.WinProbability)

	adv = Evaluate(up(Ace), cards(Ten, Six))
	assert.Equal(t, "Hard 16: Stand vs 2-6, Hit vs 7+. (Table Rule: Player 16 vs Dealer 11)", adv.Explanation)
	assert.Equal(t, 30, *adv.WinProbability)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	dealer, hand := up(Seven), cards(Nine, Nine)
	assert.Equal(t, Evaluate(dealer, hand), Evaluate(dealer, hand))
}

// Walks every 3- and 4-card hand against every upcard.
func TestDegradationNeverLeaksSplitOrDouble(t *testing.T) {
	var walk func(hand []Card)
	walk = func(hand []Card) {
		if len(hand) >= 3 {
			for _, d := range Ranks {
				adv := Evaluate(up(d), hand)
				assert.Contains(t, []Action{Hit, Stand, Surrender, Bust}, adv.Action, "hand %v vs %s", CardStrings(hand), d)
			}
		}
		if len(hand) == 4 {
			return
		}
		for _, r := range Ranks {
			walk(append(append([]Card{}, hand...), Card{Rank: r, Suit: Hearts}))
		}
	}
	walk(nil)
}

func TestHandValueProperties(t *testing.T) {
	for _, a := range Ranks {
		for _, b := range Ranks {
			for _, c := range Ranks {
				hand := cards(a, b, c)
				hv := CalculateHand(hand)
				low := 0
				hasAce := false
				for _, x := range hand {
					v := x.Rank.Value()
					if x.Rank == Ace {
						v, hasAce = 1, true
					}
					low += v
				}
				if low <= 21 {
					assert.LessOrEqual(t, hv.Total, 21)
				}
				if !hasAce {
					assert.False(t, hv.IsSoft)
				}
				if hv.IsSoft {
					assert.LessOrEqual(t, hv.Total, 21)
				}
				assert.False(t, hv.IsPair, "three cards are never a pair")
			}
		}
	}
}

func TestLookupSoftLowFallsBackToHit(t *testing.T) {
	r := Lookup(HandValue{Total: 12, IsSoft: true}, "", 3, 6)
	assert.Equal(t, Hit, r.Code)
}

func TestDegrade(t *testing.T) {
	soft18 := HandValue{Total: 18, IsSoft: true}
	hard11 := HandValue{Total: 11}
	assert.Equal(t, Double, Degrade(Double, 2, hard11))
	assert.Equal(t, Split, Degrade(Split, 2, hard11))
	assert.Equal(t, Hit, Degrade(Double, 3, hard11))
	assert.Equal(t, Stand, Degrade(Double, 3, soft18))
	assert.Equal(t, Hit, Degrade(Split, 3, soft18))
	assert.Equal(t, Stand, Degrade(Stand, 5, hard11))
}

func TestWinProbability(t *testing.T) {
	tests := []struct {
		total, d, want int
	}{
		{21, 10, 100}, {20, 11, 92}, {19, 2, 85},
		{18, 5, 70}, {18, 7, 60}, {18, 8, 45}, {18, 11, 40},
		{17, 6, 65}, {17, 7, 25},
		{14, 5, 45}, {14, 3, 30},
		{11, 11, 70}, {10, 2, 65}, {9, 9, 55}, {8, 6, 40},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WinProbability(HandValue{Total: tt.total}, tt.d), "total %d vs %d", tt.total, tt.d)
	}
}

func TestParseCard(t *testing.T) {
	for in, want := range map[string]string{
		"10h": "10♥", "Th": "10♥", "A♠": "A♠", "as": "A♠", " 9d ": "9♦", "kc": "K♣",
	} {
		c, err := ParseCard(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, c.String())
		assert.NotEmpty(t, c.ID)
	}

	_, err := ParseCard("1h")
	assert.ErrorIs(t, err, ErrUnknownRank)
	_, err = ParseCard("Ax")
	assert.ErrorIs(t, err, ErrUnknownSuit)
	_, err = ParseCard("h")
	assert.ErrorIs(t, err, ErrUnknownRank)
}

func TestNewCardIdentity(t *testing.T) {
	a, b := NewCard(Ace, Spades), NewCard(Ace, Spades)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, Evaluate(up(Six), []Card{a, b}).Action, Split)
}

func TestChartMatchesEvaluate(t *testing.T) {
	ch := BuildChart()
	require.Len(t, ch.Dealer, 10)
	require.Len(t, ch.Hard, 16)
	require.Len(t, ch.Soft, 9)
	require.Len(t, ch.Pairs, 10)

	// spot checks against the printed chart
	assert.Equal(t, Split, ch.Pairs[6].Actions[7]) // 8,8 vs 9
	assert.Equal(t, Stand, ch.Pairs[7].Actions[5]) // 9,9 vs 7
	assert.Equal(t, Double, ch.Soft[5].Actions[2]) // soft 18 vs 4
	assert.Equal(t, Hit, ch.Hard[7].Actions[0])    // hard 12 vs 2

	for _, r := range ch.Hard {
		assert.NotContains(t, r.Actions, Split)
	}
	assert.Contains(t, ch.String(), "PAIRS")
}
