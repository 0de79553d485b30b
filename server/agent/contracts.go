package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/filomancini00/blackjack-bible/server/engine"
)

// MaxPlayerCards matches the table UI: ten cards is already far past 21.
const MaxPlayerCards = 10

var (
	ErrNoDealer     = errors.New("dealer card is required")
	ErrTooFewCards  = errors.New("player needs at least 2 cards")
	ErrTooManyCards = fmt.Errorf("player may hold at most %d cards", MaxPlayerCards)
	ErrIllegal      = errors.New("illegal action")
)

type Observation struct {
	Dealer      string   `json:"dealer"`       // e.g. "6♥"
	DealerValue int      `json:"dealer_value"` // 2..11
	Player      []string `json:"player"`       // e.g. ["5♠","5♦"]
	Total       int      `json:"total"`
	Soft        bool     `json:"soft"`
	Pair        bool     `json:"pair"`
	Legal       []string `json:"legal_actions"`
}

// CheckHand enforces the precondition the evaluator relies on.
func CheckHand(dealer *engine.Card, player []engine.Card) error {
	switch {
	case dealer == nil || dealer.Rank == "":
		return ErrNoDealer
	case len(player) < 2:
		return ErrTooFewCards
	case len(player) > MaxPlayerCards:
		return ErrTooManyCards
	}
	return nil
}

// LegalActions lists what a player can physically do with this hand.
// Doubling and splitting need exactly two starting cards.
func LegalActions(player []engine.Card) []engine.Action {
	out := []engine.Action{engine.Hit, engine.Stand}
	if len(player) == 2 {
		out = append(out, engine.Double)
		if engine.CalculateHand(player).IsPair {
			out = append(out, engine.Split)
		}
	}
	return append(out, engine.Surrender)
}

// BuildObservation converts a hand into the JSON we send a model.
func BuildObservation(dealer engine.Card, player []engine.Card) Observation {
	hv := engine.CalculateHand(player)
	legal := []string{}
	for _, a := range LegalActions(player) {
		legal = append(legal, string(a))
	}
	return Observation{
		Dealer:      dealer.String(),
		DealerValue: engine.DealerValue(dealer),
		Player:      engine.CardStrings(player),
		Total:       hv.Total,
		Soft:        hv.IsSoft,
		Pair:        hv.IsPair,
		Legal:       legal,
	}
}

// Validate checks a model's verdict against the observation and returns the
// normalized copy: confidence clamped to 0..100, explanation trimmed.
func Validate(o Observation, a engine.Advice) (engine.Advice, error) {
	act := engine.Action(strings.ToUpper(strings.TrimSpace(string(a.Action))))
	ok := false
	for _, la := range o.Legal {
		if la == string(act) {
			ok = true
			break
		}
	}
	if !ok {
		return engine.Advice{}, fmt.Errorf("%w %q (legals: %v)", ErrIllegal, a.Action, o.Legal)
	}
	a.Action = act
	a.Confidence = clamp(a.Confidence)
	if a.WinProbability != nil {
		p := clamp(*a.WinProbability)
		a.WinProbability = &p
	}
	a.Explanation = strings.TrimSpace(a.Explanation)
	if r := []rune(a.Explanation); len(r) > 240 {
		a.Explanation = string(r[:240])
	}
	return a, nil
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
