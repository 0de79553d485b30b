package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Rank is the card face as printed: "2".."10", J, Q, K, A.
type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

// Suit is stored as its symbol.
type Suit string

const (
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
	Spades   Suit = "♠"
)

var (
	// Ranks and Suits list a full deck in chart order.
	Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
	Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

	ErrUnknownRank = errors.New("unknown rank")
	ErrUnknownSuit = errors.New("unknown suit")
)

// Card is immutable once dealt. ID only lets a UI tell two identical
// cards apart; strategy never looks at it.
type Card struct {
	Rank Rank   `json:"rank"`
	Suit Suit   `json:"suit"`
	ID   string `json:"id,omitempty"`
}

// NewCard deals a card with a fresh ID.
func NewCard(r Rank, s Suit) Card {
	return Card{Rank: r, Suit: s, ID: uuid.NewString()}
}

// Value is the nominal blackjack value: A=11, J/Q/K=10, digits face value.
func (r Rank) Value() int {
	switch r {
	case Ace:
		return 11
	case Ten, Jack, Queen, King:
		return 10
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	default:
		return 0
	}
}

func (c Card) String() string { return string(c.Rank) + string(c.Suit) }

// ParseCard accepts "10♥", "10h", "Th", "as", "K♠". The suit is always the
// last rune.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) < 2 {
		return Card{}, fmt.Errorf("card %q: %w", s, ErrUnknownRank)
	}
	suit, err := parseSuit(runes[len(runes)-1])
	if err != nil {
		return Card{}, fmt.Errorf("card %q: %w", s, err)
	}
	rank, err := ParseRank(string(runes[:len(runes)-1]))
	if err != nil {
		return Card{}, fmt.Errorf("card %q: %w", s, err)
	}
	return NewCard(rank, suit), nil
}

func ParseRank(s string) (Rank, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "T", "10":
		return Ten, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	}
	if len(s) == 1 && s[0] >= '2' && s[0] <= '9' {
		return Rank(s), nil
	}
	return "", ErrUnknownRank
}

func parseSuit(r rune) (Suit, error) {
	switch r {
	case '♥', 'h', 'H':
		return Hearts, nil
	case '♦', 'd', 'D':
		return Diamonds, nil
	case '♣', 'c', 'C':
		return Clubs, nil
	case '♠', 's', 'S':
		return Spades, nil
	}
	return "", ErrUnknownSuit
}

func ParseCards(ss []string) ([]Card, error) {
	out := make([]Card, 0, len(ss))
	for _, s := range ss {
		c, err := ParseCard(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func CardStrings(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
