package engine

import (
	"fmt"
	"strings"
)

type ChartRow struct {
	Label   string   `json:"label"`
	Actions []Action `json:"actions"` // one per Chart.Dealer column
}

type Chart struct {
	Dealer []int      `json:"dealer"`
	Hard   []ChartRow `json:"hard"`
	Soft   []ChartRow `json:"soft"`
	Pairs  []ChartRow `json:"pairs"`
}

// rankFor returns a rank whose nominal value is v (10 → "10", 11 → "A").
func rankFor(v int) Rank {
	switch {
	case v == 11:
		return Ace
	case v == 10:
		return Ten
	case v >= 2 && v <= 9:
		return Rank(fmt.Sprint(v))
	}
	return ""
}

// BuildChart runs every two-card starting hand through Evaluate, so the chart
// can never drift from the table.
func BuildChart() Chart {
	ch := Chart{}
	for d := 2; d <= 11; d++ {
		ch.Dealer = append(ch.Dealer, d)
	}
	row := func(label string, a, b Rank) ChartRow {
		r := ChartRow{Label: label}
		for _, d := range ch.Dealer {
			adv := Evaluate(Card{Rank: rankFor(d), Suit: Spades}, []Card{{Rank: a, Suit: Hearts}, {Rank: b, Suit: Clubs}})
			r.Actions = append(r.Actions, adv.Action)
		}
		return r
	}

	for t := 5; t <= 20; t++ {
		a, b := Two, rankFor(t-2)
		if t >= 12 {
			a, b = Ten, rankFor(t-10)
			if b == Ten {
				b = King
			}
		}
		ch.Hard = append(ch.Hard, row(fmt.Sprintf("Hard %d", t), a, b))
	}
	for t := 13; t <= 21; t++ {
		ch.Soft = append(ch.Soft, row(fmt.Sprintf("Soft %d (A,%s)", t, rankFor(t-11)), Ace, rankFor(t-11)))
	}
	for v := 2; v <= 11; v++ {
		r := rankFor(v)
		ch.Pairs = append(ch.Pairs, row(fmt.Sprintf("%s,%s", r, r), r, r))
	}
	return ch
}

// Short chart codes, as printed on the cards handed out at tables.
func (a Action) Code() string {
	switch a {
	case Hit:
		return "H"
	case Stand:
		return "S"
	case Double:
		return "D"
	case Split:
		return "P"
	case Surrender:
		return "R"
	case Bust:
		return "X"
	}
	return "?"
}

func (ch Chart) String() string {
	var sb strings.Builder
	write := func(title string, rows []ChartRow) {
		fmt.Fprintf(&sb, "%-14s", title)
		for _, d := range ch.Dealer {
			col := fmt.Sprint(d)
			if d == 11 {
				col = "A"
			}
			fmt.Fprintf(&sb, "%3s", col)
		}
		sb.WriteByte('\n')
		for _, r := range rows {
			fmt.Fprintf(&sb, "%-14s", r.Label)
			for _, a := range r.Actions {
				fmt.Fprintf(&sb, "%3s", a.Code())
			}
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	write("HARD", ch.Hard)
	write("SOFT", ch.Soft)
	write("PAIRS", ch.Pairs)
	return sb.String()
}
