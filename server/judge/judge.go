package judge

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/filomancini00/blackjack-bible/server/engine"
	"github.com/filomancini00/blackjack-bible/server/store"
)

// Solver names the reference every verdict is graded against.
const Solver = "BasicStrategy"

type Grade struct {
	TableAction engine.Action
	Chosen      engine.Action
	Agrees      bool
}

// GradeHand compares a chosen action with what the table would say for the
// same hand.
func GradeHand(dealer engine.Card, player []engine.Card, chosen engine.Action) Grade {
	ref := engine.Evaluate(dealer, player)
	return Grade{TableAction: ref.Action, Chosen: chosen, Agrees: ref.Action == chosen}
}

type Summary struct {
	Graded  int `json:"graded"`
	Agreed  int `json:"agreed"`
	Skipped int `json:"skipped"`
}

// EvaluateLog grades every logged non-table verdict that has no advice_eval
// row yet. Rows whose cards no longer parse, and busted hands, are skipped,
// not fatal.
func EvaluateLog(ctx context.Context, s store.Store, logger *log.Logger) (Summary, error) {
	var sum Summary
	rows, err := s.UngradedAdvice(ctx)
	if err != nil {
		return sum, fmt.Errorf("load ungraded advice: %w", err)
	}
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		dealer, err := engine.ParseCard(r.Dealer)
		if err != nil {
			logger.Warn("skip advice", "id", r.ID, "err", err)
			sum.Skipped++
			continue
		}
		player, err := engine.ParseCards(r.Player)
		if err != nil || len(player) < 2 {
			logger.Warn("skip advice", "id", r.ID, "err", err, "cards", len(player))
			sum.Skipped++
			continue
		}
		// A busted hand was answered by the table, whatever advisor the
		// row names; grading it would credit the advisor with a free match.
		if engine.CalculateHand(player).Total > 21 {
			logger.Debug("skip busted advice", "id", r.ID, "advisor", r.Advisor)
			sum.Skipped++
			continue
		}
		g := GradeHand(dealer, player, engine.Action(r.Action))
		if err := s.InsertAdviceEval(ctx, r.ID, string(g.TableAction), g.Agrees); err != nil {
			return sum, fmt.Errorf("advice %d: %w", r.ID, err)
		}
		sum.Graded++
		if g.Agrees {
			sum.Agreed++
		}
		logger.Debug("graded", "id", r.ID, "advisor", r.Advisor, "chosen", g.Chosen, "table", g.TableAction, "agrees", g.Agrees)
	}
	logger.Info("judge done", "solver", Solver, "graded", sum.Graded, "agreed", sum.Agreed, "skipped", sum.Skipped)
	return sum, nil
}
