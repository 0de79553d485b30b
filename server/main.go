package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/filomancini00/blackjack-bible/server/agent"
	"github.com/filomancini00/blackjack-bible/server/engine"
	"github.com/filomancini00/blackjack-bible/server/judge"
	"github.com/filomancini00/blackjack-bible/server/llm"
	"github.com/filomancini00/blackjack-bible/server/store"
)

//
// ===== pretty printing =====
//

var useColor bool

// logOutput is where every component logger writes.
var logOutput io.Writer = os.Stderr

const (
	colReset  = "\033[0m"
	colBold   = "\033[1m"
	colDim    = "\033[2m"
	colGreen  = "\033[32m"
	colRed    = "\033[31m"
	colYellow = "\033[33m"
	colMag    = "\033[35m"
	colCyan   = "\033[36m"
)

func c(code, s string) string {
	if !useColor {
		return s
	}
	return code + s + colReset
}
func bold(s string) string { return c(colBold, s) }
func dim(s string) string  { return c(colDim, s) }
func good(s string) string { return c(colGreen, s) }
func warn(s string) string { return c(colYellow, s) }
func bad(s string) string  { return c(colRed, s) }
func cyan(s string) string { return c(colCyan, s) }
func mag(s string) string  { return c(colMag, s) }
func section(title string) { fmt.Printf("\n%s %s %s\n", dim("──"), bold(title), dim("──")) }
func sub(title string)     { fmt.Printf("%s %s\n", dim("•"), bold(title)) }

func actionTag(a engine.Action) string {
	s := string(a)
	switch a {
	case engine.Stand:
		return good(s)
	case engine.Hit:
		return warn(s)
	case engine.Double:
		return cyan(s)
	case engine.Split:
		return mag(s)
	case engine.Surrender, engine.Bust:
		return bad(s)
	}
	return s
}

//
// ===== bootstrap =====
//

type mode int

const (
	modeServe mode = iota
	modeMigrate
	modeAdvise
	modeChart
	modeJudge
	modePing
)

// parseArgs keeps the flag set tiny: one mode switch, and --advise takes the
// remaining arguments as cards.
func parseArgs(args []string) (mode, []string, error) {
	m := modeServe
	var rest []string
	for i, a := range args {
		switch a {
		case "--migrate":
			m = modeMigrate
		case "--chart":
			m = modeChart
		case "--judge":
			m = modeJudge
		case "--ping":
			m = modePing
		case "--advise":
			m = modeAdvise
			rest = args[i+1:]
			if len(rest) < 3 {
				return m, nil, errors.New("usage: --advise DEALER CARD CARD [CARD...]")
			}
			return m, rest, nil
		default:
			return m, nil, fmt.Errorf("unknown argument %q", a)
		}
	}
	return m, rest, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	useColor = cfg.NoColor == "" && strings.TrimSpace(os.Getenv("USE_COLOR")) != "0"
	logger := newLogger(cfg, "")

	m, rest, err := parseArgs(os.Args[1:])
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel)

	reg, err := buildRegistry(cfg)
	if err != nil {
		logger.Fatal("advisor", "err", err)
	}

	switch m {
	case modeChart:
		section("Basic strategy (6 decks, dealer stands on soft 17)")
		fmt.Print(engine.BuildChart().String())
		fmt.Println(dim("H hit  S stand  D double  P split  R surrender"))
		return
	case modeAdvise:
		if err := runAdvise(ctx, reg.Default(), rest); err != nil {
			logger.Fatal("advise", "err", err)
		}
		return
	case modePing:
		text, err := llm.PingText(ctx, cfg.LLMModel, "You are a terse assistant.", "Reply with the single word: pong")
		if err != nil {
			logger.Fatal("ping", "err", err)
		}
		provider := "openai"
		if llm.PreferOpenRouter() {
			provider = "openrouter"
		}
		fmt.Printf("%s %s\n", dim(provider+":"), strings.TrimSpace(text))
		return
	}

	db, err := openStore(ctx, cfg, logger.WithPrefix("store"))
	if err != nil {
		logger.Fatal("store", "err", err)
	}
	if db != nil {
		defer db.Close()
	}

	switch m {
	case modeMigrate:
		if db == nil {
			logger.Fatal("--migrate needs DATABASE_URL")
		}
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("migrate", "err", err)
		}
		logger.Info("migrated")
		return
	case modeJudge:
		if db == nil {
			logger.Fatal("--judge needs DATABASE_URL")
		}
		if err := runJudge(ctx, db, logger.WithPrefix("judge")); err != nil {
			logger.Fatal("judge", "err", err)
		}
		return
	}

	if err := serve(ctx, cfg, reg, db, logger.WithPrefix("api")); err != nil {
		logger.Fatal("server", "err", err)
	}
}

// buildRegistry always offers the table; the model advisor is registered
// too and only fails when asked without an API key.
func buildRegistry(cfg Config) (*agent.Registry, error) {
	reg := agent.NewRegistry()
	reg.Register(llm.NewAdvisor(cfg.LLMModel, cfg.LLMTimeout))
	if err := reg.SetDefault(cfg.Advisor); err != nil {
		return nil, err
	}
	return reg, nil
}

// openStore returns a nil Store when DATABASE_URL is unset: the advisor
// works without a log.
func openStore(ctx context.Context, cfg Config, logger *log.Logger) (store.Store, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("advice log disabled (no DATABASE_URL)")
		return nil, nil
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("migrated")
	}
	return db, nil
}

func serve(ctx context.Context, cfg Config, reg *agent.Registry, db store.Store, logger *log.Logger) error {
	handler := Router(&API{
		Advisors:     reg,
		DB:           db,
		Logger:       logger,
		Origins:      cfg.CORSOrigins,
		JudgeOnWrite: cfg.JudgeOnWrite,
		Timeout:      cfg.LLMTimeout + 15*time.Second,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 20*time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("listening", "addr", "http://localhost:"+cfg.Port, "advisor", reg.Default().Name())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func watchSignals(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	cancel()
}

//
// ===== commands =====
//

func runAdvise(ctx context.Context, a agent.Advisor, args []string) error {
	dealer, err := engine.ParseCard(args[0])
	if err != nil {
		return err
	}
	player, err := engine.ParseCards(args[1:])
	if err != nil {
		return err
	}
	adv, answeredBy, err := agent.Advise(ctx, a, &dealer, player)
	if err != nil {
		return err
	}
	hv := engine.CalculateHand(player)

	section("Advice")
	soft := ""
	if hv.IsSoft {
		soft = "soft "
	}
	fmt.Printf("%s %s  %s %s %s\n",
		dim("Dealer"), bold(dealer.String()),
		dim("Player"), bold(strings.Join(engine.CardStrings(player), " ")),
		dim(fmt.Sprintf("(%s%d)", soft, hv.Total)))
	fmt.Printf("%s %s  %s\n", dim("→"), bold(actionTag(adv.Action)), dim(fmt.Sprintf("confidence %d%%", adv.Confidence)))
	if adv.WinProbability != nil {
		fmt.Printf("%s %d%%\n", dim("win probability"), *adv.WinProbability)
	}
	fmt.Println(adv.Explanation)
	fmt.Println(dim("advisor: " + answeredBy.Name()))
	return nil
}

func runJudge(ctx context.Context, db store.Store, logger *log.Logger) error {
	sum, err := judge.EvaluateLog(ctx, db, logger)
	if err != nil {
		return err
	}
	acc, err := db.AdvisorAccuracy(ctx)
	if err != nil {
		return err
	}

	section("Judge vs " + judge.Solver)
	fmt.Printf("graded %d  agreed %d  skipped %d\n", sum.Graded, sum.Agreed, sum.Skipped)
	stats := advisorStats(acc)
	if len(stats) == 0 {
		fmt.Println(dim("no graded advice yet"))
		return nil
	}
	for _, s := range stats {
		sub(s.Advisor)
		pct := fmt.Sprintf("%.1f%%", 100*s.Accuracy)
		tag := good(pct)
		if s.Accuracy < 0.9 {
			tag = warn(pct)
		}
		if s.Accuracy < 0.7 {
			tag = bad(pct)
		}
		fmt.Printf("  %s %d/%d  %s\n", tag, s.Good, s.Total,
			dim(fmt.Sprintf("95%% CI [%.1f%%, %.1f%%]", 100*s.Low, 100*s.High)))
	}
	return nil
}
