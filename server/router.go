package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/filomancini00/blackjack-bible/server/agent"
	"github.com/filomancini00/blackjack-bible/server/engine"
	"github.com/filomancini00/blackjack-bible/server/judge"
	"github.com/filomancini00/blackjack-bible/server/store"
)

const maxBodyBytes = 64 << 10

// API carries what the handlers share. DB may be nil: advice still works,
// the log-backed endpoints answer 503.
type API struct {
	Advisors     *agent.Registry
	DB           store.Store
	Logger       *log.Logger
	Origins      []string
	JudgeOnWrite bool
	Timeout      time.Duration
}

// APIError is the body of every non-2xx response.
type APIError struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *APIError) Error() string { return e.Type + ": " + e.Message }

const (
	errValidation  = "validation"
	errAdvisor     = "advisor"
	errUnavailable = "unavailable"
	errInternal    = "internal"
)

func Router(a *API) http.Handler {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Post("/advice", a.handleAdvice)
		r.Get("/advice/recent", a.handleRecent)
		r.Get("/chart", a.handleChart)
		r.Get("/advisors", a.handleAdvisors)
		r.Post("/judge", a.handleJudge)
	})

	origins := a.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"dur", time.Since(start).Round(time.Microsecond),
			"req", middleware.GetReqID(r.Context()),
		)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"ok": true, "advisor": a.Advisors.Default().Name(), "store": "none"}
	if a.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			out["ok"] = false
			out["store"] = "down"
			writeJSON(w, http.StatusServiceUnavailable, out)
			return
		}
		out["store"] = "ok"
	}
	writeJSON(w, http.StatusOK, out)
}

type adviceRequest struct {
	Dealer  string   `json:"dealer"`
	Player  []string `json:"player"`
	Advisor string   `json:"advisor,omitempty"`
}

type handSummary struct {
	Total int  `json:"total"`
	Soft  bool `json:"soft"`
	Pair  bool `json:"pair"`
}

type adviceResponse struct {
	engine.Advice
	Advisor   string      `json:"advisor"`
	Model     string      `json:"model,omitempty"`
	Hand      handSummary `json:"hand"`
	RequestID string      `json:"requestId"`
	ID        int64       `json:"id,omitempty"`
}

func (a *API) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, &APIError{Type: errValidation, Message: "invalid JSON body", Context: map[string]any{"error": err.Error()}})
		return
	}

	var dealer *engine.Card
	if strings.TrimSpace(req.Dealer) != "" {
		c, err := engine.ParseCard(req.Dealer)
		if err != nil {
			writeError(w, http.StatusBadRequest, &APIError{Type: errValidation, Message: err.Error(), Context: map[string]any{"field": "dealer", "value": req.Dealer}})
			return
		}
		dealer = &c
	}
	player, err := engine.ParseCards(req.Player)
	if err != nil {
		writeError(w, http.StatusBadRequest, &APIError{Type: errValidation, Message: err.Error(), Context: map[string]any{"field": "player"}})
		return
	}
	advisor, err := a.Advisors.Get(req.Advisor)
	if err != nil {
		writeError(w, http.StatusBadRequest, &APIError{Type: errValidation, Message: err.Error(), Context: map[string]any{"field": "advisor", "known": a.Advisors.Names()}})
		return
	}

	adv, answeredBy, err := agent.Advise(r.Context(), advisor, dealer, player)
	switch {
	case errors.Is(err, agent.ErrNoDealer), errors.Is(err, agent.ErrTooFewCards), errors.Is(err, agent.ErrTooManyCards):
		writeError(w, http.StatusBadRequest, &APIError{Type: errValidation, Message: err.Error(), Context: map[string]any{"cards": len(player)}})
		return
	case err != nil:
		a.Logger.Warn("advisor failed", "advisor", advisor.Name(), "err", err)
		writeError(w, http.StatusBadGateway, &APIError{Type: errAdvisor, Message: err.Error(), Context: map[string]any{"advisor": advisor.Name()}})
		return
	}

	hv := engine.CalculateHand(player)
	resp := adviceResponse{
		Advice:    adv,
		Advisor:   answeredBy.Name(),
		Model:     modelOf(answeredBy),
		Hand:      handSummary{Total: hv.Total, Soft: hv.IsSoft, Pair: hv.IsPair},
		RequestID: uuid.NewString(),
	}
	resp.ID = a.record(r.Context(), resp, *dealer, player)
	writeJSON(w, http.StatusOK, resp)
}

// record writes the verdict to the advice log. A failing log never fails
// the request; it only costs the row.
func (a *API) record(ctx context.Context, resp adviceResponse, dealer engine.Card, player []engine.Card) int64 {
	if a.DB == nil {
		return 0
	}
	id, err := a.DB.InsertAdvice(ctx, store.AdviceRecord{
		RequestID:      resp.RequestID,
		Advisor:        resp.Advisor,
		Model:          resp.Model,
		Dealer:         dealer.String(),
		Player:         engine.CardStrings(player),
		Total:          resp.Hand.Total,
		Soft:           resp.Hand.Soft,
		Pair:           resp.Hand.Pair,
		Action:         string(resp.Action),
		Confidence:     resp.Confidence,
		WinProbability: resp.WinProbability,
		Explanation:    resp.Explanation,
	})
	if err != nil {
		a.Logger.Warn("advice log insert failed", "req", resp.RequestID, "err", err)
		return 0
	}
	if a.JudgeOnWrite && resp.Advisor != agent.TableName {
		g := judge.GradeHand(dealer, player, resp.Action)
		if err := a.DB.InsertAdviceEval(ctx, id, string(g.TableAction), g.Agrees); err != nil {
			a.Logger.Warn("judge on write failed", "id", id, "err", err)
		} else if !g.Agrees {
			a.Logger.Info("advisor disagrees with table", "advisor", resp.Advisor, "chosen", g.Chosen, "table", g.TableAction, "id", id)
		}
	}
	return id
}

func modelOf(a agent.Advisor) string {
	if m, ok := a.(interface{ ModelName() string }); ok {
		return m.ModelName()
	}
	return ""
}

func (a *API) handleRecent(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, &APIError{Type: errValidation, Message: "limit must be a positive integer", Context: map[string]any{"limit": s}})
			return
		}
		limit = n
	}
	rows, err := a.DB.RecentAdvice(r.Context(), limit)
	if err != nil {
		a.Logger.Error("recent advice", "err", err)
		writeError(w, http.StatusInternalServerError, &APIError{Type: errInternal, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (a *API) handleChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, engine.BuildChart())
}

// handleAdvisors lists the registry; agreement stats need the log.
func (a *API) handleAdvisors(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"default":  a.Advisors.Default().Name(),
		"advisors": a.Advisors.Names(),
		"stats":    []AdvisorStat{},
	}
	if a.DB != nil {
		acc, err := a.DB.AdvisorAccuracy(r.Context())
		if err != nil {
			a.Logger.Error("advisor accuracy", "err", err)
			writeError(w, http.StatusInternalServerError, &APIError{Type: errInternal, Message: err.Error()})
			return
		}
		out["stats"] = advisorStats(acc)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleJudge(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	sum, err := judge.EvaluateLog(r.Context(), a.DB, a.Logger.WithPrefix("judge"))
	if err != nil {
		a.Logger.Error("judge", "err", err)
		writeError(w, http.StatusInternalServerError, &APIError{Type: errInternal, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"solver": judge.Solver, "summary": sum})
}

func (a *API) requireStore(w http.ResponseWriter) bool {
	if a.DB != nil {
		return true
	}
	writeError(w, http.StatusServiceUnavailable, &APIError{Type: errUnavailable, Message: "advice log disabled: set DATABASE_URL"})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, e *APIError) {
	writeJSON(w, status, map[string]any{"error": e})
}
