package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/filomancini00/blackjack-bible/server/agent"
	"github.com/filomancini00/blackjack-bible/server/engine"
)

// Name is the registry key for the model-backed advisor.
const Name = "llm"

const adviceSystem = `
You are a world-class Blackjack expert and mathematician.

Context:
- Standard Blackjack rules (assume 6 decks, Dealer stands on Soft 17).

Task:
- Determine the mathematically optimal move for the player.
- Return exactly one option from legal_actions.
- Give a confidence score (0-100) based on statistical advantage.
- Give a brief, punchy one-sentence explanation suitable for a player at the table.
`

// Advisor asks an OpenAI-compatible model for a verdict. It satisfies
// agent.Advisor, so callers cannot tell it apart from the table.
type Advisor struct {
	Model   string
	Timeout time.Duration
	Opts    ChatOptions

	client *http.Client
}

func NewAdvisor(model string, timeout time.Duration) *Advisor {
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	return &Advisor{
		Model:   strings.TrimSpace(model),
		Timeout: timeout,
		Opts:    envChatOptions(),
		client:  &http.Client{Timeout: timeout + 5*time.Second},
	}
}

func (a *Advisor) Name() string { return Name }

// ModelName is the resolved model, for logging next to the advice.
func (a *Advisor) ModelName() string {
	cfg, err := resolveAPIConfig(a.Model)
	if err != nil {
		return a.Model
	}
	return cfg.Model
}

func (a *Advisor) Advise(ctx context.Context, dealer engine.Card, player []engine.Card) (engine.Advice, error) {
	cfg, err := resolveAPIConfig(a.Model)
	if err != nil {
		return engine.Advice{}, err
	}
	obs := agent.BuildObservation(dealer, player)
	raw, err := json.Marshal(obs)
	if err != nil {
		return engine.Advice{}, err
	}
	user := fmt.Sprintf(`Given this observation JSON:
%s

Respond ONLY with a single compact JSON object:
{"action":"%s","confidence":<integer 0-100>,"explanation":"<one sentence>"}
No extra keys. No prose. No markdown.`, raw, strings.Join(obs.Legal, `"|"`))

	opts := a.Opts
	opts.StructuredSchema = adviceSchema(obs.Legal)
	opts.StructuredSchemaName = coalesce(opts.StructuredSchemaName, "blackjack_advice")
	opts.StructuredStrict = true

	ctx2, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	text, err := chat(ctx2, a.client, cfg, adviceSystem, user, opts)
	if err != nil {
		return engine.Advice{}, err
	}

	adv, err := parseAdvice(text)
	if err != nil {
		return engine.Advice{}, err
	}
	adv, err = agent.Validate(obs, adv)
	if err != nil {
		return engine.Advice{}, err
	}
	if adv.WinProbability == nil {
		p := engine.WinProbability(engine.CalculateHand(player), obs.DealerValue)
		adv.WinProbability = &p
	}
	return adv, nil
}

func adviceSchema(legal []string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        legal,
				"description": "The best move to make.",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     100,
				"description": "Confidence percentage (0-100) based on basic strategy charts.",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "A short, one-sentence reasoning for the decision.",
			},
		},
		"required": []string{"action", "confidence", "explanation"},
	}
}

// parseAdvice tolerates prose around the JSON object and numbers sent as
// strings or floats.
func parseAdvice(text string) (engine.Advice, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return engine.Advice{}, errors.New("empty response")
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		cleaned := extractJSONObject(raw)
		if cleaned == "" {
			return engine.Advice{}, fmt.Errorf("decode advice: %w", err)
		}
		if err2 := json.Unmarshal([]byte(cleaned), &parsed); err2 != nil {
			return engine.Advice{}, fmt.Errorf("decode advice: %w", err2)
		}
	}
	act, _ := parsed["action"].(string)
	if strings.TrimSpace(act) == "" {
		return engine.Advice{}, errors.New("no action in response")
	}
	expl, _ := parsed["explanation"].(string)
	return engine.Advice{
		Action:      engine.Action(act),
		Confidence:  coerceInt(parsed["confidence"]),
		Explanation: expl,
	}, nil
}

func coerceInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(math.Round(t))
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(t, "%")), 64); err == nil {
			return int(math.Round(f))
		}
	}
	return 0
}
