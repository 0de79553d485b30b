package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/filomancini00/blackjack-bible/server/engine"
)

// TableName is the advisor backed by the basic-strategy table.
const TableName = "table"

var ErrUnknownAdvisor = errors.New("unknown advisor")

// Advisor produces a verdict for a dealer upcard and a player hand. The
// table and any model-backed source are interchangeable behind it.
type Advisor interface {
	Name() string
	Advise(ctx context.Context, dealer engine.Card, player []engine.Card) (engine.Advice, error)
}

type Table struct{}

func (Table) Name() string { return TableName }

func (Table) Advise(_ context.Context, dealer engine.Card, player []engine.Card) (engine.Advice, error) {
	return engine.Evaluate(dealer, player), nil
}

// Registry picks an advisor by configured name.
type Registry struct {
	mu       sync.RWMutex
	advisors map[string]Advisor
	def      string
}

// NewRegistry always carries the table advisor so there is a working default.
func NewRegistry() *Registry {
	return &Registry{advisors: map[string]Advisor{TableName: Table{}}, def: TableName}
}

func (r *Registry) Register(a Advisor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advisors[strings.ToLower(a.Name())] = a
}

func (r *Registry) SetDefault(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.advisors[name]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownAdvisor, name)
	}
	r.def = name
	return nil
}

func (r *Registry) Default() Advisor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.advisors[r.def]
}

// Get returns the named advisor, or the default when name is blank.
func (r *Registry) Get(name string) (Advisor, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return r.Default(), nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.advisors[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAdvisor, name)
	}
	return a, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.advisors))
	for k := range r.advisors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Advise validates the hand, short-circuits busts to the table (there is
// nothing to ask a model once the hand is over) and runs the advisor. The
// returned Advisor is the one that actually answered, so a bust is never
// credited to the advisor that was asked.
func Advise(ctx context.Context, a Advisor, dealer *engine.Card, player []engine.Card) (engine.Advice, Advisor, error) {
	if err := CheckHand(dealer, player); err != nil {
		return engine.Advice{}, a, err
	}
	if engine.CalculateHand(player).Total > 21 {
		return engine.Evaluate(*dealer, player), Table{}, nil
	}
	adv, err := a.Advise(ctx, *dealer, player)
	if err != nil {
		return engine.Advice{}, a, fmt.Errorf("%s advisor: %w", a.Name(), err)
	}
	return adv, a, nil
}
