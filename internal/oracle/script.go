package oracle

import (
	"context"
	"fmt"
	"sync"

	"trustevo/internal/model"
)

// ScriptedProvider replays a fixed action sequence, cycling when exhausted.
// It stands in for a remote provider in tests and offline runs.
type ScriptedProvider struct {
	name    string
	actions []model.Action

	mu   sync.Mutex
	next int
}

func NewScriptedProvider(name string, actions []model.Action) (*ScriptedProvider, error) {
	if name == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("scripted provider needs at least one action")
	}
	for _, a := range actions {
		if !a.Valid() {
			return nil, fmt.Errorf("invalid scripted action %q", a)
		}
	}
	return &ScriptedProvider{name: name, actions: append([]model.Action(nil), actions...)}, nil
}

func (p *ScriptedProvider) Name() string { return p.name }

func (p *ScriptedProvider) Decide(ctx context.Context, _ DecisionRequest) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	p.mu.Lock()
	action := p.actions[p.next%len(p.actions)]
	p.next++
	p.mu.Unlock()
	return Decision{Action: action, Reason: "scripted"}, nil
}
