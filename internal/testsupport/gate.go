package testsupport

import (
	"context"
	"sync"

	"courier/internal/transport"
)

// ScriptedGate is a gate.Gate backed by an explicit member set. It counts
// checks so cache behavior can be asserted.
type ScriptedGate struct {
	mu      sync.Mutex
	members map[transport.PrincipalID]bool
	err     error
	checks  int
}

// NewScriptedGate returns a gate that admits the given principals.
func NewScriptedGate(members ...transport.PrincipalID) *ScriptedGate {
	g := &ScriptedGate{members: make(map[transport.PrincipalID]bool)}
	for _, p := range members {
		g.members[p] = true
	}
	return g
}

// Admit adds a principal to the member set.
func (g *ScriptedGate) Admit(p transport.PrincipalID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[p] = true
}

// Expel removes a principal from the member set.
func (g *ScriptedGate) Expel(p transport.PrincipalID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, p)
}

// Fail makes subsequent checks return err. Pass nil to clear.
func (g *ScriptedGate) Fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Checks reports how many membership checks reached this gate.
func (g *ScriptedGate) Checks() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checks
}

func (g *ScriptedGate) Authorized(ctx context.Context, principal transport.PrincipalID) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	if g.err != nil {
		return false, g.err
	}
	return g.members[principal], nil
}
