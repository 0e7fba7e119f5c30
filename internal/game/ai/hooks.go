package ai

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ScriptCaller evaluates operator Lua hooks.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given profile's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(profile, hook string, args ...lua.LValue) (lua.LValue, error)
}

// Tactic names a gated step of the tick. The hook consulted is
// "allow_<tactic>".
type Tactic string

const (
	TacticFlee    Tactic = "flee"
	TacticHeal    Tactic = "heal"
	TacticCombo   Tactic = "combo"
	TacticArea    Tactic = "area"
	TacticElement Tactic = "element"
)

// Hook returns the Lua function name for t.
func (t Tactic) Hook() string { return "allow_" + string(t) }

// allowed consults the tactic hook. Only an explicit false denies; a missing
// hook, a nil caller, a Lua error or any other value allows.
func (c *Coordinator) allowed(t Tactic) bool {
	if c.scripts == nil {
		return true
	}
	v, err := c.scripts.CallHook(c.profile, t.Hook(), lua.LString(c.id))
	if err != nil {
		return true
	}
	if v == lua.LFalse {
		c.logger.Debug("tactic vetoed by script", zap.String("tactic", string(t)), zap.String("character", c.id))
		return false
	}
	return true
}
