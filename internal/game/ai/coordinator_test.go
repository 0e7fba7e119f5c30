package ai_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/roagent/internal/game/ai"
	"github.com/cory-johannsen/roagent/internal/game/aoe"
	"github.com/cory-johannsen/roagent/internal/game/combat"
	"github.com/cory-johannsen/roagent/internal/game/combo"
	"github.com/cory-johannsen/roagent/internal/game/element"
	"github.com/cory-johannsen/roagent/internal/game/racesize"
	"github.com/cory-johannsen/roagent/internal/game/timing"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// hookCaller returns a fixed value per hook name and records calls.
type hookCaller struct {
	values map[string]lua.LValue
	calls  []string
}

func (h *hookCaller) CallHook(profile, hook string, args ...lua.LValue) (lua.LValue, error) {
	h.calls = append(h.calls, profile+":"+hook)
	if v, ok := h.values[hook]; ok {
		return v, nil
	}
	return lua.LNil, nil
}

func newCoordinator(t *testing.T, deps ai.Deps) (*ai.Coordinator, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	deps.Clock = clk.Now
	return ai.NewCoordinator("char-1", ai.DefaultOptions(), deps), clk
}

func baseChar() combat.CharacterState {
	return combat.CharacterState{
		ID: "char-1", Name: "Tester", Level: 50,
		HP: 100, MaxHP: 100, SP: 200, MaxSP: 200,
		WeaponType: "dagger", Position: combat.Position{X: 10, Y: 10},
		Items: map[string]int{}, Skills: map[string]int{},
	}
}

func hostile(id string, x, y int) combat.HostileActor {
	return combat.HostileActor{
		ID: id, Name: id, Level: 50, Position: combat.Position{X: x, Y: y},
		HP: 100, MaxHP: 100, ElementLevel: 1, Size: racesize.Small,
	}
}

func TestTick_NoHostiles(t *testing.T) {
	c, _ := newCoordinator(t, ai.Deps{})
	_, ok := c.Tick(context.Background(), combat.Snapshot{Character: baseChar()})
	assert.False(t, ok)
}

func TestTick_FleeFirst(t *testing.T) {
	c, _ := newCoordinator(t, ai.Deps{})
	char := baseChar()
	char.HP = 10
	char.Items["White Potion"] = 5
	h := hostile("orc", 12, 10)
	h.Aggressive, h.TargetingMe = true, true

	a, ok := c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{h}})
	require.True(t, ok)
	assert.Equal(t, combat.ActionFlee, a.Kind)
	assert.Equal(t, combat.PriorityHighest, a.Priority)
	require.NotNil(t, a.Position)
	assert.Equal(t, combat.Position{X: 2, Y: 10}, *a.Position)
}

func TestTick_FleeVetoedFallsToHeal(t *testing.T) {
	hooks := &hookCaller{values: map[string]lua.LValue{"allow_flee": lua.LFalse}}
	c, _ := newCoordinator(t, ai.Deps{Scripts: hooks, Profile: "cautious"})
	char := baseChar()
	char.HP = 10
	char.Items["Red Potion"] = 1
	h := hostile("orc", 12, 10)
	h.Aggressive, h.TargetingMe = true, true

	a, ok := c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{h}})
	require.True(t, ok)
	assert.Equal(t, combat.ActionItem, a.Kind)
	assert.Equal(t, "Red Potion", a.ItemID)
	assert.Contains(t, hooks.calls, "cautious:allow_flee")
	assert.Contains(t, hooks.calls, "cautious:allow_heal")
}

func TestTick_HealWithoutThreat(t *testing.T) {
	c, _ := newCoordinator(t, ai.Deps{})
	char := baseChar()
	char.HP = 30
	char.Items["White Potion"] = 2
	a, ok := c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{hostile("poring", 11, 10)}})
	require.True(t, ok)
	assert.Equal(t, combat.ActionItem, a.Kind)
	assert.Equal(t, "White Potion", a.ItemID)
}

func TestTick_AttackInRangeMoveOtherwise(t *testing.T) {
	c, _ := newCoordinator(t, ai.Deps{})
	char := baseChar()

	a, ok := c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{hostile("poring", 11, 10)}})
	require.True(t, ok)
	assert.Equal(t, combat.ActionAttack, a.Kind)
	assert.Equal(t, "poring", a.TargetID)

	c2, _ := newCoordinator(t, ai.Deps{})
	a, ok = c2.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{hostile("poring", 16, 10)}})
	require.True(t, ok)
	assert.Equal(t, combat.ActionMove, a.Kind)
	require.NotNil(t, a.Position)
	assert.Equal(t, combat.Position{X: 15, Y: 10}, *a.Position)
}

func TestTick_TimingGate(t *testing.T) {
	tbl := timing.NewTable(map[string]timing.SkillTiming{
		"MG_FIREBOLT": {VariableCast: time.Second, AfterCastDelay: 2 * time.Second},
	})
	c, clk := newCoordinator(t, ai.Deps{Timing: tbl})
	snap := combat.Snapshot{Character: baseChar(), Hostiles: []combat.HostileActor{hostile("poring", 11, 10)}}

	_, ok := c.Tick(context.Background(), snap)
	require.True(t, ok)

	c.CastStarted("MG_FIREBOLT")
	_, ok = c.Tick(context.Background(), snap)
	assert.False(t, ok, "nothing while casting")

	clk.Advance(time.Second)
	c.CastCompleted("MG_FIREBOLT")
	a, ok := c.Tick(context.Background(), snap)
	require.True(t, ok)
	assert.Equal(t, combat.ActionAttack, a.Kind, "only basic attack during after-cast delay")
	can, reason := c.Timing().CanCastNow()
	assert.False(t, can)
	assert.Equal(t, timing.BlockAfterCastDelay, reason)

	c.CastStarted("MG_FIREBOLT")
	c.CastInterrupted()
	clk.Advance(2 * time.Second)
	ok, _ = c.Timing().CanCastNow()
	assert.True(t, ok)
}

func TestTick_ElementConverter(t *testing.T) {
	c, _ := newCoordinator(t, ai.Deps{})
	char := baseChar()
	char.WeaponElement = element.Fire
	char.Items["Frost Elemental Converter"] = 1
	h := hostile("salamander", 11, 10)
	h.Element = element.Fire

	a, ok := c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{h}})
	require.True(t, ok)
	assert.Equal(t, combat.ActionItem, a.Kind)
	assert.Equal(t, "Frost Elemental Converter", a.ItemID)

	hooks := &hookCaller{values: map[string]lua.LValue{"allow_element": lua.LFalse}}
	c2, _ := newCoordinator(t, ai.Deps{Scripts: hooks})
	a, ok = c2.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{h}})
	require.True(t, ok)
	assert.Equal(t, combat.ActionAttack, a.Kind)
}

func TestTick_AreaSkillOnCluster(t *testing.T) {
	storm := aoe.SkillDef{Name: "WZ_STORMGUST", Shape: aoe.ShapeGround, Radius: 4, CastRange: 9, SPCost: 78, HitsPerTarget: 10}
	var decisions []ai.Decision
	c, _ := newCoordinator(t, ai.Deps{
		AreaSkills: []aoe.SkillDef{storm},
		OnDecision: func(d ai.Decision) { decisions = append(decisions, d) },
	})
	char := baseChar()
	char.Position = combat.Position{X: 0, Y: 0}
	char.Skills["WZ_STORMGUST"] = 10
	hostiles := []combat.HostileActor{hostile("a", 5, 5), hostile("b", 6, 5), hostile("c", 5, 6)}

	a, ok := c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: hostiles})
	require.True(t, ok)
	assert.Equal(t, combat.ActionSkill, a.Kind)
	assert.Equal(t, "WZ_STORMGUST", a.SkillID)
	assert.Equal(t, 10, a.Level)
	require.NotNil(t, a.Position)
	assert.Equal(t, combat.Position{X: 5, Y: 5}, *a.Position)
	require.Len(t, decisions, 1)
	assert.Equal(t, ai.DecisionArea, decisions[0].Tactic)

	char.SP = 10
	a, ok = c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: hostiles})
	require.True(t, ok)
	assert.NotEqual(t, combat.ActionSkill, a.Kind, "unaffordable area skill is skipped")
}

func TestTick_ComboLifecycle(t *testing.T) {
	defs := []combo.Def{{
		ID: "chain", RequiredSP: 10, PvERating: 5, RequiresTarget: true,
		Steps: []combo.StepDef{
			{SkillID: "A", Level: 1, MinDelay: 500 * time.Millisecond},
			{SkillID: "B", Level: 2, RequiresHit: true, SPCost: 5},
		},
	}}
	var summaries []combo.Summary
	c, clk := newCoordinator(t, ai.Deps{
		Combos: defs,
		OnComboFinished: func(id string, s combo.Summary) {
			assert.Equal(t, "char-1", id)
			summaries = append(summaries, s)
		},
	})
	char := baseChar()
	char.Skills["A"], char.Skills["B"] = 1, 2
	snap := combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{hostile("poring", 11, 10)}}

	a, ok := c.Tick(context.Background(), snap)
	require.True(t, ok)
	assert.Equal(t, "A", a.SkillID)
	c.CastStarted("A")
	c.CastCompleted("A")
	c.StepResult(true, 10)

	_, ok = c.Tick(context.Background(), snap)
	assert.False(t, ok, "waits for the step delay")

	clk.Advance(500 * time.Millisecond)
	a, ok = c.Tick(context.Background(), snap)
	require.True(t, ok)
	assert.Equal(t, "B", a.SkillID)
	assert.Equal(t, 2, a.Level)
	c.CastStarted("B")
	c.CastCompleted("B")
	c.StepResult(true, 20)

	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].Completed)
	assert.Equal(t, 2, summaries[0].StepsExecuted)
	assert.Equal(t, 30, summaries[0].Damage)
	assert.False(t, c.Combos().HasRun())
}

func TestTick_ComboAbortedWhenTargetDies(t *testing.T) {
	defs := []combo.Def{{
		ID: "chain", PvERating: 5, RequiresTarget: true,
		Steps: []combo.StepDef{{SkillID: "A"}, {SkillID: "B"}},
	}}
	var summaries []combo.Summary
	c, _ := newCoordinator(t, ai.Deps{
		Combos:          defs,
		OnComboFinished: func(_ string, s combo.Summary) { summaries = append(summaries, s) },
	})
	char := baseChar()
	char.Skills["A"], char.Skills["B"] = 1, 1

	_, ok := c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{hostile("first", 11, 10)}})
	require.True(t, ok)
	c.StepResult(true, 1)

	dead := hostile("first", 11, 10)
	dead.HP = 0
	_, ok = c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{dead, hostile("second", 12, 10)}})
	require.True(t, ok)
	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].Completed)
	assert.Equal(t, 1, summaries[0].StepsExecuted)
}

func TestTick_ComboHookVeto(t *testing.T) {
	hooks := &hookCaller{values: map[string]lua.LValue{"allow_combo": lua.LFalse}}
	c, _ := newCoordinator(t, ai.Deps{
		Scripts: hooks,
		Combos:  []combo.Def{{ID: "x", PvERating: 1, Steps: []combo.StepDef{{SkillID: "A"}}}},
	})
	char := baseChar()
	char.Skills["A"] = 1
	a, ok := c.Tick(context.Background(), combat.Snapshot{Character: char, Hostiles: []combat.HostileActor{hostile("m", 11, 10)}})
	require.True(t, ok)
	assert.Equal(t, combat.ActionAttack, a.Kind)
}

func TestMultiplier(t *testing.T) {
	c, _ := newCoordinator(t, ai.Deps{})
	char := baseChar()
	char.WeaponElement = element.Water
	char.Cards = []string{"Hydra Card"}
	h := hostile("m", 11, 10)
	h.Element = element.Fire
	h.Race = racesize.DemiHuman
	h.Size = racesize.Large

	assert.InDelta(t, 1.5*0.5*1.2, c.Multiplier(&char, h), 1e-9)

	h.Element = element.Water
	h.ElementLevel = 3
	assert.Equal(t, 0.0, c.Multiplier(&char, h), "absorbed")
}

func TestNewCoordinator_EmptyIDPanics(t *testing.T) {
	assert.Panics(t, func() { ai.NewCoordinator("", ai.DefaultOptions(), ai.Deps{}) })
}
