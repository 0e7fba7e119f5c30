// Package ai composes the decision engines into a per-character coordinator
// that emits one action per tick.
package ai

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roagent/internal/game/aoe"
	"github.com/cory-johannsen/roagent/internal/game/combat"
	"github.com/cory-johannsen/roagent/internal/game/combo"
	"github.com/cory-johannsen/roagent/internal/game/element"
	"github.com/cory-johannsen/roagent/internal/game/racesize"
	"github.com/cory-johannsen/roagent/internal/game/targeting"
	"github.com/cory-johannsen/roagent/internal/game/timing"
)

// Options are the per-character behaviour tunables.
type Options struct {
	FleeHPPercent float64  `mapstructure:"flee_hp_percent"`
	HealHPPercent float64  `mapstructure:"heal_hp_percent"`
	HealItems     []string `mapstructure:"heal_items"`
	FleeDistance  int      `mapstructure:"flee_distance"`
	PreferLowHP   bool     `mapstructure:"prefer_low_hp"`
	PvP           bool     `mapstructure:"pvp"`
}

// DefaultOptions returns the built-in behaviour tunables.
func DefaultOptions() Options {
	return Options{
		FleeHPPercent: 15,
		HealHPPercent: 40,
		HealItems:     []string{"White Potion", "Yellow Potion", "Orange Potion", "Red Potion"},
		FleeDistance:  8,
		PreferLowHP:   true,
	}
}

func (o Options) mode() combo.Mode {
	if o.PvP {
		return combo.ModePvP
	}
	return combo.ModePvE
}

// Deps are the shared, read-only collaborators of a Coordinator. Nil fields
// fall back to built-in defaults.
type Deps struct {
	Elements     *element.Resolver
	RaceSize     *racesize.Resolver
	Weights      targeting.Weights
	Planner      aoe.Planner
	AreaSkills   []aoe.SkillDef
	Timing       *timing.Table
	Combos       []combo.Def
	ComboWeights combo.SelectionWeights
	Clock        func() time.Time
	Logger       *zap.Logger
	Tracer       trace.Tracer
	Scripts      ScriptCaller
	Profile      string

	// OnDecision, when set, receives every emitted decision.
	OnDecision func(Decision)
	// OnComboFinished, when set, receives the summary of every finished combo.
	OnComboFinished func(characterID string, s combo.Summary)
}

// Decision is the record of one tick that produced an action.
type Decision struct {
	CharacterID string
	Tactic      string
	Action      combat.Action
	TargetID    string
	TargetScore float64
	Multiplier  float64
	At          time.Time
}

// Tactic labels recorded in Decision.Tactic.
const (
	DecisionFlee    = "flee"
	DecisionHeal    = "heal"
	DecisionCombo   = "combo"
	DecisionElement = "element"
	DecisionArea    = "area"
	DecisionMove    = "move"
	DecisionAttack  = "attack"
)

// Coordinator owns the engines of exactly one character.
//
// A Coordinator is not safe for concurrent use.
type Coordinator struct {
	id      string
	profile string
	opts    Options

	elements   *element.Resolver
	raceSize   *racesize.Resolver
	targets    *targeting.Prioritizer
	planner    aoe.Planner
	areaSkills []aoe.SkillDef
	timing     *timing.Engine
	combos     *combo.Engine

	clock   func() time.Time
	logger  *zap.Logger
	tracer  trace.Tracer
	scripts ScriptCaller

	onDecision      func(Decision)
	onComboFinished func(string, combo.Summary)

	comboTarget string
	last        combat.CharacterState
}

// NewCoordinator builds the engines for characterID.
//
// Precondition: characterID must not be empty.
func NewCoordinator(characterID string, opts Options, deps Deps) *Coordinator {
	if characterID == "" {
		panic("ai.NewCoordinator: characterID must not be empty")
	}
	if deps.Elements == nil {
		deps.Elements = element.NewResolver(nil)
	}
	if deps.RaceSize == nil {
		deps.RaceSize = racesize.NewResolver(nil)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("roagent/ai")
	}
	if deps.Weights == (targeting.Weights{}) {
		deps.Weights = targeting.DefaultWeights()
	}
	if deps.Planner == (aoe.Planner{}) {
		deps.Planner = aoe.DefaultPlanner()
	}
	if deps.ComboWeights == (combo.SelectionWeights{}) {
		deps.ComboWeights = combo.DefaultSelectionWeights()
	}
	logger := deps.Logger.With(zap.String("character", characterID))
	return &Coordinator{
		id:              characterID,
		profile:         deps.Profile,
		opts:            opts,
		elements:        deps.Elements,
		raceSize:        deps.RaceSize,
		targets:         targeting.NewPrioritizer(deps.Weights, deps.Elements),
		planner:         deps.Planner,
		areaSkills:      deps.AreaSkills,
		timing:          timing.NewEngine(deps.Timing, deps.Clock, logger),
		combos:          combo.NewEngine(deps.Combos, deps.ComboWeights, deps.Clock, logger),
		clock:           deps.Clock,
		logger:          logger,
		tracer:          deps.Tracer,
		scripts:         deps.Scripts,
		onDecision:      deps.OnDecision,
		onComboFinished: deps.OnComboFinished,
	}
}

// ID returns the character id.
func (c *Coordinator) ID() string { return c.id }

// Targets exposes the prioritizer, e.g. to manage quest tags.
func (c *Coordinator) Targets() *targeting.Prioritizer { return c.targets }

// Timing exposes the timing engine.
func (c *Coordinator) Timing() *timing.Engine { return c.timing }

// Combos exposes the combo engine.
func (c *Coordinator) Combos() *combo.Engine { return c.combos }

// Multiplier returns the combined element × race/size damage multiplier of
// char against target. Absorbed or immune attacks yield 0.
func (c *Coordinator) Multiplier(char *combat.CharacterState, target combat.HostileActor) float64 {
	em := c.elements.Modifier(char.WeaponElement, 1, target.Element, target.ElementLevel)
	if !em.Effective() {
		return 0
	}
	return em.Multiplier * c.raceSize.CombinedModifier(char.WeaponType, char.Cards, target.Race, target.Size)
}

// Tick decides the next action for snap.
//
// Postcondition: false means the character should do nothing this tick.
func (c *Coordinator) Tick(ctx context.Context, snap combat.Snapshot) (combat.Action, bool) {
	_, span := c.tracer.Start(ctx, "ai.Coordinator.Tick", trace.WithAttributes(
		attribute.String("character.id", c.id),
		attribute.Int("hostiles", len(snap.Hostiles)),
	))
	defer span.End()

	d, ok := c.decide(&snap)
	if !ok {
		span.SetAttributes(attribute.Bool("idle", true))
		return combat.Action{}, false
	}
	if err := d.Action.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("invalid action", zap.String("action", d.Action.String()), zap.Error(err))
		return combat.Action{}, false
	}
	span.SetAttributes(
		attribute.String("tactic", d.Tactic),
		attribute.String("action", d.Action.String()),
		attribute.String("target.id", d.TargetID),
		attribute.Float64("multiplier", d.Multiplier),
	)
	c.logger.Debug("decision",
		zap.String("tactic", d.Tactic),
		zap.String("action", d.Action.String()),
		zap.String("reason", d.Action.Reason),
		zap.Float64("multiplier", d.Multiplier),
	)
	if c.onDecision != nil {
		c.onDecision(d)
	}
	return d.Action, true
}

func (c *Coordinator) decide(snap *combat.Snapshot) (Decision, bool) {
	char := &snap.Character
	c.last = *char
	living := snap.Living()
	at := snap.Now
	if at.IsZero() {
		at = c.clock()
	}
	dec := func(tactic string, a combat.Action) (Decision, bool) {
		return Decision{CharacterID: c.id, Tactic: tactic, Action: a, TargetID: a.TargetID, At: at}, true
	}

	if threat, ok := c.fleeThreat(char, living); ok && c.allowed(TacticFlee) {
		c.abortCombo("fleeing")
		to := char.Position.Away(threat.Position, c.fleeDistance())
		return dec(DecisionFlee, combat.NewAction(combat.ActionFlee, 1,
			fmt.Sprintf("HP %.0f%% with %s attacking", char.HPPercent(), threat.Name)).WithPosition(to))
	}

	if item, ok := c.healItem(char); ok && c.allowed(TacticHeal) {
		return dec(DecisionHeal, combat.NewAction(combat.ActionItem, 2,
			fmt.Sprintf("HP %.0f%%", char.HPPercent())).WithItem(item).WithTarget(char.ID))
	}

	if len(living) == 0 {
		c.abortCombo("no hostiles")
		c.targets.Release()
		return Decision{}, false
	}
	ts, ok := c.targets.Update(char, living, char.WeaponElement, c.opts.PreferLowHP)
	if !ok {
		return Decision{}, false
	}
	target := ts.Actor
	mult := c.Multiplier(char, target)
	scored := func(tactic string, a combat.Action) (Decision, bool) {
		d, ok := dec(tactic, a)
		d.TargetID = target.ID
		d.TargetScore = ts.Score
		d.Multiplier = mult
		return d, ok
	}

	canCast, block := c.timing.CanCastNow()
	switch block {
	case timing.BlockAlreadyCasting, timing.BlockAnimation:
		return Decision{}, false
	}

	if canCast {
		if a, ok, hold := c.continueCombo(char, living, target); ok {
			return scored(DecisionCombo, a)
		} else if hold {
			return Decision{}, false
		}

		if a, ok := c.elementChange(char, target); ok {
			return scored(DecisionElement, a)
		}

		if len(living) >= 2 {
			if a, ok := c.areaAction(char, living); ok {
				return scored(DecisionArea, a)
			}
		}

		if a, ok := c.offerCombo(char, living, target); ok {
			return scored(DecisionCombo, a)
		}
	}

	dist := char.Position.DistanceTo(target.Position)
	reach := char.Reach()
	if dist > float64(reach) {
		steps := int(math.Ceil(dist)) - reach
		to := char.Position.StepToward(target.Position, max(steps, 1))
		return scored(DecisionMove, combat.NewAction(combat.ActionMove, 6,
			fmt.Sprintf("closing on %s (%.1f cells)", target.Name, dist)).WithPosition(to).WithTarget(target.ID))
	}
	return scored(DecisionAttack, combat.NewAction(combat.ActionAttack, 5,
		fmt.Sprintf("attack %s (x%.2f)", target.Name, mult)).WithTarget(target.ID))
}

func (c *Coordinator) fleeDistance() int {
	if c.opts.FleeDistance < 1 {
		return 1
	}
	return c.opts.FleeDistance
}

// fleeThreat returns the nearest aggressive hostile targeting the character
// when HP is at or below the flee threshold.
func (c *Coordinator) fleeThreat(char *combat.CharacterState, living []combat.HostileActor) (combat.HostileActor, bool) {
	if c.opts.FleeHPPercent <= 0 || char.HPPercent() > c.opts.FleeHPPercent {
		return combat.HostileActor{}, false
	}
	var best combat.HostileActor
	bestDist := math.Inf(1)
	for _, h := range living {
		if !h.Aggressive || !h.TargetingMe {
			continue
		}
		if d := char.Position.DistanceTo(h.Position); d < bestDist {
			best, bestDist = h, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

func (c *Coordinator) healItem(char *combat.CharacterState) (string, bool) {
	if c.opts.HealHPPercent <= 0 || char.HPPercent() > c.opts.HealHPPercent {
		return "", false
	}
	for _, item := range c.opts.HealItems {
		if char.ItemCount(item) > 0 {
			return item, true
		}
	}
	return "", false
}

// continueCombo advances the running combo. hold is true when a combo is
// running but its next step is not ready yet.
func (c *Coordinator) continueCombo(char *combat.CharacterState, living []combat.HostileActor, target combat.HostileActor) (a combat.Action, ok bool, hold bool) {
	if c.combos.HasRun() && !c.combos.Active() {
		c.finishCombo()
	}
	if !c.combos.Active() {
		return combat.Action{}, false, false
	}

	comboTarget, present := findActor(living, c.comboTarget)
	if c.combos.ShouldAbort(char.HPPercent(), !present) {
		c.abortCombo("abort condition")
		return combat.Action{}, false, false
	}
	if !present {
		comboTarget = target
	}

	step, _ := c.combos.NextStep()
	if char.SP < step.SPCost {
		c.abortCombo("insufficient SP")
		return combat.Action{}, false, false
	}
	if !c.combos.Ready() || c.timing.IsSkillOnCooldown(step.SkillID) {
		return combat.Action{}, false, true
	}

	run, _ := c.combos.Current()
	def, _ := c.combos.Def(run.ComboID)
	return combat.NewAction(combat.ActionSkill, 3,
		fmt.Sprintf("combo %s step %d/%d", def.ID, run.StepIndex+1, len(def.Steps))).
		WithSkill(step.SkillID, step.Level).WithTarget(comboTarget.ID), true, false
}

func (c *Coordinator) offerCombo(char *combat.CharacterState, living []combat.HostileActor, target combat.HostileActor) (combat.Action, bool) {
	if len(c.combos.Defs()) == 0 || !c.allowed(TacticCombo) {
		return combat.Action{}, false
	}
	clustered := c.planner.Clustered(combat.Positions(living))
	def, ok := c.combos.Select(char, c.opts.mode(), clustered)
	if !ok || c.timing.IsSkillOnCooldown(def.Steps[0].SkillID) {
		return combat.Action{}, false
	}
	if !c.combos.Start(def.ID) {
		return combat.Action{}, false
	}
	c.comboTarget = target.ID
	step, _ := c.combos.NextStep()
	return combat.NewAction(combat.ActionSkill, 3,
		fmt.Sprintf("combo %s step 1/%d", def.ID, len(def.Steps))).
		WithSkill(step.SkillID, step.Level).WithTarget(target.ID), true
}

func (c *Coordinator) elementChange(char *combat.CharacterState, target combat.HostileActor) (combat.Action, bool) {
	rec := c.elements.Recommend(char.WeaponElement, target.Element, target.ElementLevel)
	if !rec.Change || rec.Optimal == char.WeaponElement || !c.allowed(TacticElement) {
		return combat.Action{}, false
	}
	reason := fmt.Sprintf("%s weapon vs %s %s: switch to %s", char.WeaponElement, target.Element, target.Name, rec.Optimal)
	if rec.Converter != element.None && char.ItemCount(rec.Converter) > 0 {
		return combat.NewAction(combat.ActionItem, 4, reason).WithItem(rec.Converter).WithTarget(char.ID), true
	}
	if rec.Endow != element.None {
		if lvl := char.SkillLevel(rec.Endow); lvl > 0 && !c.timing.IsSkillOnCooldown(rec.Endow) {
			return combat.NewAction(combat.ActionSkill, 4, reason).WithSkill(rec.Endow, lvl).WithTarget(char.ID), true
		}
	}
	return combat.Action{}, false
}

func (c *Coordinator) areaAction(char *combat.CharacterState, living []combat.HostileActor) (combat.Action, bool) {
	usable := make([]aoe.SkillDef, 0, len(c.areaSkills))
	for _, s := range c.areaSkills {
		if char.SkillLevel(s.Name) > 0 && !c.timing.IsSkillOnCooldown(s.Name) {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		return combat.Action{}, false
	}
	choice, ok := c.planner.Best(usable, combat.Positions(living), char.Position, char.SP)
	if !ok || !c.allowed(TacticArea) {
		return combat.Action{}, false
	}
	a := combat.NewAction(combat.ActionSkill, 4,
		fmt.Sprintf("%s hits %d (eff %.2f)", choice.Skill.Name, choice.Placement.Hits, choice.Efficiency)).
		WithSkill(choice.Skill.Name, char.SkillLevel(choice.Skill.Name))
	switch choice.Skill.Shape {
	case aoe.ShapeSelf:
		a = a.WithTarget(char.ID)
	case aoe.ShapeTarget:
		for _, h := range living {
			if h.Position == choice.Placement.Center {
				a = a.WithTarget(h.ID)
				break
			}
		}
		a = a.WithPosition(choice.Placement.Center)
	default:
		a = a.WithPosition(choice.Placement.Center)
	}
	return a, true
}

func (c *Coordinator) abortCombo(reason string) {
	if !c.combos.HasRun() {
		return
	}
	c.logger.Debug("combo aborted", zap.String("reason", reason))
	c.combos.Abort()
	c.finishCombo()
}

func (c *Coordinator) finishCombo() {
	s, ok := c.combos.Finish()
	c.comboTarget = ""
	if ok && c.onComboFinished != nil {
		c.onComboFinished(c.id, s)
	}
}

// CastStarted reports that the client began casting skill. The cast time is
// derived from the timing table and the last seen character stats.
func (c *Coordinator) CastStarted(skill string) {
	st, _ := c.timing.Table().Lookup(skill)
	c.timing.StartCast(skill, timing.CastTime(st, c.last.Stats, c.last.GearCastReduction))
}

// CastCompleted reports that skill finished casting.
func (c *Coordinator) CastCompleted(skill string) {
	st, _ := c.timing.Table().Lookup(skill)
	c.timing.CompleteCast(skill, timing.AfterCastDelay(st.AfterCastDelay, c.last.Stats, c.last.GearDelayReduction))
}

// CastInterrupted reports that the cast in progress was interrupted. A
// running combo is abandoned.
func (c *Coordinator) CastInterrupted() {
	c.timing.InterruptCast()
	c.abortCombo("cast interrupted")
}

// StepResult reports the outcome of the combo step just executed.
func (c *Coordinator) StepResult(hit bool, damage int) {
	if !c.combos.Active() {
		return
	}
	c.combos.RecordStepResult(hit, damage)
	if !c.combos.Active() {
		c.finishCombo()
	}
}

// Reset aborts any combo, releases the target and interrupts any cast.
func (c *Coordinator) Reset() {
	c.abortCombo("reset")
	c.targets.Release()
	c.timing.InterruptCast()
}

func findActor(actors []combat.HostileActor, id string) (combat.HostileActor, bool) {
	if id == "" {
		return combat.HostileActor{}, false
	}
	for _, a := range actors {
		if a.ID == id {
			return a, true
		}
	}
	return combat.HostileActor{}, false
}
