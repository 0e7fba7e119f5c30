package sim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roagent/internal/agent"
	"github.com/cory-johannsen/roagent/internal/game/combat"
	"github.com/cory-johannsen/roagent/internal/game/dice"
	"github.com/cory-johannsen/roagent/internal/game/element"
	"github.com/cory-johannsen/roagent/internal/game/racesize"
	"github.com/cory-johannsen/roagent/internal/game/timing"
)

// Errors returned by Execute.
var (
	ErrUnknownCharacter = errors.New("unknown or downed character")
	ErrCasting          = errors.New("character is casting")
	ErrOutOfRange       = errors.New("target out of range")
	ErrNoTarget         = errors.New("target not present")
	ErrSkillUnavailable = errors.New("skill not usable")
	ErrInsufficientSP   = errors.New("insufficient sp")
	ErrNoItem           = errors.New("item not carried")
)

// BasicAttackKey is the DamageBySkill key for basic attacks.
const BasicAttackKey = "attack"

// Options configure a World. Zero fields fall back to defaults.
type Options struct {
	// Seed overrides Scenario.Seed when non-zero. With both zero the world
	// rolls from a crypto source.
	Seed     uint64
	Start    time.Time
	Elements *element.Resolver
	RaceSize *racesize.Resolver
	Timing   *timing.Table
	Logger   *zap.Logger
}

// Result summarises a finished or running simulation.
type Result struct {
	Scenario          string
	Seed              uint64
	Ticks             int
	Elapsed           time.Duration
	Win               bool
	Kills             int
	Casts             int
	Interrupts        int
	DamageBySkill     map[string]int
	DamageByCharacter map[string]int
	DamageTaken       map[string]int
}

type pendingCast struct {
	action    combat.Action
	effect    SkillEffect
	resolveAt time.Time
}

type character struct {
	spec  CharacterSpec
	state combat.CharacterState
	cast  *pendingCast
	down  bool
}

type hostile struct {
	spec    HostileSpec
	actor   combat.HostileActor
	engaged string
}

// World is a lock-step combat simulation. It implements agent.World and
// agent.Stepper and is safe for concurrent use.
type World struct {
	mu       sync.Mutex
	sc       *Scenario
	start    time.Time
	now      time.Time
	ticks    int
	done     bool
	roller   *dice.Roller
	elements *element.Resolver
	raceSize *racesize.Resolver
	timing   *timing.Table
	logger   *zap.Logger

	order    []string
	chars    map[string]*character
	hostiles []*hostile
	events   map[string][]agent.Event
	result   Result
}

var (
	_ agent.World   = (*World)(nil)
	_ agent.Stepper = (*World)(nil)
)

// NewWorld builds a World from a validated scenario.
//
// Precondition: sc must be non-nil.
func NewWorld(sc *Scenario, opts Options) *World {
	if sc == nil {
		panic("sim.NewWorld: scenario must not be nil")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Elements == nil {
		opts.Elements = element.NewResolver(nil)
	}
	if opts.RaceSize == nil {
		opts.RaceSize = racesize.NewResolver(nil)
	}
	if opts.Timing == nil {
		opts.Timing = timing.NewTable(nil)
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = sc.Seed
	}
	src := dice.NewCryptoSource()
	if seed != 0 {
		src = dice.NewSeededSource(seed)
	}
	logger := opts.Logger.With(zap.String("scenario", sc.Name))
	w := &World{
		sc:       sc,
		start:    opts.Start,
		now:      opts.Start,
		roller:   dice.NewRoller(src, logger.Named("dice")),
		elements: opts.Elements,
		raceSize: opts.RaceSize,
		timing:   opts.Timing,
		logger:   logger,
		chars:    make(map[string]*character, len(sc.Characters)),
		events:   make(map[string][]agent.Event),
		result: Result{
			Scenario:          sc.Name,
			Seed:              seed,
			DamageBySkill:     map[string]int{},
			DamageByCharacter: map[string]int{},
			DamageTaken:       map[string]int{},
		},
	}
	for _, spec := range sc.Characters {
		w.order = append(w.order, spec.ID)
		w.chars[spec.ID] = &character{spec: spec, state: cloneCharacter(spec.CharacterState)}
	}
	for _, spec := range sc.Hostiles {
		w.hostiles = append(w.hostiles, &hostile{spec: spec, actor: spec.HostileActor})
	}
	return w
}

// Now returns the simulated clock.
func (w *World) Now() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

// CharacterIDs returns the scenario characters in declaration order.
func (w *World) CharacterIDs() []string {
	return slices.Clone(w.order)
}

// Profile returns the script profile of characterID.
func (w *World) Profile(characterID string) string {
	if c, ok := w.chars[characterID]; ok {
		return c.spec.Profile
	}
	return ""
}

// QuestTags returns the quest tags of characterID.
func (w *World) QuestTags(characterID string) []string {
	if c, ok := w.chars[characterID]; ok {
		return slices.Clone(c.spec.QuestTags)
	}
	return nil
}

// Snapshot implements agent.World.
func (w *World) Snapshot(characterID string) (combat.Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.chars[characterID]
	if !ok || c.down {
		return combat.Snapshot{}, false
	}
	snap := combat.Snapshot{Character: cloneCharacter(c.state), Now: w.now}
	for _, h := range w.hostiles {
		if h.actor.IsDead() {
			continue
		}
		a := h.actor
		a.TargetingMe = h.engaged == characterID
		snap.Hostiles = append(snap.Hostiles, a)
	}
	return snap, true
}

// Drain implements agent.World.
func (w *World) Drain(characterID string) []agent.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	ev := w.events[characterID]
	delete(w.events, characterID)
	return ev
}

// Execute implements agent.World.
func (w *World) Execute(_ context.Context, characterID string, a combat.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.chars[characterID]
	if !ok || c.down {
		return fmt.Errorf("%w: %s", ErrUnknownCharacter, characterID)
	}
	if c.cast != nil {
		if a.Kind != combat.ActionFlee {
			return ErrCasting
		}
		w.interrupt(c)
	}
	switch a.Kind {
	case combat.ActionAttack:
		return w.attack(c, a.TargetID)
	case combat.ActionSkill:
		return w.startSkill(c, a)
	case combat.ActionMove, combat.ActionFlee:
		c.state.Position = c.state.Position.StepToward(*a.Position, c.spec.MoveSpeed)
		return nil
	case combat.ActionItem:
		return w.useItem(c, a.ItemID)
	}
	return fmt.Errorf("unsupported action %s", a.Kind)
}

// Advance implements agent.Stepper: it moves the clock one tick, resolves
// due casts, lets hostiles act and regenerates SP.
//
// Postcondition: true once every hostile or every character is down, or
// MaxTicks is reached.
func (w *World) Advance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return true
	}
	w.now = w.now.Add(w.sc.Tick)
	w.ticks++

	for _, id := range w.order {
		c := w.chars[id]
		if c.cast != nil && !w.now.Before(c.cast.resolveAt) {
			w.resolveSkill(c)
		}
	}
	for _, h := range w.hostiles {
		w.hostileTurn(h)
	}
	for _, id := range w.order {
		c := w.chars[id]
		if !c.down && c.spec.SPRegen > 0 {
			c.state.SP = min(c.state.SP+c.spec.SPRegen, c.state.MaxSP)
		}
	}

	switch {
	case w.livingHostiles() == 0:
		w.result.Win = true
		w.done = true
	case w.livingCharacters() == 0:
		w.done = true
	case w.sc.MaxTicks > 0 && w.ticks >= w.sc.MaxTicks:
		w.done = true
	}
	if w.done {
		w.logger.Info("simulation finished",
			zap.Int("ticks", w.ticks),
			zap.Bool("win", w.result.Win),
			zap.Int("kills", w.result.Kills),
		)
	}
	return w.done
}

// Result returns a copy of the current result.
func (w *World) Result() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.result
	r.Ticks = w.ticks
	r.Elapsed = w.now.Sub(w.start)
	r.DamageBySkill = maps.Clone(w.result.DamageBySkill)
	r.DamageByCharacter = maps.Clone(w.result.DamageByCharacter)
	r.DamageTaken = maps.Clone(w.result.DamageTaken)
	return r
}

// Hostile returns the current state of hostile id.
func (w *World) Hostile(id string) (combat.HostileActor, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range w.hostiles {
		if h.actor.ID == id {
			return h.actor, true
		}
	}
	return combat.HostileActor{}, false
}

func (w *World) emit(characterID string, ev agent.Event) {
	w.events[characterID] = append(w.events[characterID], ev)
}

func (w *World) findHostile(id string) *hostile {
	for _, h := range w.hostiles {
		if h.actor.ID == id && !h.actor.IsDead() {
			return h
		}
	}
	return nil
}

func (w *World) attack(c *character, targetID string) error {
	h := w.findHostile(targetID)
	if h == nil {
		return fmt.Errorf("%w: %s", ErrNoTarget, targetID)
	}
	if c.state.Position.DistanceTo(h.actor.Position) > float64(c.state.Reach()) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, targetID)
	}
	w.strike(c, h, w.sc.BasicAttack, c.state.WeaponElement, BasicAttackKey)
	return nil
}

func (w *World) startSkill(c *character, a combat.Action) error {
	if c.state.SkillLevel(a.SkillID) <= 0 {
		return fmt.Errorf("%w: %s", ErrSkillUnavailable, a.SkillID)
	}
	effect := w.skillEffect(a.SkillID)
	if c.state.SP < effect.SPCost {
		return fmt.Errorf("%w: %s needs %d", ErrInsufficientSP, a.SkillID, effect.SPCost)
	}
	if a.Position == nil && w.findHostile(a.TargetID) == nil {
		return fmt.Errorf("%w: %s", ErrNoTarget, a.TargetID)
	}
	c.state.SP -= effect.SPCost
	st, _ := w.timing.Lookup(a.SkillID)
	castTime := timing.CastTime(st, c.state.Stats, c.state.GearCastReduction)
	c.cast = &pendingCast{action: a, effect: effect, resolveAt: w.now.Add(castTime)}
	w.result.Casts++
	w.emit(c.state.ID, agent.Event{Kind: agent.EventCastStarted, Skill: a.SkillID})
	if castTime <= 0 {
		w.resolveSkill(c)
	}
	return nil
}

func (w *World) skillEffect(skill string) SkillEffect {
	if e, ok := w.sc.Skills[skill]; ok {
		return e
	}
	for name, e := range w.sc.Skills {
		if strings.EqualFold(name, skill) {
			return e
		}
	}
	return SkillEffect{Attack: w.sc.BasicAttack}
}

func (w *World) itemEffect(item string) ItemEffect {
	if e, ok := w.sc.Items[item]; ok {
		return e
	}
	for name, e := range w.sc.Items {
		if strings.EqualFold(name, item) {
			return e
		}
	}
	return ItemEffect{}
}

func (w *World) resolveSkill(c *character) {
	pc := c.cast
	c.cast = nil
	a, eff := pc.action, pc.effect
	w.emit(c.state.ID, agent.Event{Kind: agent.EventCastCompleted, Skill: a.SkillID})

	if eff.Endow != nil {
		c.state.WeaponElement = *eff.Endow
	}
	if eff.Heal > 0 {
		c.state.HP = min(c.state.HP+eff.Heal, c.state.MaxHP)
	}
	hit, total := eff.Endow != nil || eff.Heal > 0, 0
	if eff.Damage != "" {
		elem := c.state.WeaponElement
		if eff.Element != nil {
			elem = *eff.Element
		}
		for _, h := range w.skillTargets(a, eff) {
			if dmg, ok := w.strike(c, h, eff.Attack, elem, a.SkillID); ok {
				hit = true
				total += dmg
			}
		}
	}
	w.emit(c.state.ID, agent.Event{Kind: agent.EventStepResult, Skill: a.SkillID, Hit: hit, Damage: total})
}

func (w *World) skillTargets(a combat.Action, eff SkillEffect) []*hostile {
	var center combat.Position
	switch {
	case a.Position != nil:
		center = *a.Position
	default:
		h := w.findHostile(a.TargetID)
		if h == nil {
			return nil
		}
		if eff.Radius == 0 {
			return []*hostile{h}
		}
		center = h.actor.Position
	}
	var out []*hostile
	for _, h := range w.hostiles {
		if !h.actor.IsDead() && h.actor.Position.DistanceTo(center) <= float64(eff.Radius) {
			out = append(out, h)
		}
	}
	return out
}

// strike rolls one attack of c against h and applies it.
func (w *World) strike(c *character, h *hostile, atk Attack, elem element.Element, key string) (int, bool) {
	h.engaged = c.state.ID
	if !w.roller.Chance(atk.HitChance) {
		return 0, false
	}
	roll, err := w.roller.RollExpr(atk.Damage)
	if err != nil {
		w.logger.Warn("bad damage expression", zap.String("source", key), zap.Error(err))
		return 0, false
	}
	mult := w.multiplier(&c.state, elem, h.actor)
	dmg := int(float64(roll.Total()) * mult)
	if dmg <= 0 {
		return 0, true
	}
	dmg = min(dmg, h.actor.HP)
	h.actor.HP -= dmg
	w.result.DamageBySkill[key] += dmg
	w.result.DamageByCharacter[c.state.ID] += dmg
	if h.actor.IsDead() {
		w.result.Kills++
		h.engaged = ""
		w.logger.Debug("hostile down", zap.String("hostile", h.actor.ID), zap.String("by", c.state.ID))
	}
	return dmg, true
}

func (w *World) multiplier(c *combat.CharacterState, elem element.Element, target combat.HostileActor) float64 {
	m := w.elements.Modifier(elem, 1, target.Element, target.ElementLevel)
	if !m.Effective() {
		return 0
	}
	return m.Multiplier * w.raceSize.CombinedModifier(c.WeaponType, c.Cards, target.Race, target.Size)
}

func (w *World) useItem(c *character, item string) error {
	if !c.state.ConsumeItem(item) {
		return fmt.Errorf("%w: %s", ErrNoItem, item)
	}
	eff := w.itemEffect(item)
	c.state.HP = min(c.state.HP+eff.Heal, c.state.MaxHP)
	c.state.SP = min(c.state.SP+eff.SP, c.state.MaxSP)
	if eff.Endow != nil {
		c.state.WeaponElement = *eff.Endow
	}
	return nil
}

func (w *World) interrupt(c *character) {
	if c.cast == nil {
		return
	}
	w.emit(c.state.ID, agent.Event{Kind: agent.EventCastInterrupted, Skill: c.cast.action.SkillID})
	c.cast = nil
	w.result.Interrupts++
}

func (w *World) hostileTurn(h *hostile) {
	if h.actor.IsDead() {
		return
	}
	target := w.hostileTarget(h)
	if target == nil {
		return
	}
	pos := target.state.Position
	if h.actor.Position.DistanceTo(pos) > float64(h.spec.AttackRange) {
		h.actor.Position = h.actor.Position.StepToward(pos, 1)
		return
	}
	if w.ticks%h.spec.AttackEvery != 0 || h.spec.Attack.Damage == "" {
		return
	}
	if !w.roller.Chance(h.spec.Attack.HitChance) {
		return
	}
	roll, err := w.roller.RollExpr(h.spec.Attack.Damage)
	if err != nil {
		w.logger.Warn("bad damage expression", zap.String("source", h.actor.ID), zap.Error(err))
		return
	}
	dmg := min(max(roll.Total(), 0), target.state.HP)
	target.state.HP -= dmg
	w.result.DamageTaken[target.state.ID] += dmg
	if dmg > 0 && target.cast != nil && target.cast.effect.Interruptible {
		w.interrupt(target)
	}
	if target.state.HP <= 0 {
		target.down = true
		target.cast = nil
		w.logger.Debug("character down", zap.String("character", target.state.ID), zap.String("by", h.actor.ID))
	}
}

// hostileTarget keeps the engaged character while it stands; otherwise an
// aggressive hostile picks the nearest character within its aggro range.
func (w *World) hostileTarget(h *hostile) *character {
	if c, ok := w.chars[h.engaged]; ok && !c.down {
		return c
	}
	h.engaged = ""
	if !h.actor.Aggressive {
		return nil
	}
	var best *character
	bestDist := float64(h.spec.AggroRange)
	for _, id := range w.order {
		c := w.chars[id]
		if c.down {
			continue
		}
		if d := h.actor.Position.DistanceTo(c.state.Position); d <= bestDist {
			best, bestDist = c, d
		}
	}
	if best != nil {
		h.engaged = best.state.ID
	}
	return best
}

func (w *World) livingHostiles() int {
	n := 0
	for _, h := range w.hostiles {
		if !h.actor.IsDead() {
			n++
		}
	}
	return n
}

func (w *World) livingCharacters() int {
	n := 0
	for _, c := range w.chars {
		if !c.down {
			n++
		}
	}
	return n
}

func cloneCharacter(c combat.CharacterState) combat.CharacterState {
	c.Cards = slices.Clone(c.Cards)
	c.Buffs = slices.Clone(c.Buffs)
	c.Items = maps.Clone(c.Items)
	c.Skills = maps.Clone(c.Skills)
	if c.Items == nil {
		c.Items = map[string]int{}
	}
	return c
}
