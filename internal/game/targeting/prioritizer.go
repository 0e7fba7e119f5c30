// Package targeting scores visible hostiles and keeps a locked target with
// hysteresis so the agent does not flicker between near-equal candidates.
package targeting

import (
	"sort"
	"strings"

	"github.com/cory-johannsen/roagent/internal/game/combat"
	"github.com/cory-johannsen/roagent/internal/game/element"
)

// Weights are the scoring tunables. None of them derive from a documented
// game formula; they are configuration.
type Weights struct {
	MVPBonus              float64 `mapstructure:"mvp_bonus"`
	MiniBossBonus         float64 `mapstructure:"miniboss_bonus"`
	AggressiveBonus       float64 `mapstructure:"aggressive_bonus"`
	QuestBonus            float64 `mapstructure:"quest_bonus"`
	LevelBandBonus        float64 `mapstructure:"level_band_bonus"`
	LevelRange            int     `mapstructure:"level_range"`
	LowHPBonus            float64 `mapstructure:"low_hp_bonus"`
	LowHPThreshold        float64 `mapstructure:"low_hp_threshold"` // fraction of max HP, 0..1
	ElementBonus          float64 `mapstructure:"element_bonus"`
	NearbyAggressiveBonus float64 `mapstructure:"nearby_aggressive_bonus"`
	NearbyPassiveBonus    float64 `mapstructure:"nearby_passive_bonus"`
	DistancePenalty       float64 `mapstructure:"distance_penalty"` // per cell
	SwitchThreshold       float64 `mapstructure:"switch_threshold"`
}

// DefaultWeights returns the built-in tunables.
//
// Postcondition: MVPBonus exceeds the sum of every non-MVP bonus plus the
// distance penalty at 100 cells.
func DefaultWeights() Weights {
	return Weights{
		MVPBonus:              2000,
		MiniBossBonus:         500,
		AggressiveBonus:       200,
		QuestBonus:            150,
		LevelBandBonus:        100,
		LevelRange:            10,
		LowHPBonus:            80,
		LowHPThreshold:        0.3,
		ElementBonus:          100,
		NearbyAggressiveBonus: 50,
		NearbyPassiveBonus:    20,
		DistancePenalty:       5,
		SwitchThreshold:       element.ImprovementThreshold,
	}
}

// Reason names one additive scoring contribution.
type Reason struct {
	Name         string
	Contribution float64
}

// TargetScore is the scored view of one actor.
//
// Invariant: Score >= 0.
type TargetScore struct {
	Actor    combat.HostileActor
	Score    float64
	Reasons  []Reason
	Distance float64
}

// Reason names used in TargetScore.Reasons.
const (
	ReasonMVP       = "mvp"
	ReasonMiniBoss  = "miniboss"
	ReasonAggro     = "targeting_me"
	ReasonQuest     = "quest"
	ReasonLevelBand = "level_band"
	ReasonLowHP     = "low_hp"
	ReasonElement   = "element"
	ReasonNearby    = "nearby"
	ReasonPassive   = "passive"
	ReasonDistance  = "distance"
)

// Prioritizer scores hostiles and owns the locked-target pointer.
//
// A Prioritizer belongs to one controlled character and is not safe for
// concurrent use.
type Prioritizer struct {
	weights  Weights
	elements *element.Resolver
	quest    map[string]struct{}
	locked   string
}

// NewPrioritizer returns a Prioritizer.
//
// Precondition: elements must not be nil.
func NewPrioritizer(w Weights, elements *element.Resolver) *Prioritizer {
	if elements == nil {
		panic("targeting.NewPrioritizer: elements must not be nil")
	}
	if w.SwitchThreshold <= 0 {
		w.SwitchThreshold = element.ImprovementThreshold
	}
	if w.LevelRange < 0 {
		w.LevelRange = 0
	}
	return &Prioritizer{weights: w, elements: elements, quest: make(map[string]struct{})}
}

// Weights returns the active tunables.
func (p *Prioritizer) Weights() Weights { return p.weights }

// AddQuestTag marks tag as a quest target.
func (p *Prioritizer) AddQuestTag(tag string) {
	if tag = normalizeTag(tag); tag != "" {
		p.quest[tag] = struct{}{}
	}
}

// RemoveQuestTag unmarks tag.
func (p *Prioritizer) RemoveQuestTag(tag string) {
	delete(p.quest, normalizeTag(tag))
}

// HasQuestTag reports whether tag is a quest target.
func (p *Prioritizer) HasQuestTag(tag string) bool {
	_, ok := p.quest[normalizeTag(tag)]
	return ok
}

// Score computes the priority of actor for char. Contributions are additive
// except the trailing distance penalty.
//
// Postcondition: result.Score >= 0.
func (p *Prioritizer) Score(char *combat.CharacterState, actor combat.HostileActor, weaponElement element.Element, preferLowHP bool) TargetScore {
	w := p.weights
	ts := TargetScore{Actor: actor, Distance: char.Position.DistanceTo(actor.Position)}
	add := func(name string, v float64) {
		ts.Reasons = append(ts.Reasons, Reason{Name: name, Contribution: v})
		ts.Score += v
	}

	switch actor.Boss {
	case combat.BossMVP:
		add(ReasonMVP, w.MVPBonus)
	case combat.BossMiniBoss:
		add(ReasonMiniBoss, w.MiniBossBonus)
	}

	if actor.TargetingMe {
		add(ReasonAggro, w.AggressiveBonus)
	}

	if actor.QuestTag != "" && p.HasQuestTag(actor.QuestTag) {
		add(ReasonQuest, w.QuestBonus)
	}

	if w.LevelRange > 0 {
		diff := char.Level - actor.Level
		if diff < 0 {
			diff = -diff
		}
		if diff <= w.LevelRange {
			add(ReasonLevelBand, w.LevelBandBonus*(1-float64(diff)/float64(2*w.LevelRange)))
		}
	}

	if preferLowHP && actor.MaxHP > 0 {
		frac := float64(actor.HP) / float64(actor.MaxHP)
		if frac <= w.LowHPThreshold {
			add(ReasonLowHP, w.LowHPBonus*(1-frac))
		}
	}

	mod := p.elements.Modifier(weaponElement, 1, actor.Element, actor.ElementLevel)
	if mod.Effective() && mod.Multiplier > 1 {
		add(ReasonElement, w.ElementBonus*(mod.Multiplier-1))
	}

	if actor.Aggressive {
		add(ReasonNearby, w.NearbyAggressiveBonus)
	} else {
		add(ReasonPassive, w.NearbyPassiveBonus)
	}

	add(ReasonDistance, -ts.Distance*w.DistancePenalty)

	if ts.Score < 0 {
		ts.Score = 0
	}
	return ts
}

// Rank scores every actor and returns them highest first. Equal scores keep
// input order.
func (p *Prioritizer) Rank(char *combat.CharacterState, actors []combat.HostileActor, weaponElement element.Element, preferLowHP bool) []TargetScore {
	out := make([]TargetScore, 0, len(actors))
	for _, a := range actors {
		if a.IsDead() {
			continue
		}
		out = append(out, p.Score(char, a, weaponElement, preferLowHP))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// SelectTarget returns the highest-scoring living actor.
//
// Postcondition: false when no living actor exists.
func (p *Prioritizer) SelectTarget(char *combat.CharacterState, actors []combat.HostileActor, weaponElement element.Element, preferLowHP bool) (TargetScore, bool) {
	ranked := p.Rank(char, actors, weaponElement, preferLowHP)
	if len(ranked) == 0 {
		return TargetScore{}, false
	}
	return ranked[0], true
}

// ShouldSwitchTarget reports whether to abandon current: when it is no longer
// present, or when any candidate scores at least SwitchThreshold × current.
func (p *Prioritizer) ShouldSwitchTarget(current TargetScore, present bool, candidates []TargetScore) bool {
	if !present {
		return true
	}
	bar := current.Score * p.weights.SwitchThreshold
	for _, c := range candidates {
		if c.Actor.ID == current.Actor.ID {
			continue
		}
		if c.Score >= bar {
			return true
		}
	}
	return false
}

// Locked returns the locked target id.
func (p *Prioritizer) Locked() (string, bool) {
	return p.locked, p.locked != ""
}

// Release clears the locked target.
func (p *Prioritizer) Release() {
	p.locked = ""
}

// Update ranks actors and applies hysteresis: the locked target is kept until
// ShouldSwitchTarget says otherwise, at which point the top candidate is
// locked instead.
//
// Postcondition: false (and no lock) when no living actor exists.
func (p *Prioritizer) Update(char *combat.CharacterState, actors []combat.HostileActor, weaponElement element.Element, preferLowHP bool) (TargetScore, bool) {
	ranked := p.Rank(char, actors, weaponElement, preferLowHP)
	if len(ranked) == 0 {
		p.locked = ""
		return TargetScore{}, false
	}

	var current TargetScore
	present := false
	if p.locked != "" {
		for _, ts := range ranked {
			if ts.Actor.ID == p.locked {
				current, present = ts, true
				break
			}
		}
	}

	if p.locked != "" && !p.ShouldSwitchTarget(current, present, ranked) {
		return current, true
	}
	p.locked = ranked[0].Actor.ID
	return ranked[0], true
}

// Contribution returns the summed contribution of reason name in ts.
func (ts TargetScore) Contribution(name string) float64 {
	sum := 0.0
	for _, r := range ts.Reasons {
		if r.Name == name {
			sum += r.Contribution
		}
	}
	return sum
}

// RawScore returns the unfloored sum of all reasons.
func (ts TargetScore) RawScore() float64 {
	sum := 0.0
	for _, r := range ts.Reasons {
		sum += r.Contribution
	}
	return sum
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
