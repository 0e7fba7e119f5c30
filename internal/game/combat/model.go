// Package combat holds the plain records exchanged between the decision core
// and its collaborators: character state, hostile actors, positions and the
// action descriptor emitted each tick.
package combat

import (
	"math"
	"strings"
	"time"

	"github.com/cory-johannsen/roagent/internal/game/element"
	"github.com/cory-johannsen/roagent/internal/game/racesize"
)

// Position is a map cell.
type Position struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// DistanceTo returns the Euclidean distance in cells.
//
// Postcondition: Returns >= 0.
func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(float64(p.X-o.X), float64(p.Y-o.Y))
}

// StepToward returns the cell at most maxStep cells from p along the line to
// o. If o is within maxStep, o is returned.
func (p Position) StepToward(o Position, maxStep int) Position {
	d := p.DistanceTo(o)
	if d <= float64(maxStep) || d == 0 {
		return o
	}
	f := float64(maxStep) / d
	return Position{
		X: p.X + int(math.Round(float64(o.X-p.X)*f)),
		Y: p.Y + int(math.Round(float64(o.Y-p.Y)*f)),
	}
}

// Away returns a cell dist cells from p directly away from threat.
// When p and threat coincide, the step is taken along +X.
func (p Position) Away(threat Position, dist int) Position {
	dx, dy := float64(p.X-threat.X), float64(p.Y-threat.Y)
	l := math.Hypot(dx, dy)
	if l == 0 {
		return Position{X: p.X + dist, Y: p.Y}
	}
	return Position{
		X: p.X + int(math.Round(dx/l*float64(dist))),
		Y: p.Y + int(math.Round(dy/l*float64(dist))),
	}
}

// Stats are the six core character stats.
type Stats struct {
	STR int `yaml:"str"`
	AGI int `yaml:"agi"`
	VIT int `yaml:"vit"`
	INT int `yaml:"int"`
	DEX int `yaml:"dex"`
	LUK int `yaml:"luk"`
}

// CharacterState is the controlled character as reported by the client bridge.
type CharacterState struct {
	ID            string          `yaml:"id"`
	Name          string          `yaml:"name"`
	Level         int             `yaml:"level"`
	Stats         Stats           `yaml:"stats"`
	HP            int             `yaml:"hp"`
	MaxHP         int             `yaml:"max_hp"`
	SP            int             `yaml:"sp"`
	MaxSP         int             `yaml:"max_sp"`
	WeaponType    string          `yaml:"weapon_type"`
	WeaponElement element.Element `yaml:"weapon_element"`
	Cards         []string        `yaml:"cards"`
	Buffs         []string        `yaml:"buffs"`
	Position      Position        `yaml:"position"`
	// AttackRange is the basic attack reach in cells; 0 is treated as 1.
	AttackRange int            `yaml:"attack_range"`
	Items       map[string]int `yaml:"items"`
	// Skills are the skills usable this tick, keyed by skill id, valued by level.
	Skills             map[string]int `yaml:"skills"`
	GearCastReduction  float64        `yaml:"gear_cast_reduction"`
	GearDelayReduction float64        `yaml:"gear_delay_reduction"`
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP <= 0.
func (c *CharacterState) HPPercent() float64 {
	return percent(c.HP, c.MaxHP)
}

// SPPercent returns current SP as a percentage of MaxSP; 0 if MaxSP <= 0.
func (c *CharacterState) SPPercent() float64 {
	return percent(c.SP, c.MaxSP)
}

// HasBuff reports whether buff is active, case-insensitively.
func (c *CharacterState) HasBuff(buff string) bool {
	for _, b := range c.Buffs {
		if strings.EqualFold(strings.TrimSpace(b), strings.TrimSpace(buff)) {
			return true
		}
	}
	return false
}

// ItemCount returns how many of item the character carries. Names match
// case-insensitively.
func (c *CharacterState) ItemCount(item string) int {
	_, n := foldLookup(c.Items, item)
	return n
}

// ConsumeItem removes one of item and reports whether one was carried.
func (c *CharacterState) ConsumeItem(item string) bool {
	k, n := foldLookup(c.Items, item)
	if n <= 0 {
		return false
	}
	c.Items[k] = n - 1
	return true
}

// SkillLevel returns the usable level of skill, or 0 when unavailable. Skill
// IDs match case-insensitively.
func (c *CharacterState) SkillLevel(skill string) int {
	_, n := foldLookup(c.Skills, skill)
	return n
}

// foldLookup returns the stored key and value for name, preferring an exact
// match.
func foldLookup(m map[string]int, name string) (string, int) {
	if n, ok := m[name]; ok {
		return name, n
	}
	name = strings.TrimSpace(name)
	for k, n := range m {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return k, n
		}
	}
	return "", 0
}

// Reach returns AttackRange with a minimum of 1.
func (c *CharacterState) Reach() int {
	if c.AttackRange < 1 {
		return 1
	}
	return c.AttackRange
}

// BossClass is the threat class of a hostile actor.
type BossClass int

const (
	BossNone BossClass = iota
	BossMiniBoss
	BossMVP
)

// String returns "none", "miniboss" or "mvp".
func (b BossClass) String() string {
	switch b {
	case BossMiniBoss:
		return "miniboss"
	case BossMVP:
		return "mvp"
	default:
		return "none"
	}
}

// UnmarshalText decodes a boss class by name; unknown names decode to BossNone.
func (b *BossClass) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "mvp":
		*b = BossMVP
	case "miniboss", "mini_boss", "mini-boss", "named":
		*b = BossMiniBoss
	default:
		*b = BossNone
	}
	return nil
}

// HostileActor is one visible hostile.
type HostileActor struct {
	ID           string          `yaml:"id"`
	Name         string          `yaml:"name"`
	Level        int             `yaml:"level"`
	Position     Position        `yaml:"position"`
	Element      element.Element `yaml:"element"`
	ElementLevel int             `yaml:"element_level"`
	Race         racesize.Race   `yaml:"race"`
	Size         racesize.Size   `yaml:"size"`
	HP           int             `yaml:"hp"`
	MaxHP        int             `yaml:"max_hp"`
	Aggressive   bool            `yaml:"aggressive"`
	Boss         BossClass       `yaml:"boss"`
	TargetingMe  bool            `yaml:"targeting_me"`
	QuestTag     string          `yaml:"quest_tag"`
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP <= 0.
func (h *HostileActor) HPPercent() float64 {
	return percent(h.HP, h.MaxHP)
}

// IsDead reports whether the actor has no HP left.
func (h *HostileActor) IsDead() bool {
	return h.HP <= 0
}

// Snapshot is the complete input of one coordinator tick.
type Snapshot struct {
	Character CharacterState
	Hostiles  []HostileActor
	Now       time.Time
}

// Living returns the hostiles with HP remaining, in input order.
func (s *Snapshot) Living() []HostileActor {
	out := make([]HostileActor, 0, len(s.Hostiles))
	for _, h := range s.Hostiles {
		if !h.IsDead() {
			out = append(out, h)
		}
	}
	return out
}

// Find returns the hostile with id, or false.
func (s *Snapshot) Find(id string) (HostileActor, bool) {
	for _, h := range s.Hostiles {
		if h.ID == id {
			return h, true
		}
	}
	return HostileActor{}, false
}

// Positions returns the positions of the given actors in order.
func Positions(actors []HostileActor) []Position {
	out := make([]Position, len(actors))
	for i, a := range actors {
		out[i] = a.Position
	}
	return out
}

func percent(cur, max int) float64 {
	if max <= 0 {
		return 0
	}
	return float64(cur) / float64(max) * 100
}
