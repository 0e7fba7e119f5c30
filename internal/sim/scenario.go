// Package sim is a deterministic, dice-driven combat world used to replay
// scenarios through the decision core.
package sim

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/roagent/internal/game/combat"
	"github.com/cory-johannsen/roagent/internal/game/dice"
	"github.com/cory-johannsen/roagent/internal/game/element"
)

// Scenario is a replayable encounter.
type Scenario struct {
	Name string `yaml:"name"`
	// Seed fixes the dice; 0 leaves the choice to the caller.
	Seed     uint64 `yaml:"seed"`
	MaxTicks int    `yaml:"max_ticks"`
	// Tick is the simulated time per loop tick.
	Tick        time.Duration          `yaml:"tick"`
	Characters  []CharacterSpec        `yaml:"characters"`
	Hostiles    []HostileSpec          `yaml:"hostiles"`
	BasicAttack Attack                 `yaml:"basic_attack"`
	Skills      map[string]SkillEffect `yaml:"skills"`
	Items       map[string]ItemEffect  `yaml:"items"`
}

// CharacterSpec is a controlled character and its simulation-only traits.
type CharacterSpec struct {
	combat.CharacterState `yaml:",inline"`
	Profile               string   `yaml:"profile"`
	QuestTags             []string `yaml:"quest_tags"`
	// MoveSpeed is cells per tick; 0 is treated as 1.
	MoveSpeed int `yaml:"move_speed"`
	SPRegen   int `yaml:"sp_regen"`
}

// HostileSpec is a hostile and how it fights back.
type HostileSpec struct {
	combat.HostileActor `yaml:",inline"`
	Attack              Attack `yaml:"attack"`
	AttackRange         int    `yaml:"attack_range"`
	// AttackEvery is the number of ticks between swings; 0 is treated as 1.
	AttackEvery int `yaml:"attack_every"`
	// AggroRange is how close a character must come before an aggressive
	// hostile engages.
	AggroRange int `yaml:"aggro_range"`
}

// Attack is a damage expression and hit chance in percent.
type Attack struct {
	Damage    string  `yaml:"damage"`
	HitChance float64 `yaml:"hit_chance"`
}

// SkillEffect is the simulated outcome of a skill.
type SkillEffect struct {
	Attack `yaml:",inline"`
	SPCost int `yaml:"sp_cost"`
	// Radius > 0 hits every hostile within Radius of the aimed cell.
	Radius int `yaml:"radius"`
	// Element overrides the weapon element for this skill's damage.
	Element *element.Element `yaml:"element"`
	// Endow sets the weapon element instead of dealing damage.
	Endow *element.Element `yaml:"endow"`
	Heal  int              `yaml:"heal"`
	// Interruptible casts are broken by damage taken while casting.
	Interruptible bool `yaml:"interruptible"`
}

// ItemEffect is the simulated outcome of a consumable.
type ItemEffect struct {
	Heal  int              `yaml:"heal"`
	SP    int              `yaml:"sp"`
	Endow *element.Element `yaml:"endow"`
}

// LoadScenario reads and validates the scenario at path.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scenario: %w", err)
	}
	defer f.Close()
	sc, err := ParseScenario(f)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario decodes a scenario, rejecting unknown fields, applies
// defaults and validates it.
func ParseScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scenario")
		}
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Tick <= 0 {
		sc.Tick = 200 * time.Millisecond
	}
	if sc.BasicAttack.Damage == "" {
		sc.BasicAttack.Damage = "1d10+20"
	}
	if sc.BasicAttack.HitChance == 0 {
		sc.BasicAttack.HitChance = 95
	}
	for i := range sc.Characters {
		c := &sc.Characters[i]
		c.MoveSpeed = max(c.MoveSpeed, 1)
		if c.Items == nil {
			c.Items = map[string]int{}
		}
		if c.Skills == nil {
			c.Skills = map[string]int{}
		}
	}
	for i := range sc.Hostiles {
		h := &sc.Hostiles[i]
		h.AttackRange = max(h.AttackRange, 1)
		h.AttackEvery = max(h.AttackEvery, 1)
		h.ElementLevel = element.ClampLevel(h.ElementLevel)
		if h.MaxHP == 0 {
			h.MaxHP = h.HP
		}
		if h.Attack.HitChance == 0 {
			h.Attack.HitChance = 80
		}
		if h.AggroRange == 0 {
			h.AggroRange = 9
		}
	}
	for name, s := range sc.Skills {
		if s.HitChance == 0 {
			s.HitChance = 100
			sc.Skills[name] = s
		}
	}
}

// Validate reports every problem with the scenario.
func (sc *Scenario) Validate() error {
	var errs []string
	if len(sc.Characters) == 0 {
		errs = append(errs, "at least one character is required")
	}
	ids := make(map[string]bool)
	checkID := func(kind, id string) {
		switch {
		case id == "":
			errs = append(errs, kind+" with empty id")
		case ids[id]:
			errs = append(errs, fmt.Sprintf("duplicate id %q", id))
		}
		ids[id] = true
	}
	checkDice := func(where, expr string) {
		if expr == "" {
			return
		}
		if _, err := dice.Parse(expr); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", where, err))
		}
	}
	for _, c := range sc.Characters {
		checkID("character", c.ID)
		if c.MaxHP <= 0 || c.HP <= 0 {
			errs = append(errs, fmt.Sprintf("character %q: hp and max_hp must be > 0", c.ID))
		}
	}
	for _, h := range sc.Hostiles {
		checkID("hostile", h.ID)
		if h.HP <= 0 {
			errs = append(errs, fmt.Sprintf("hostile %q: hp must be > 0", h.ID))
		}
		checkDice("hostile "+h.ID, h.Attack.Damage)
	}
	checkDice("basic_attack", sc.BasicAttack.Damage)
	for name, s := range sc.Skills {
		checkDice("skill "+name, s.Damage)
		if s.SPCost < 0 || s.Radius < 0 {
			errs = append(errs, fmt.Sprintf("skill %q: sp_cost and radius must be >= 0", name))
		}
	}
	if sc.MaxTicks < 0 {
		errs = append(errs, "max_ticks must be >= 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid scenario: %s", strings.Join(errs, "; "))
	}
	return nil
}
