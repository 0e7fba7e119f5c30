// Package combo runs predefined multi-skill chains one step at a time.
package combo

import (
	"fmt"
	"strings"
	"time"
)

// StepDef is one skill in a chain.
type StepDef struct {
	SkillID string `yaml:"skill"`
	Level   int    `yaml:"level"`
	// MinDelay is the wait after this step before the next one may run.
	MinDelay    time.Duration `yaml:"min_delay"`
	RequiresHit bool          `yaml:"requires_hit"`
	SPCost      int           `yaml:"sp_cost"`
}

// Def is a static combo definition.
type Def struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name"`
	Steps          []StepDef `yaml:"steps"`
	RequiredSP     int       `yaml:"required_sp"`
	WeaponType     string    `yaml:"weapon_type"`
	RequiredBuffs  []string  `yaml:"required_buffs"`
	PvERating      int       `yaml:"pve_rating"`
	PvPRating      int       `yaml:"pvp_rating"`
	AreaCapable    bool      `yaml:"area_capable"`
	RequiresTarget bool      `yaml:"requires_target"`
}

// TotalSP returns the summed SP cost of every step.
func (d Def) TotalSP() int {
	sum := 0
	for _, s := range d.Steps {
		sum += s.SPCost
	}
	return sum
}

// Validate checks structural rules: an id, at least one step, a skill per step
// and non-negative costs and delays.
func (d Def) Validate() error {
	var errs []string
	if strings.TrimSpace(d.ID) == "" {
		errs = append(errs, "id must not be empty")
	}
	if len(d.Steps) == 0 {
		errs = append(errs, "steps must not be empty")
	}
	if d.RequiredSP < 0 {
		errs = append(errs, "required_sp must be >= 0")
	}
	for i, s := range d.Steps {
		if strings.TrimSpace(s.SkillID) == "" {
			errs = append(errs, fmt.Sprintf("step %d: skill must not be empty", i))
		}
		if s.SPCost < 0 {
			errs = append(errs, fmt.Sprintf("step %d: sp_cost must be >= 0", i))
		}
		if s.MinDelay < 0 {
			errs = append(errs, fmt.Sprintf("step %d: min_delay must be >= 0", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("combo %q: %s", d.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Run is the progress of one combo execution.
type Run struct {
	ComboID       string
	StepIndex     int
	StartedAt     time.Time
	LastStepAt    time.Time
	HitsLanded    int
	Damage        int
	StepsExecuted int
	Aborted       bool
}

// Record accounts one step result. Hits and damage always accumulate; a miss
// on a step that requires a hit aborts instead of advancing.
func (r Run) Record(step StepDef, hit bool, damage int, now time.Time) Run {
	r.StepsExecuted++
	r.LastStepAt = now
	if hit {
		r.HitsLanded++
	}
	if damage > 0 {
		r.Damage += damage
	}
	if step.RequiresHit && !hit {
		r.Aborted = true
		return r
	}
	r.StepIndex++
	return r
}

// Abort marks the run aborted.
func (r Run) Abort() Run {
	r.Aborted = true
	return r
}

// Summary reports a finished run.
type Summary struct {
	ComboID       string
	StepsExecuted int
	TotalSteps    int
	Completed     bool
	Hits          int
	Damage        int
	Elapsed       time.Duration
}
