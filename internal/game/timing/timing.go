// Package timing tracks cast, after-cast delay, animation lock and per-skill
// cooldown windows for one controlled character.
package timing

import (
	"math"
	"strings"
	"time"

	"github.com/cory-johannsen/roagent/internal/game/combat"
)

// SkillTiming holds the static timing of one skill.
type SkillTiming struct {
	FixedCast      time.Duration
	VariableCast   time.Duration
	AfterCastDelay time.Duration
	Cooldown       time.Duration
	AnimationLock  time.Duration
}

// TotalCast returns FixedCast + VariableCast.
func (t SkillTiming) TotalCast() time.Duration {
	return t.FixedCast + t.VariableCast
}

// NextActionDelay returns the longest of AfterCastDelay, Cooldown and
// AnimationLock.
func (t SkillTiming) NextActionDelay() time.Duration {
	return max(t.AfterCastDelay, t.Cooldown, t.AnimationLock)
}

// TotalCommitment returns TotalCast + NextActionDelay.
func (t SkillTiming) TotalCommitment() time.Duration {
	return t.TotalCast() + t.NextActionDelay()
}

// Table maps skill ids to timings. Lookups are case-insensitive.
//
// A Table is read-only after construction.
type Table struct {
	entries map[string]SkillTiming
}

// NewTable builds a Table from entries keyed by skill id.
func NewTable(entries map[string]SkillTiming) *Table {
	t := &Table{entries: make(map[string]SkillTiming, len(entries))}
	for id, st := range entries {
		t.entries[key(id)] = st
	}
	return t
}

// Lookup returns the timing of skill.
//
// Postcondition: unknown skills return a zero SkillTiming and false.
func (t *Table) Lookup(skill string) (SkillTiming, bool) {
	if t == nil {
		return SkillTiming{}, false
	}
	st, ok := t.entries[key(skill)]
	return st, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func key(skill string) string {
	return strings.ToUpper(strings.TrimSpace(skill))
}

// Reduction caps.
const (
	// MaxStatReduction is the most stats alone can shave off.
	MaxStatReduction = 0.8
	// MaxTotalReduction keeps every reduced window above zero.
	MaxTotalReduction = 0.999
)

// CastReduction returns the fraction removed from variable cast time.
//
// Postcondition: 0 <= result <= MaxTotalReduction.
func CastReduction(stats combat.Stats, gear float64) float64 {
	stat := min(MaxStatReduction, float64(2*stats.DEX+stats.INT)/530)
	return clampReduction(stat + gear)
}

// DelayReduction returns the fraction removed from after-cast delay.
//
// Postcondition: 0 <= result <= MaxTotalReduction.
func DelayReduction(stats combat.Stats, gear float64) float64 {
	stat := min(MaxStatReduction, float64(stats.AGI)/250)
	return clampReduction(stat + gear)
}

func clampReduction(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > MaxTotalReduction {
		return MaxTotalReduction
	}
	return r
}

// CastTime returns FixedCast plus the reduced VariableCast. Fixed cast time is
// never reduced.
func CastTime(t SkillTiming, stats combat.Stats, gear float64) time.Duration {
	return t.FixedCast + scale(t.VariableCast, 1-CastReduction(stats, gear))
}

// AfterCastDelay returns delay reduced by AGI and gear.
func AfterCastDelay(delay time.Duration, stats combat.Stats, gear float64) time.Duration {
	return scale(delay, 1-DelayReduction(stats, gear))
}

// Effective returns t with CastTime and AfterCastDelay applied to the cast and
// delay fields. Cooldown and AnimationLock are unchanged.
func Effective(t SkillTiming, stats combat.Stats, castGear, delayGear float64) SkillTiming {
	out := t
	out.VariableCast = scale(t.VariableCast, 1-CastReduction(stats, castGear))
	out.AfterCastDelay = AfterCastDelay(t.AfterCastDelay, stats, delayGear)
	return out
}

func scale(d time.Duration, f float64) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(d) * f))
}
