package combo

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roagent/internal/game/combat"
)

// CriticalHPPercent is the HP percentage below which a running combo should
// be abandoned.
const CriticalHPPercent = 20.0

// Mode selects which suitability rating applies.
type Mode int

const (
	ModePvE Mode = iota
	ModePvP
)

// String returns "pve" or "pvp".
func (m Mode) String() string {
	if m == ModePvP {
		return "pvp"
	}
	return "pve"
}

// SelectionWeights tune combo selection.
type SelectionWeights struct {
	RatingWeight float64 `mapstructure:"rating_weight"`
	AreaBonus    float64 `mapstructure:"area_bonus"`
}

// DefaultSelectionWeights returns the built-in selection tunables.
func DefaultSelectionWeights() SelectionWeights {
	return SelectionWeights{RatingWeight: 10, AreaBonus: 15}
}

// Engine executes at most one combo run for one character.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	defs    []Def
	byID    map[string]int
	weights SelectionWeights
	clock   func() time.Time
	logger  *zap.Logger

	run    Run
	hasRun bool
}

// NewEngine returns an inactive Engine over defs. Later duplicates of an id
// are ignored.
//
// Precondition: clock nil uses time.Now; logger nil uses a no-op logger.
func NewEngine(defs []Def, weights SelectionWeights, clock func() time.Time, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{byID: make(map[string]int, len(defs)), weights: weights, clock: clock, logger: logger}
	for _, d := range defs {
		k := normID(d.ID)
		if _, dup := e.byID[k]; dup {
			logger.Warn("duplicate combo id ignored", zap.String("combo", d.ID))
			continue
		}
		e.byID[k] = len(e.defs)
		e.defs = append(e.defs, d)
	}
	return e
}

// Defs returns the known definitions in declaration order.
func (e *Engine) Defs() []Def { return e.defs }

// Def returns the definition with id.
func (e *Engine) Def(id string) (Def, bool) {
	i, ok := e.byID[normID(id)]
	if !ok {
		return Def{}, false
	}
	return e.defs[i], true
}

// Start begins a fresh run of combo id at step 0, replacing any previous run.
//
// Postcondition: false and no state change when id is unknown.
func (e *Engine) Start(id string) bool {
	d, ok := e.Def(id)
	if !ok {
		return false
	}
	if e.Active() {
		e.logger.Debug("combo replaced", zap.String("old", e.run.ComboID), zap.String("new", d.ID))
	}
	e.run = Run{ComboID: d.ID, StartedAt: e.clock()}
	e.hasRun = true
	e.logger.Debug("combo started", zap.String("combo", d.ID), zap.Int("steps", len(d.Steps)))
	return true
}

// Active reports whether a run is in progress with steps left.
func (e *Engine) Active() bool {
	if !e.hasRun || e.run.Aborted {
		return false
	}
	d, _ := e.Def(e.run.ComboID)
	return e.run.StepIndex < len(d.Steps)
}

// HasRun reports whether a run exists that has not been finished, including
// aborted and completed runs.
func (e *Engine) HasRun() bool { return e.hasRun }

// Current returns the current run.
func (e *Engine) Current() (Run, bool) { return e.run, e.hasRun }

// NextStep returns the step at the current index.
//
// Postcondition: false when no run is active or every step has executed.
func (e *Engine) NextStep() (StepDef, bool) {
	if !e.Active() {
		return StepDef{}, false
	}
	d, _ := e.Def(e.run.ComboID)
	return d.Steps[e.run.StepIndex], true
}

// Ready reports whether the previous step's MinDelay has elapsed.
func (e *Engine) Ready() bool {
	return !e.clock().Before(e.ReadyAt())
}

// ReadyAt returns when the next step may run: the last step time plus that
// step's MinDelay, or the start time before any step.
func (e *Engine) ReadyAt() time.Time {
	if !e.hasRun || e.run.StepsExecuted == 0 || e.run.StepIndex == 0 {
		return e.run.StartedAt
	}
	d, _ := e.Def(e.run.ComboID)
	prev := d.Steps[e.run.StepIndex-1]
	return e.run.LastStepAt.Add(prev.MinDelay)
}

// RecordStepResult accounts the outcome of the current step. It is a no-op
// without an active run.
func (e *Engine) RecordStepResult(hit bool, damage int) {
	step, ok := e.NextStep()
	if !ok {
		return
	}
	e.run = e.run.Record(step, hit, damage, e.clock())
	if e.run.Aborted {
		e.logger.Debug("combo broken by miss", zap.String("combo", e.run.ComboID), zap.String("skill", step.SkillID))
	}
}

// ShouldAbort reports whether the active run should be abandoned: the
// character is below CriticalHPPercent, or the target died and the combo
// requires one. It does not change state.
func (e *Engine) ShouldAbort(hpPercent float64, targetDied bool) bool {
	if !e.Active() {
		return false
	}
	if hpPercent < CriticalHPPercent {
		return true
	}
	d, _ := e.Def(e.run.ComboID)
	return targetDied && d.RequiresTarget
}

// Abort makes the run inactive. The run is kept for Finish.
func (e *Engine) Abort() {
	if !e.hasRun {
		return
	}
	e.run = e.run.Abort()
}

// Finish summarizes the run and clears it.
//
// Postcondition: no run exists afterwards; false when there was none.
func (e *Engine) Finish() (Summary, bool) {
	if !e.hasRun {
		return Summary{}, false
	}
	r := e.run
	d, _ := e.Def(r.ComboID)
	s := Summary{
		ComboID:       r.ComboID,
		StepsExecuted: r.StepsExecuted,
		TotalSteps:    len(d.Steps),
		Completed:     !r.Aborted && r.StepIndex >= len(d.Steps),
		Hits:          r.HitsLanded,
		Damage:        r.Damage,
		Elapsed:       e.clock().Sub(r.StartedAt),
	}
	e.run = Run{}
	e.hasRun = false
	e.logger.Debug("combo finished",
		zap.String("combo", s.ComboID),
		zap.Int("steps", s.StepsExecuted),
		zap.Int("total", s.TotalSteps),
		zap.Bool("completed", s.Completed),
	)
	return s, true
}

// Eligible reports whether char may start d: enough SP, matching weapon
// (empty means any), every required buff active and every step skill usable.
func Eligible(d Def, char *combat.CharacterState) bool {
	if char.SP < d.RequiredSP {
		return false
	}
	if d.WeaponType != "" && !strings.EqualFold(strings.TrimSpace(d.WeaponType), strings.TrimSpace(char.WeaponType)) {
		return false
	}
	for _, b := range d.RequiredBuffs {
		if !char.HasBuff(b) {
			return false
		}
	}
	for _, s := range d.Steps {
		if char.SkillLevel(s.SkillID) <= 0 {
			return false
		}
	}
	return len(d.Steps) > 0
}

// Score rates d for mode. Area-capable combos gain AreaBonus when clustered.
func (e *Engine) Score(d Def, mode Mode, clustered bool) float64 {
	rating := d.PvERating
	if mode == ModePvP {
		rating = d.PvPRating
	}
	score := float64(rating) * e.weights.RatingWeight
	if clustered && d.AreaCapable {
		score += e.weights.AreaBonus
	}
	return score
}

// Select returns the best eligible combo for char. Ties keep declaration
// order.
func (e *Engine) Select(char *combat.CharacterState, mode Mode, clustered bool) (Def, bool) {
	var best Def
	bestScore := 0.0
	found := false
	for _, d := range e.defs {
		if !Eligible(d, char) {
			continue
		}
		s := e.Score(d, mode, clustered)
		if !found || s > bestScore {
			best, bestScore, found = d, s, true
		}
	}
	return best, found
}

func normID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
