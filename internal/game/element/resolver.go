package element

import "math"

// Modifier is the resolved effect of one attack element against one defense.
type Modifier struct {
	// Multiplier is the absolute damage multiplier.
	Multiplier float64
	// IsImmune is true iff Multiplier == 0.
	IsImmune bool
	// Absorbs is true when the defender heals instead of taking damage.
	Absorbs bool
}

// Effective reports whether the attack deals any damage at all.
func (m Modifier) Effective() bool {
	return !m.IsImmune && !m.Absorbs
}

// Recommendation bundles what the agent should do about its attack element.
type Recommendation struct {
	Current   Element
	Optimal   Element
	Gain      float64 // optimal multiplier / current multiplier; +Inf when current is ineffective
	Change    bool
	Converter string
	Endow     string
}

// Resolver answers elemental questions against a ModifierTable.
type Resolver struct {
	table     *ModifierTable
	threshold float64
}

// NewResolver returns a Resolver over table; nil selects DefaultTable.
//
// Postcondition: the change threshold is ImprovementThreshold.
func NewResolver(table *ModifierTable) *Resolver {
	if table == nil {
		table = &DefaultTable
	}
	return &Resolver{table: table, threshold: ImprovementThreshold}
}

// Modifier looks up atk against def at defLevel (clamped to [1,4]). The
// table is keyed by defense level only, so atkLevel does not change the result.
//
// Postcondition: 0 <= Multiplier <= 2; IsImmune ⟺ Multiplier == 0.
func (r *Resolver) Modifier(atk Element, atkLevel int, def Element, defLevel int) Modifier {
	raw := r.table.Lookup(atk, def, ClampLevel(defLevel))
	m := Modifier{Multiplier: math.Abs(raw), Absorbs: raw < 0}
	m.IsImmune = m.Multiplier == 0
	return m
}

// OptimalElement scans all attack elements in declaration order, skipping
// any that are immune or absorbed, and keeps the strictly greatest multiplier.
//
// Postcondition: ties keep the earliest element; if every element is
// ineffective, returns (Neutral, 0).
func (r *Resolver) OptimalElement(def Element, defLevel int) (Element, float64) {
	best, bestMul := Neutral, 0.0
	found := false
	for _, atk := range All() {
		m := r.Modifier(atk, 1, def, defLevel)
		if !m.Effective() {
			continue
		}
		if !found || m.Multiplier > bestMul {
			best, bestMul, found = atk, m.Multiplier, true
		}
	}
	return best, bestMul
}

// ShouldChangeElement reports whether switching away from current is worth
// it: always when current is immune or absorbed, otherwise only when the
// optimal element improves damage by at least the improvement threshold.
func (r *Resolver) ShouldChangeElement(current, target Element, targetLevel int) bool {
	cur := r.Modifier(current, 1, target, targetLevel)
	if !cur.Effective() {
		return true
	}
	_, opt := r.OptimalElement(target, targetLevel)
	return opt/cur.Multiplier >= r.threshold
}

// Recommend combines OptimalElement, ShouldChangeElement and the converter
// and endow lookups for the optimal element.
func (r *Resolver) Recommend(current, target Element, targetLevel int) Recommendation {
	opt, optMul := r.OptimalElement(target, targetLevel)
	cur := r.Modifier(current, 1, target, targetLevel)
	gain := math.Inf(1)
	if cur.Effective() {
		gain = optMul / cur.Multiplier
	}
	return Recommendation{
		Current:   current,
		Optimal:   opt,
		Gain:      gain,
		Change:    r.ShouldChangeElement(current, target, targetLevel),
		Converter: ConverterFor(opt),
		Endow:     EndowSkillFor(opt),
	}
}

var converters = map[Element]string{
	Fire:  "Flame Elemental Converter",
	Water: "Frost Elemental Converter",
	Earth: "Seismic Elemental Converter",
	Wind:  "Lightning Elemental Converter",
	Holy:  "Aspersio Scroll",
	Dark:  "Cursed Water",
}

var endows = map[Element]string{
	Fire:   "SA_FLAMELAUNCHER",
	Water:  "SA_FROSTWEAPON",
	Earth:  "SA_SEISMICWEAPON",
	Wind:   "SA_LIGHTNINGLOADER",
	Holy:   "PR_ASPERSIO",
	Poison: "AS_ENCHANTPOISON",
}

// ConverterFor returns the converter item that endows a weapon with e, or None.
func ConverterFor(e Element) string {
	if c, ok := converters[e]; ok {
		return c
	}
	return None
}

// EndowSkillFor returns the endow skill that grants e, or None.
func EndowSkillFor(e Element) string {
	if s, ok := endows[e]; ok {
		return s
	}
	return None
}
