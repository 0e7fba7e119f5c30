package element_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/roagent/internal/game/element"
)

func TestModifier_KnownValues(t *testing.T) {
	r := element.NewResolver(nil)
	cases := []struct {
		name     string
		atk      element.Element
		def      element.Element
		level    int
		want     float64
		absorbs  bool
		isImmune bool
	}{
		{"water vs fire 1", element.Water, element.Fire, 1, 1.5, false, false},
		{"fire vs water 1", element.Fire, element.Water, 1, 0.9, false, false},
		{"water vs water 3", element.Water, element.Water, 3, 0.25, true, false},
		{"water vs water 2", element.Water, element.Water, 2, 0, false, true},
		{"holy vs undead 4", element.Holy, element.Undead, 4, 2.0, false, false},
		{"neutral vs ghost 4", element.Neutral, element.Ghost, 4, 0, false, true},
		{"poison vs undead 1", element.Poison, element.Undead, 1, 0.25, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := r.Modifier(tc.atk, 1, tc.def, tc.level)
			assert.InDelta(t, tc.want, m.Multiplier, 1e-9)
			assert.Equal(t, tc.absorbs, m.Absorbs)
			assert.Equal(t, tc.isImmune, m.IsImmune)
		})
	}
}

func TestModifier_ClampsLevels(t *testing.T) {
	r := element.NewResolver(nil)
	assert.Equal(t, r.Modifier(element.Fire, 1, element.Earth, 1), r.Modifier(element.Fire, -7, element.Earth, 0))
	assert.Equal(t, r.Modifier(element.Fire, 4, element.Earth, 4), r.Modifier(element.Fire, 99, element.Earth, 12))
}

func TestModifier_UnknownElementIsNeutral(t *testing.T) {
	r := element.NewResolver(nil)
	m := r.Modifier(element.Element(42), 1, element.Fire, 1)
	assert.Equal(t, 1.0, m.Multiplier)
	assert.False(t, m.IsImmune)
	assert.False(t, m.Absorbs)
}

func TestProperty_Modifier_BoundedAndImmunityConsistent(t *testing.T) {
	r := element.NewResolver(nil)
	rapid.Check(t, func(rt *rapid.T) {
		atk := element.Element(rapid.IntRange(0, element.Count-1).Draw(rt, "atk"))
		def := element.Element(rapid.IntRange(0, element.Count-1).Draw(rt, "def"))
		atkLevel := rapid.IntRange(-3, 8).Draw(rt, "atkLevel")
		defLevel := rapid.IntRange(-3, 8).Draw(rt, "defLevel")

		m := r.Modifier(atk, atkLevel, def, defLevel)
		if m.Multiplier < 0 || m.Multiplier > 2.0 {
			rt.Fatalf("multiplier %v out of [0,2] for %s vs %s/%d", m.Multiplier, atk, def, defLevel)
		}
		if m.IsImmune != (m.Multiplier == 0) {
			rt.Fatalf("isImmune=%v but multiplier=%v", m.IsImmune, m.Multiplier)
		}
	})
}

func TestOptimalElement_SkipsIneffective(t *testing.T) {
	r := element.NewResolver(nil)
	best, mul := r.OptimalElement(element.Undead, 4)
	// Fire and Holy both reach 2.0 against Undead 4; Fire is declared first.
	assert.Equal(t, element.Fire, best)
	assert.Equal(t, 2.0, mul)

	best, mul = r.OptimalElement(element.Water, 1)
	assert.Equal(t, element.Wind, best)
	assert.Equal(t, 1.5, mul)
}

func TestOptimalElement_TieKeepsDeclarationOrder(t *testing.T) {
	var table element.ModifierTable
	for a := range table {
		for d := range table[a] {
			for l := range table[a][d] {
				table[a][d][l] = 1
			}
		}
	}
	table[element.Earth][element.Fire] = [4]float64{1.5, 1.5, 1.5, 1.5}
	table[element.Water][element.Fire] = [4]float64{1.5, 1.5, 1.5, 1.5}
	r := element.NewResolver(&table)

	best, mul := r.OptimalElement(element.Fire, 1)
	assert.Equal(t, element.Water, best, "water is declared before earth")
	assert.Equal(t, 1.5, mul)
}

func TestShouldChangeElement(t *testing.T) {
	r := element.NewResolver(nil)

	// Water is absorbed by Water 3.
	assert.True(t, r.ShouldChangeElement(element.Water, element.Water, 3))
	// Neutral vs Fire 1 = 1.0, Water = 1.5 → exactly at threshold.
	assert.True(t, r.ShouldChangeElement(element.Neutral, element.Fire, 1))
	// Fire vs Earth 1 is already optimal.
	assert.False(t, r.ShouldChangeElement(element.Fire, element.Earth, 1))
	// Neutral vs Holy 1: Dark gives 1.25, below threshold.
	assert.False(t, r.ShouldChangeElement(element.Neutral, element.Holy, 1))
}

func TestRecommend(t *testing.T) {
	r := element.NewResolver(nil)
	rec := r.Recommend(element.Neutral, element.Fire, 1)
	require.True(t, rec.Change)
	assert.Equal(t, element.Water, rec.Optimal)
	assert.Equal(t, "Frost Elemental Converter", rec.Converter)
	assert.Equal(t, "SA_FROSTWEAPON", rec.Endow)
	assert.InDelta(t, 1.5, rec.Gain, 1e-9)

	rec = r.Recommend(element.Undead, element.Undead, 1)
	assert.True(t, math.IsInf(rec.Gain, 1))
	assert.True(t, rec.Change)
}

func TestConverterAndEndow_NoneForUncovered(t *testing.T) {
	assert.Equal(t, element.None, element.ConverterFor(element.Ghost))
	assert.Equal(t, element.None, element.ConverterFor(element.Neutral))
	assert.Equal(t, element.None, element.EndowSkillFor(element.Undead))
	assert.Equal(t, "AS_ENCHANTPOISON", element.EndowSkillFor(element.Poison))
}

func TestParseElement(t *testing.T) {
	e, ok := element.ParseElement("  FIRE ")
	assert.True(t, ok)
	assert.Equal(t, element.Fire, e)

	e, ok = element.ParseElement("shadow")
	assert.True(t, ok)
	assert.Equal(t, element.Dark, e)

	e, ok = element.ParseElement("plasma")
	assert.False(t, ok)
	assert.Equal(t, element.Neutral, e)
}

func TestClampLevel(t *testing.T) {
	assert.Equal(t, 1, element.ClampLevel(-5))
	assert.Equal(t, 3, element.ClampLevel(3))
	assert.Equal(t, 4, element.ClampLevel(9))
}
