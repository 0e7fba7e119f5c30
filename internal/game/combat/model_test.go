package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/roagent/internal/game/combat"
	"github.com/cory-johannsen/roagent/internal/game/element"
	"github.com/cory-johannsen/roagent/internal/game/racesize"
)

func TestPosition_DistanceTo(t *testing.T) {
	a := combat.Position{X: 0, Y: 0}
	b := combat.Position{X: 3, Y: 4}
	assert.Equal(t, 5.0, a.DistanceTo(b))
	assert.Equal(t, 5.0, b.DistanceTo(a))
}

func TestProperty_Position_StepTowardNeverOvershoots(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := combat.Position{X: rapid.IntRange(-50, 50).Draw(rt, "px"), Y: rapid.IntRange(-50, 50).Draw(rt, "py")}
		o := combat.Position{X: rapid.IntRange(-50, 50).Draw(rt, "ox"), Y: rapid.IntRange(-50, 50).Draw(rt, "oy")}
		step := rapid.IntRange(1, 10).Draw(rt, "step")
		next := p.StepToward(o, step)
		if next.DistanceTo(o) > p.DistanceTo(o) {
			rt.Fatalf("step from %v toward %v moved away: %v", p, o, next)
		}
	})
}

func TestPosition_Away(t *testing.T) {
	p := combat.Position{X: 10, Y: 10}
	assert.Equal(t, combat.Position{X: 15, Y: 10}, p.Away(combat.Position{X: 5, Y: 10}, 5))
	assert.Equal(t, combat.Position{X: 13, Y: 10}, p.Away(p, 3))
}

func TestHPPercent_ZeroMax(t *testing.T) {
	c := combat.CharacterState{HP: 10}
	assert.Equal(t, 0.0, c.HPPercent())
	h := combat.HostileActor{HP: 25, MaxHP: 100}
	assert.Equal(t, 25.0, h.HPPercent())
}

func TestCharacterState_Helpers(t *testing.T) {
	c := combat.CharacterState{
		Buffs:  []string{"Increase Agility", " Blessing "},
		Items:  map[string]int{"White Potion": 3},
		Skills: map[string]int{"MG_FIREBOLT": 10},
	}
	assert.True(t, c.HasBuff("blessing"))
	assert.False(t, c.HasBuff("Magnificat"))
	assert.Equal(t, 3, c.ItemCount("White Potion"))
	assert.Equal(t, 0, c.ItemCount("Yggdrasil Berry"))
	assert.Equal(t, 10, c.SkillLevel("MG_FIREBOLT"))
	assert.Equal(t, 1, c.Reach())
}

func TestCharacterState_LookupsIgnoreCase(t *testing.T) {
	c := combat.CharacterState{
		Items:  map[string]int{"White Potion": 1},
		Skills: map[string]int{"MG_FIREBALL": 7},
	}
	assert.Equal(t, 7, c.SkillLevel("mg_fireball"))
	assert.Equal(t, 7, c.SkillLevel(" Mg_FireBall "))
	assert.Equal(t, 1, c.ItemCount("white potion"))

	assert.True(t, c.ConsumeItem("WHITE POTION"))
	assert.Equal(t, 0, c.Items["White Potion"])
	assert.Len(t, c.Items, 1)
	assert.False(t, c.ConsumeItem("white potion"))
	assert.False(t, c.ConsumeItem("Red Potion"))
}

func TestSnapshot_LivingAndFind(t *testing.T) {
	s := combat.Snapshot{Hostiles: []combat.HostileActor{
		{ID: "a", HP: 10, MaxHP: 10},
		{ID: "b", HP: 0, MaxHP: 10},
		{ID: "c", HP: 5, MaxHP: 10},
	}}
	living := s.Living()
	assert.Len(t, living, 2)
	assert.Equal(t, "c", living[1].ID)

	b, ok := s.Find("b")
	assert.True(t, ok)
	assert.True(t, b.IsDead())
	_, ok = s.Find("zzz")
	assert.False(t, ok)
}

func TestHostileActor_DecodesNamedEnums(t *testing.T) {
	src := `
id: m1
name: Baphomet
element: dark
element_level: 3
race: demon
size: large
boss: mvp
aggressive: true
`
	var h combat.HostileActor
	assert.NoError(t, yaml.Unmarshal([]byte(src), &h))
	assert.Equal(t, element.Dark, h.Element)
	assert.Equal(t, racesize.Demon, h.Race)
	assert.Equal(t, racesize.Large, h.Size)
	assert.Equal(t, combat.BossMVP, h.Boss)
	assert.True(t, h.Aggressive)
}
