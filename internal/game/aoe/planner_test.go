package aoe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/roagent/internal/game/aoe"
	"github.com/cory-johannsen/roagent/internal/game/combat"
)

func pos(x, y int) combat.Position { return combat.Position{X: x, Y: y} }

func tightGroup() []combat.Position {
	return []combat.Position{pos(10, 10), pos(11, 10), pos(12, 10), pos(11, 11), pos(10, 11)}
}

func TestDetectClusters_TightGroupAndLoner(t *testing.T) {
	positions := append(tightGroup(), pos(100, 100))
	clusters := aoe.DetectClusters(positions, 3, 5)
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, tightGroup(), clusters[0].Members)
	assert.Equal(t, pos(11, 10), clusters[0].Centroid())
}

func TestDetectClusters_TransitiveChaining(t *testing.T) {
	// each link is 4 cells, the ends are 12 apart
	chain := []combat.Position{pos(0, 0), pos(8, 0), pos(4, 0), pos(12, 0)}
	clusters := aoe.DetectClusters(chain, 2, 4)
	require.Len(t, clusters, 1)
	assert.Equal(t, 4, clusters[0].Size())
}

func TestDetectClusters_TwoGroups(t *testing.T) {
	positions := []combat.Position{pos(0, 0), pos(1, 0), pos(50, 50), pos(51, 50), pos(0, 1)}
	clusters := aoe.DetectClusters(positions, 2, 2)
	require.Len(t, clusters, 2)
	assert.Equal(t, 3, clusters[0].Size())
	assert.Equal(t, 2, clusters[1].Size())
}

func TestProperty_DetectClusters_Partition(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		positions := make([]combat.Position, n)
		for i := range positions {
			positions[i] = pos(rapid.IntRange(0, 40).Draw(rt, "x"), rapid.IntRange(0, 40).Draw(rt, "y"))
		}
		minSize := rapid.IntRange(1, 5).Draw(rt, "min")
		clusters := aoe.DetectClusters(positions, minSize, float64(rapid.IntRange(0, 8).Draw(rt, "link")))
		total := 0
		for _, c := range clusters {
			assert.GreaterOrEqual(rt, c.Size(), minSize)
			total += c.Size()
		}
		assert.LessOrEqual(rt, total, n)
	})
}

func TestFindOptimalCenter_Self(t *testing.T) {
	skill := aoe.SkillDef{Name: "MG_SIGHT", Shape: aoe.ShapeSelf, Radius: 2}
	pl, ok := aoe.FindOptimalCenter([]combat.Position{pos(1, 0), pos(0, 2), pos(5, 5)}, skill, pos(0, 0))
	require.True(t, ok)
	assert.Equal(t, pos(0, 0), pl.Center)
	assert.Equal(t, 2, pl.Hits)
	assert.Equal(t, 2.0, pl.Coverage)

	_, ok = aoe.FindOptimalCenter([]combat.Position{pos(9, 9)}, skill, pos(0, 0))
	assert.False(t, ok)
}

func TestFindOptimalCenter_Ground(t *testing.T) {
	skill := aoe.SkillDef{Name: "WZ_STORMGUST", Shape: aoe.ShapeGround, Radius: 1, CastRange: 20}
	positions := []combat.Position{pos(5, 5), pos(10, 10), pos(11, 10), pos(10, 11)}
	pl, ok := aoe.FindOptimalCenter(positions, skill, pos(0, 0))
	require.True(t, ok)
	assert.Equal(t, pos(10, 10), pl.Center)
	assert.Equal(t, 3, pl.Hits)
}

func TestFindOptimalCenter_TiesKeepFirst(t *testing.T) {
	skill := aoe.SkillDef{Shape: aoe.ShapeTarget, Radius: 1, CastRange: 50}
	pl, ok := aoe.FindOptimalCenter([]combat.Position{pos(3, 0), pos(20, 0)}, skill, pos(0, 0))
	require.True(t, ok)
	assert.Equal(t, pos(3, 0), pl.Center)
}

func TestFindOptimalCenter_OutOfRange(t *testing.T) {
	skill := aoe.SkillDef{Shape: aoe.ShapeGround, Radius: 3, CastRange: 5}
	_, ok := aoe.FindOptimalCenter([]combat.Position{pos(30, 30)}, skill, pos(0, 0))
	assert.False(t, ok)
}

func TestFindOptimalCenter_LinearFalloff(t *testing.T) {
	skill := aoe.SkillDef{Shape: aoe.ShapeSelf, Radius: 3, LinearFalloff: true}
	pl, ok := aoe.FindOptimalCenter([]combat.Position{pos(0, 0), pos(3, 0)}, skill, pos(0, 0))
	require.True(t, ok)
	assert.Equal(t, 2, pl.Hits)
	assert.InDelta(t, 1.0+0.25, pl.Coverage, 1e-9)
}

func TestSelectBestSkill(t *testing.T) {
	cheap := aoe.SkillDef{Name: "cheap", Shape: aoe.ShapeGround, Radius: 2, CastRange: 20, SPCost: 10, HitsPerTarget: 1}
	strong := aoe.SkillDef{Name: "strong", Shape: aoe.ShapeGround, Radius: 2, CastRange: 20, SPCost: 40, HitsPerTarget: 10}
	far := aoe.SkillDef{Name: "far", Shape: aoe.ShapeGround, Radius: 5, CastRange: 1, SPCost: 1, HitsPerTarget: 1}

	ch, ok := aoe.SelectBestSkill([]aoe.SkillDef{far, cheap, strong}, tightGroup(), pos(0, 0), 100)
	require.True(t, ok)
	assert.Equal(t, "strong", ch.Skill.Name)
	assert.Equal(t, 5, ch.Placement.Hits)
	assert.InDelta(t, 5*10/40.0, ch.Efficiency, 1e-9)

	ch, ok = aoe.SelectBestSkill([]aoe.SkillDef{cheap, strong}, tightGroup(), pos(0, 0), 20)
	require.True(t, ok)
	assert.Equal(t, "cheap", ch.Skill.Name)

	_, ok = aoe.SelectBestSkill([]aoe.SkillDef{strong}, tightGroup(), pos(0, 0), 20)
	assert.False(t, ok)
}

func TestSelectBestSkill_FalloffScoresByHits(t *testing.T) {
	falloff := aoe.SkillDef{Name: "storm", Shape: aoe.ShapeSelf, Radius: 3, SPCost: 4, HitsPerTarget: 2, LinearFalloff: true}
	positions := []combat.Position{pos(0, 0), pos(3, 0)}

	ch, ok := aoe.SelectBestSkill([]aoe.SkillDef{falloff}, positions, pos(0, 0), 10)
	require.True(t, ok)
	assert.Equal(t, 2, ch.Placement.Hits)
	assert.InDelta(t, 1.25, ch.Placement.Coverage, 1e-9)
	assert.InDelta(t, 2*2/4.0, ch.Efficiency, 1e-9)
}

func TestSelectBestSkill_ZeroCost(t *testing.T) {
	free := aoe.SkillDef{Name: "free", Shape: aoe.ShapeSelf, Radius: 20}
	ch, ok := aoe.SelectBestSkill([]aoe.SkillDef{free}, tightGroup(), pos(10, 10), 0)
	require.True(t, ok)
	assert.Equal(t, 5.0, ch.Efficiency)
}

func TestPlanSequence_Budget(t *testing.T) {
	skill := aoe.SkillDef{Name: "bolt", Shape: aoe.ShapeGround, Radius: 2, CastRange: 200, SPCost: 30}
	clusters := []aoe.Cluster{
		{Members: tightGroup()},
		{Members: []combat.Position{pos(50, 50), pos(51, 50), pos(50, 51)}},
		{Members: []combat.Position{pos(80, 80), pos(81, 80), pos(80, 81)}},
	}
	plan := aoe.PlanSequence(clusters, []aoe.SkillDef{skill}, pos(0, 0), 70)
	require.Len(t, plan, 2)
	assert.Equal(t, 0, plan[0].Cluster)
	assert.Equal(t, 1, plan[1].Cluster)
}

func TestPlanSequence_SkipsUnreachableCluster(t *testing.T) {
	skill := aoe.SkillDef{Name: "bolt", Shape: aoe.ShapeGround, Radius: 2, CastRange: 30, SPCost: 10}
	clusters := []aoe.Cluster{
		{Members: []combat.Position{pos(100, 100), pos(101, 100)}},
		{Members: tightGroup()},
	}
	plan := aoe.PlanSequence(clusters, []aoe.SkillDef{skill}, pos(0, 0), 100)
	require.Len(t, plan, 1)
	assert.Equal(t, 1, plan[0].Cluster)
}

func TestPlanner_Dominates(t *testing.T) {
	p := aoe.DefaultPlanner()
	assert.True(t, p.Dominates(aoe.Choice{Placement: aoe.Placement{Hits: 3}}))
	assert.False(t, p.Dominates(aoe.Choice{Placement: aoe.Placement{Hits: 2}}))

	p.MinTargets = 0
	assert.False(t, p.Dominates(aoe.Choice{Placement: aoe.Placement{Hits: 1}}))
}

func TestPlanner_Best(t *testing.T) {
	p := aoe.DefaultPlanner()
	skill := aoe.SkillDef{Name: "WZ_METEOR", Shape: aoe.ShapeGround, Radius: 2, CastRange: 20, SPCost: 20}

	ch, ok := p.Best([]aoe.SkillDef{skill}, tightGroup(), pos(0, 0), 100)
	require.True(t, ok)
	assert.Equal(t, "WZ_METEOR", ch.Skill.Name)

	_, ok = p.Best([]aoe.SkillDef{skill}, []combat.Position{pos(10, 10), pos(11, 10)}, pos(0, 0), 100)
	assert.False(t, ok)

	assert.True(t, p.Clustered(tightGroup()))
	assert.Len(t, p.Plan([]aoe.SkillDef{skill}, tightGroup(), pos(0, 0), 100), 1)
}

func TestShape_YAML(t *testing.T) {
	var d aoe.SkillDef
	require.NoError(t, yaml.Unmarshal([]byte("name: WZ_VERMILION\nshape: ground\nradius: 5\n"), &d))
	assert.Equal(t, aoe.ShapeGround, d.Shape)
	assert.Error(t, yaml.Unmarshal([]byte("shape: cone\n"), &d))
}
