// Package aoe groups hostile positions into clusters and plans area skill
// placement under an SP budget.
package aoe

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/roagent/internal/game/combat"
)

// Shape is how an area skill is anchored.
type Shape int

const (
	// ShapeSelf is centered on the caster.
	ShapeSelf Shape = iota
	// ShapeGround is placed on any cell within cast range.
	ShapeGround
	// ShapeTarget is centered on a hostile within cast range.
	ShapeTarget
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeSelf:
		return "self"
	case ShapeGround:
		return "ground"
	case ShapeTarget:
		return "target"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// UnmarshalText decodes a shape name.
func (s *Shape) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "self", "self_centered", "around_self":
		*s = ShapeSelf
	case "ground", "location", "area":
		*s = ShapeGround
	case "target", "target_centered":
		*s = ShapeTarget
	default:
		return fmt.Errorf("unknown area shape %q", string(b))
	}
	return nil
}

// MarshalText encodes the shape name.
func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SkillDef is a static area skill definition.
type SkillDef struct {
	Name          string `yaml:"name"`
	Shape         Shape  `yaml:"shape"`
	Radius        int    `yaml:"radius"`
	CastRange     int    `yaml:"cast_range"`
	SPCost        int    `yaml:"sp_cost"`
	HitsPerTarget int    `yaml:"hits_per_target"`
	LinearFalloff bool   `yaml:"linear_falloff"`
}

func (d SkillDef) hitsPerTarget() int {
	if d.HitsPerTarget < 1 {
		return 1
	}
	return d.HitsPerTarget
}

// Cluster is a group of positions linked transitively by the link distance.
type Cluster struct {
	Members []combat.Position
}

// Size returns the member count.
func (c Cluster) Size() int { return len(c.Members) }

// Centroid returns the rounded mean position of the members.
//
// Precondition: the cluster is non-empty.
func (c Cluster) Centroid() combat.Position {
	if len(c.Members) == 0 {
		return combat.Position{}
	}
	sx, sy := 0, 0
	for _, m := range c.Members {
		sx += m.X
		sy += m.Y
	}
	n := len(c.Members)
	return combat.Position{X: roundDiv(sx, n), Y: roundDiv(sy, n)}
}

func roundDiv(a, n int) int {
	if a >= 0 {
		return (a + n/2) / n
	}
	return -((-a + n/2) / n)
}

// DetectClusters performs greedy single-linkage clustering. Each pass seeds a
// cluster from the first unassigned position and absorbs every unassigned
// position within maxLinkDistance of any member, transitively. Clusters with
// fewer than minSize members are dropped.
//
// Postcondition: every returned cluster has at least max(minSize, 1) members
// and no position appears in two clusters.
func DetectClusters(positions []combat.Position, minSize int, maxLinkDistance float64) []Cluster {
	if minSize < 1 {
		minSize = 1
	}
	assigned := make([]bool, len(positions))
	var out []Cluster
	for seed := range positions {
		if assigned[seed] {
			continue
		}
		assigned[seed] = true
		members := []combat.Position{positions[seed]}
		for frontier := 0; frontier < len(members); frontier++ {
			for j := range positions {
				if assigned[j] {
					continue
				}
				if members[frontier].DistanceTo(positions[j]) <= maxLinkDistance {
					assigned[j] = true
					members = append(members, positions[j])
				}
			}
		}
		if len(members) >= minSize {
			out = append(out, Cluster{Members: members})
		}
	}
	return out
}

// Placement is where an area skill lands and what it covers.
type Placement struct {
	Center combat.Position
	Hits   int
	// Coverage equals Hits, or the falloff-weighted hit sum for skills with
	// LinearFalloff.
	Coverage float64
}

// FindOptimalCenter picks the center that hits the most positions. Self shapes
// always center on self; other shapes try every position within CastRange of
// self and keep the first maximum.
//
// Postcondition: false when no candidate is in range or nothing is hit.
func FindOptimalCenter(positions []combat.Position, skill SkillDef, self combat.Position) (Placement, bool) {
	if skill.Shape == ShapeSelf {
		pl := place(positions, skill, self)
		return pl, pl.Hits > 0
	}

	best := Placement{}
	found := false
	for _, cand := range positions {
		if self.DistanceTo(cand) > float64(skill.CastRange) {
			continue
		}
		pl := place(positions, skill, cand)
		if !found || pl.Hits > best.Hits {
			best, found = pl, true
		}
	}
	return best, found && best.Hits > 0
}

func place(positions []combat.Position, skill SkillDef, center combat.Position) Placement {
	pl := Placement{Center: center}
	r := float64(skill.Radius)
	for _, p := range positions {
		d := center.DistanceTo(p)
		if d > r {
			continue
		}
		pl.Hits++
		if skill.LinearFalloff {
			pl.Coverage += 1 - d/(r+1)
		} else {
			pl.Coverage++
		}
	}
	return pl
}

// Choice is a scored skill placement.
type Choice struct {
	Skill      SkillDef
	Placement  Placement
	Efficiency float64
}

// Efficiency scores a placement as hits × hits-per-target per SP spent.
// Coverage is reported for falloff skills but does not enter the score.
// Zero-cost skills are divided by 1.
func Efficiency(skill SkillDef, pl Placement) float64 {
	cost := skill.SPCost
	if cost < 1 {
		cost = 1
	}
	return float64(pl.Hits*skill.hitsPerTarget()) / float64(cost)
}

// SelectBestSkill returns the most SP-efficient affordable skill. Skills that
// cost more than spBudget or reach nothing are skipped; ties keep the first.
func SelectBestSkill(skills []SkillDef, positions []combat.Position, self combat.Position, spBudget int) (Choice, bool) {
	var best Choice
	found := false
	for _, s := range skills {
		if s.SPCost > spBudget {
			continue
		}
		pl, ok := FindOptimalCenter(positions, s, self)
		if !ok {
			continue
		}
		eff := Efficiency(s, pl)
		if !found || eff > best.Efficiency {
			best = Choice{Skill: s, Placement: pl, Efficiency: eff}
			found = true
		}
	}
	return best, found
}

// PlannedCast assigns a choice to the cluster at index Cluster.
type PlannedCast struct {
	Cluster int
	Choice  Choice
}

// PlanSequence greedily assigns the best affordable skill to each cluster in
// order, spending from spBudget. Clusters no affordable skill can reach are
// skipped; planning stops when nothing is affordable anymore.
func PlanSequence(clusters []Cluster, skills []SkillDef, self combat.Position, spBudget int) []PlannedCast {
	var out []PlannedCast
	for i, c := range clusters {
		if !anyAffordable(skills, spBudget) {
			break
		}
		ch, ok := SelectBestSkill(skills, c.Members, self, spBudget)
		if !ok {
			continue
		}
		out = append(out, PlannedCast{Cluster: i, Choice: ch})
		spBudget -= ch.Skill.SPCost
	}
	return out
}

func anyAffordable(skills []SkillDef, budget int) bool {
	for _, s := range skills {
		if s.SPCost <= budget {
			return true
		}
	}
	return false
}

// Planner carries the clustering and dominance tunables.
type Planner struct {
	MinClusterSize  int     `mapstructure:"min_cluster_size"`
	MaxLinkDistance float64 `mapstructure:"max_link_distance"`
	// MinTargets is the hit count at which an area skill beats a single-target
	// plan.
	MinTargets int `mapstructure:"min_targets"`
}

// DefaultPlanner returns the built-in tunables.
func DefaultPlanner() Planner {
	return Planner{MinClusterSize: 3, MaxLinkDistance: 5, MinTargets: 3}
}

// Clusters runs DetectClusters with the planner's tunables.
func (p Planner) Clusters(positions []combat.Position) []Cluster {
	return DetectClusters(positions, p.MinClusterSize, p.MaxLinkDistance)
}

// Clustered reports whether positions contain at least one cluster.
func (p Planner) Clustered(positions []combat.Position) bool {
	return len(p.Clusters(positions)) > 0
}

// Dominates reports whether choice hits enough targets to beat single-target
// play.
func (p Planner) Dominates(choice Choice) bool {
	need := p.MinTargets
	if need < 2 {
		need = 2
	}
	return choice.Placement.Hits >= need
}

// Best returns the best area choice over all positions when it dominates.
func (p Planner) Best(skills []SkillDef, positions []combat.Position, self combat.Position, spBudget int) (Choice, bool) {
	if len(positions) < 2 {
		return Choice{}, false
	}
	ch, ok := SelectBestSkill(skills, positions, self, spBudget)
	if !ok || !p.Dominates(ch) {
		return Choice{}, false
	}
	return ch, true
}

// Plan runs clustering then PlanSequence.
func (p Planner) Plan(skills []SkillDef, positions []combat.Position, self combat.Position, spBudget int) []PlannedCast {
	return PlanSequence(p.Clusters(positions), skills, self, spBudget)
}
