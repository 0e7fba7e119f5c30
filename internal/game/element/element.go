// Package element implements elemental damage modifiers: the attack-vs-defense
// ModifierTable and a Resolver that recommends attack elements, converters and
// endow skills against a target.
package element

import "strings"

// Element is one of the ten elemental types. Declaration order is significant:
// it is the scan order used by OptimalElement and therefore its tie-break.
type Element int

const (
	Neutral Element = iota
	Fire
	Water
	Earth
	Wind
	Holy
	Dark
	Poison
	Ghost
	Undead
)

// Count is the number of defined elements.
const Count = 10

// MinLevel and MaxLevel bound the defensive element level (monster tier).
const (
	MinLevel = 1
	MaxLevel = 4
)

// ImprovementThreshold is the ratio a challenger must reach over the incumbent
// before the agent switches: attack element (optimal/current) or locked target
// (candidate/current score).
const ImprovementThreshold = 1.5

// None is returned by recommendation lookups when no converter or endow exists.
const None = "none"

var names = [Count]string{
	"neutral", "fire", "water", "earth", "wind",
	"holy", "dark", "poison", "ghost", "undead",
}

// String returns the lower-case element name.
func (e Element) String() string {
	if !e.Valid() {
		return "unknown"
	}
	return names[e]
}

// Valid reports whether e is one of the ten declared elements.
func (e Element) Valid() bool {
	return e >= Neutral && e <= Undead
}

// All returns every element in declaration order.
func All() []Element {
	out := make([]Element, Count)
	for i := range out {
		out[i] = Element(i)
	}
	return out
}

// ParseElement maps a name to an Element, case-insensitively.
//
// Postcondition: unknown names return (Neutral, false).
func ParseElement(s string) (Element, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "shadow":
		return Dark, true
	case "wind", "air":
		return Wind, true
	}
	for i, n := range names {
		if n == s {
			return Element(i), true
		}
	}
	return Neutral, false
}

// ClampLevel clamps an element level into [MinLevel, MaxLevel].
func ClampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// UnmarshalText lets elements appear by name in YAML and config files.
// Unknown names decode to Neutral.
func (e *Element) UnmarshalText(b []byte) error {
	el, _ := ParseElement(string(b))
	*e = el
	return nil
}

// MarshalText encodes the element by name.
func (e Element) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}
