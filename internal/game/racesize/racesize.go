// Package racesize resolves the race and size damage axes: weapon-size
// penalties and additive race/size card bonuses.
package racesize

import "strings"

// Race is a monster race classification.
type Race int

const (
	Formless Race = iota
	Undead
	Brute
	Plant
	Insect
	Fish
	Demon
	DemiHuman
	Angel
	Dragon
)

var raceNames = []string{
	"formless", "undead", "brute", "plant", "insect",
	"fish", "demon", "demihuman", "angel", "dragon",
}

// String returns the lower-case race name.
func (r Race) String() string {
	if r < Formless || r > Dragon {
		return "unknown"
	}
	return raceNames[r]
}

// ParseRace maps a race name to a Race. Unknown names return (Formless, false).
func ParseRace(s string) (Race, bool) {
	key := strings.ReplaceAll(normalize(s), "_", "")
	for i, n := range raceNames {
		if n == key {
			return Race(i), true
		}
	}
	return Formless, false
}

// UnmarshalText decodes a race by name.
func (r *Race) UnmarshalText(b []byte) error {
	*r, _ = ParseRace(string(b))
	return nil
}

// MarshalText encodes the race by name.
func (r Race) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Size is a monster size class.
type Size int

const (
	Small Size = iota
	Medium
	Large
)

var sizeNames = [3]string{"small", "medium", "large"}

// String returns the lower-case size name.
func (s Size) String() string {
	if s < Small || s > Large {
		return "unknown"
	}
	return sizeNames[s]
}

// ParseSize maps a size name to a Size. Unknown names return (Medium, false).
func ParseSize(s string) (Size, bool) {
	key := normalize(s)
	for i, n := range sizeNames {
		if n == key {
			return Size(i), true
		}
	}
	return Medium, false
}

// UnmarshalText decodes a size by name.
func (s *Size) UnmarshalText(b []byte) error {
	*s, _ = ParseSize(string(b))
	return nil
}

// MarshalText encodes the size by name.
func (s Size) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// normalize lower-cases, trims, and collapses inner whitespace and hyphens to
// single underscores, so "Two-Hand  Sword" and "two_hand_sword" match.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if r == '-' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), "_")
}
