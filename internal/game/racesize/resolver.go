package racesize

import "strings"

// Suggestion is an equipment recommendation against one race/size pair.
type Suggestion struct {
	Weapon         string
	SizeMultiplier float64
	Cards          []Card
}

// Resolver computes race and size multipliers from a weapon-size table and a
// card table.
type Resolver struct {
	sizes  WeaponSizeTable
	cards  []Card
	byName map[string]Card
}

// NewResolver returns a Resolver over cards and the built-in weapon-size
// table. A nil or empty cards slice selects DefaultCards.
func NewResolver(cards []Card) *Resolver {
	return NewResolverWithSizes(DefaultWeaponSizes, cards)
}

// NewResolverWithSizes is NewResolver with an explicit weapon-size table.
// Table keys are normalized on the way in.
func NewResolverWithSizes(sizes WeaponSizeTable, cards []Card) *Resolver {
	if len(cards) == 0 {
		cards = DefaultCards
	}
	if sizes == nil {
		sizes = DefaultWeaponSizes
	}
	norm := make(WeaponSizeTable, len(sizes))
	for k, v := range sizes {
		norm[normalize(k)] = v
	}
	r := &Resolver{sizes: norm, cards: cards, byName: make(map[string]Card, len(cards))}
	for _, c := range cards {
		r.byName[strings.ToLower(strings.TrimSpace(c.Name))] = c
	}
	return r
}

// SizeModifier returns the weapon-size multiplier. Weapon type lookup is
// case-insensitive and whitespace-normalized.
//
// Postcondition: unknown weapon types return 1.0.
func (r *Resolver) SizeModifier(weaponType string, size Size) float64 {
	return r.sizes.Lookup(weaponType, size)
}

// KnownWeapon reports whether weaponType has a size-table entry.
func (r *Resolver) KnownWeapon(weaponType string) bool {
	_, ok := r.sizes[normalize(weaponType)]
	return ok
}

// RaceBonus returns 1 + the summed bonus of every equipped race card matching
// race. Stacking is additive.
//
// Postcondition: returns >= 1 when all bonuses are non-negative.
func (r *Resolver) RaceBonus(equipped []string, race Race) float64 {
	sum := 0.0
	for _, name := range equipped {
		c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok || c.Kind != KindRace || c.Race != race {
			continue
		}
		sum += c.Bonus
	}
	return 1 + sum
}

// SizeCardBonus returns 1 + the summed bonus of equipped size cards matching size.
func (r *Resolver) SizeCardBonus(equipped []string, size Size) float64 {
	sum := 0.0
	for _, name := range equipped {
		c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok || c.Kind != KindSize || c.Size != size {
			continue
		}
		sum += c.Bonus
	}
	return 1 + sum
}

// CombinedModifier returns SizeModifier × RaceBonus.
func (r *Resolver) CombinedModifier(weaponType string, equipped []string, race Race, size Size) float64 {
	return r.SizeModifier(weaponType, size) * r.RaceBonus(equipped, race)
}

// OptimalWeapon returns the weapon with the strictly highest size modifier.
//
// Postcondition: ties keep the first weapon; empty input returns ("", 1.0).
func (r *Resolver) OptimalWeapon(size Size, weapons []string) (string, float64) {
	if len(weapons) == 0 {
		return "", 1.0
	}
	best := weapons[0]
	bestMul := r.SizeModifier(best, size)
	for _, w := range weapons[1:] {
		if m := r.SizeModifier(w, size); m > bestMul {
			best, bestMul = w, m
		}
	}
	return best, bestMul
}

// SuggestCards returns race cards for race followed by size cards for size,
// up to maxCount in total. Negative maxCount is treated as 0.
func (r *Resolver) SuggestCards(race Race, size Size, maxCount int) []Card {
	if maxCount <= 0 {
		return []Card{}
	}
	maxCount = min(maxCount, len(r.cards))
	out := make([]Card, 0, maxCount)
	for _, c := range r.cards {
		if len(out) == maxCount {
			return out
		}
		if c.Kind == KindRace && c.Race == race {
			out = append(out, c)
		}
	}
	for _, c := range r.cards {
		if len(out) == maxCount {
			return out
		}
		if c.Kind == KindSize && c.Size == size {
			out = append(out, c)
		}
	}
	return out
}

// SuggestEquipment combines OptimalWeapon and SuggestCards.
func (r *Resolver) SuggestEquipment(race Race, size Size, weapons []string, maxCards int) Suggestion {
	w, m := r.OptimalWeapon(size, weapons)
	return Suggestion{Weapon: w, SizeMultiplier: m, Cards: r.SuggestCards(race, size, maxCards)}
}
