package element

// ModifierTable maps attack element → defense element → defense level to a
// signed damage multiplier. Negative values mean the defender absorbs the hit
// (heals by |value|); zero means immunity.
//
// Invariant: |value| <= 2.0 for every entry.
type ModifierTable [Count][Count][MaxLevel]float64

// Lookup returns the stored signed multiplier.
//
// Postcondition: level is clamped into [1,4]; out-of-range elements return 1.0.
func (t *ModifierTable) Lookup(atk, def Element, level int) float64 {
	if !atk.Valid() || !def.Valid() {
		return 1.0
	}
	return t[atk][def][ClampLevel(level)-1]
}

// Row shorthands for the built-in table.
var (
	flat      = [MaxLevel]float64{1, 1, 1, 1}
	same      = [MaxLevel]float64{0.25, 0, -0.25, -0.5}
	strong    = [MaxLevel]float64{1.5, 1.75, 2.0, 2.0}
	resisted  = [MaxLevel]float64{0.9, 0.8, 0.7, 0.6}
	vsGhost   = [MaxLevel]float64{1, 0.75, 0.5, 0.25}
	immuneAbs = [MaxLevel]float64{0, -0.25, -0.5, -1.0}
)

// DefaultTable is the built-in element table.
var DefaultTable = ModifierTable{
	Neutral: {
		Neutral: flat, Fire: flat, Water: flat, Earth: flat, Wind: flat,
		Holy: flat, Dark: flat, Poison: flat,
		Ghost:  {0.9, 0.7, 0.5, 0},
		Undead: flat,
	},
	Fire: {
		Neutral: flat,
		Fire:    same,
		Water:   resisted,
		Earth:   strong,
		Wind:    flat,
		Holy:    {1, 0.95, 0.9, 0.85},
		Dark:    flat,
		Poison:  flat,
		Ghost:   vsGhost,
		Undead:  {1.25, 1.5, 1.75, 2.0},
	},
	Water: {
		Neutral: flat,
		Fire:    strong,
		Water:   same,
		Earth:   flat,
		Wind:    resisted,
		Holy:    {1, 0.95, 0.9, 0.85},
		Dark:    flat,
		Poison:  flat,
		Ghost:   vsGhost,
		Undead:  {1, 1, 1.25, 1.5},
	},
	Earth: {
		Neutral: flat,
		Fire:    resisted,
		Water:   flat,
		Earth:   same,
		Wind:    strong,
		Holy:    {1, 0.95, 0.9, 0.85},
		Dark:    flat,
		Poison:  {1, 0.9, 0.8, 0.7},
		Ghost:   vsGhost,
		Undead:  flat,
	},
	Wind: {
		Neutral: flat,
		Fire:    flat,
		Water:   strong,
		Earth:   resisted,
		Wind:    same,
		Holy:    {1, 0.95, 0.9, 0.85},
		Dark:    flat,
		Poison:  flat,
		Ghost:   vsGhost,
		Undead:  flat,
	},
	Holy: {
		Neutral: flat, Fire: flat, Water: flat, Earth: flat, Wind: flat,
		Holy:   immuneAbs,
		Dark:   {1.25, 1.5, 1.75, 2.0},
		Poison: {1, 1, 1.25, 1.5},
		Ghost:  vsGhost,
		Undead: {1.5, 1.75, 2.0, 2.0},
	},
	Dark: {
		Neutral: flat, Fire: flat, Water: flat, Earth: flat, Wind: flat,
		Holy:   {1.25, 1.5, 1.75, 2.0},
		Dark:   immuneAbs,
		Poison: {0.5, 0.25, 0, -0.25},
		Ghost:  vsGhost,
		Undead: {0, -0.25, -0.5, -0.75},
	},
	Poison: {
		Neutral: flat,
		Fire:    {1.25, 1.25, 1, 1},
		Water:   {1.25, 1.25, 1, 1},
		Earth:   {1.25, 1.25, 1, 1},
		Wind:    {1.25, 1.25, 1, 1},
		Holy:    {0.75, 0.5, 0.25, 0},
		Dark:    {0.5, 0.25, 0, -0.25},
		Poison:  immuneAbs,
		Ghost:   {0.5, 0.25, 0, -0.25},
		Undead:  {-0.25, -0.5, -0.75, -1.0},
	},
	Ghost: {
		Neutral: {0.9, 0.7, 0.5, 0},
		Fire:    flat, Water: flat, Earth: flat, Wind: flat,
		Holy:   {0.75, 0.5, 0.25, 0},
		Dark:   {0.75, 0.5, 0.25, 0},
		Poison: flat,
		Ghost:  {1.25, 1.5, 1.75, 2.0},
		Undead: {1, 1.25, 1.5, 1.75},
	},
	Undead: {
		Neutral: flat, Fire: flat, Water: flat, Earth: flat, Wind: flat,
		Holy:   {1, 1.25, 1.5, 1.75},
		Dark:   {0, -0.25, -0.5, -0.75},
		Poison: {0.5, 0.25, 0, -0.25},
		Ghost:  vsGhost,
		Undead: {0, 0, 0, 0},
	},
}
