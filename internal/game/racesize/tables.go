package racesize

// WeaponSizeTable maps a normalized weapon type to its multiplier against
// small, medium and large targets, indexed by Size.
type WeaponSizeTable map[string][3]float64

// DefaultWeaponSizes is the built-in weapon-size table.
var DefaultWeaponSizes = WeaponSizeTable{
	"bare_fist":      {1.0, 1.0, 1.0},
	"dagger":         {1.0, 0.75, 0.5},
	"one_hand_sword": {0.75, 1.0, 0.75},
	"two_hand_sword": {0.75, 0.75, 1.0},
	"one_hand_spear": {0.75, 0.75, 1.0},
	"two_hand_spear": {0.75, 0.75, 1.0},
	"one_hand_axe":   {0.5, 0.75, 1.0},
	"two_hand_axe":   {0.5, 0.75, 1.0},
	"mace":           {0.75, 1.0, 1.0},
	"two_hand_mace":  {0.75, 1.0, 1.0},
	"rod":            {1.0, 1.0, 1.0},
	"two_hand_rod":   {1.0, 1.0, 1.0},
	"bow":            {1.0, 1.0, 0.75},
	"knuckle":        {1.0, 0.75, 0.5},
	"instrument":     {0.75, 1.0, 0.75},
	"whip":           {0.75, 1.0, 0.5},
	"book":           {1.0, 1.0, 0.5},
	"katar":          {0.75, 1.0, 0.75},
	"revolver":       {1.0, 1.0, 1.0},
	"rifle":          {1.0, 1.0, 1.0},
	"shotgun":        {1.0, 1.0, 1.0},
	"huuma_shuriken": {0.75, 0.75, 1.0},
}

// Lookup returns the multiplier for weaponType against size.
//
// Postcondition: unknown weapons and sizes return 1.0.
func (t WeaponSizeTable) Lookup(weaponType string, size Size) float64 {
	row, ok := t[normalize(weaponType)]
	if !ok || size < Small || size > Large {
		return 1.0
	}
	return row[size]
}

// CardKind distinguishes race cards from size cards.
type CardKind string

const (
	KindRace CardKind = "race"
	KindSize CardKind = "size"
)

// Card is a damage card that adds Bonus (a fraction, 0.2 = +20%) against a
// race or a size.
type Card struct {
	Name  string   `yaml:"name"`
	Kind  CardKind `yaml:"kind"`
	Race  Race     `yaml:"race"`
	Size  Size     `yaml:"size"`
	Bonus float64  `yaml:"bonus"`
}

// DefaultCards is the built-in card table.
var DefaultCards = []Card{
	{Name: "Hydra Card", Kind: KindRace, Race: DemiHuman, Bonus: 0.20},
	{Name: "Goblin Card", Kind: KindRace, Race: Brute, Bonus: 0.20},
	{Name: "Caramel Card", Kind: KindRace, Race: Insect, Bonus: 0.20},
	{Name: "Flora Card", Kind: KindRace, Race: Fish, Bonus: 0.20},
	{Name: "Strouf Card", Kind: KindRace, Race: Demon, Bonus: 0.20},
	{Name: "Scorpion Card", Kind: KindRace, Race: Plant, Bonus: 0.20},
	{Name: "Earth Petite Card", Kind: KindRace, Race: Dragon, Bonus: 0.20},
	{Name: "Santa Poring Card", Kind: KindRace, Race: Angel, Bonus: 0.20},
	{Name: "Orc Zombie Card", Kind: KindRace, Race: Undead, Bonus: 0.20},
	{Name: "Desert Wolf Card", Kind: KindSize, Size: Small, Bonus: 0.15},
	{Name: "Skeleton Worker Card", Kind: KindSize, Size: Medium, Bonus: 0.15},
	{Name: "Minorous Card", Kind: KindSize, Size: Large, Bonus: 0.15},
}
