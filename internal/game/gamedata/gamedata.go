// Package gamedata loads the static decision tables (skill timing, area
// skills, cards and combos) from YAML, falling back per file to the embedded
// defaults when a file is missing or malformed.
package gamedata

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/roagent/internal/game/aoe"
	"github.com/cory-johannsen/roagent/internal/game/combo"
	"github.com/cory-johannsen/roagent/internal/game/racesize"
	"github.com/cory-johannsen/roagent/internal/game/timing"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// Table file names.
const (
	SkillsFile     = "skills.yaml"
	AreaSkillsFile = "area_skills.yaml"
	CardsFile      = "cards.yaml"
	CombosFile     = "combos.yaml"
)

// Files lists every table file in load order.
var Files = []string{SkillsFile, AreaSkillsFile, CardsFile, CombosFile}

// SkillTimingRecord is the YAML form of one timing.SkillTiming.
type SkillTimingRecord struct {
	ID             string        `yaml:"id"`
	FixedCast      time.Duration `yaml:"fixed_cast"`
	VariableCast   time.Duration `yaml:"variable_cast"`
	AfterCastDelay time.Duration `yaml:"after_cast_delay"`
	Cooldown       time.Duration `yaml:"cooldown"`
	AnimationLock  time.Duration `yaml:"animation_lock"`
}

type skillsFile struct {
	Skills []SkillTimingRecord `yaml:"skills"`
}

type areaSkillsFile struct {
	AreaSkills []aoe.SkillDef `yaml:"area_skills"`
}

type cardsFile struct {
	WeaponSizes racesize.WeaponSizeTable `yaml:"weapon_sizes"`
	Cards       []racesize.Card          `yaml:"cards"`
}

type combosFile struct {
	Combos []combo.Def `yaml:"combos"`
}

// Tables is the full set of static tables.
type Tables struct {
	Timing      *timing.Table
	AreaSkills  []aoe.SkillDef
	WeaponSizes racesize.WeaponSizeTable
	Cards       []racesize.Card
	Combos      []combo.Def

	// Fallbacks names the files replaced by embedded defaults, with the
	// reason in Errors.
	Fallbacks []string
	Errors    map[string]error
}

// UsedFallback reports whether any file fell back to its embedded default.
func (t *Tables) UsedFallback() bool {
	return len(t.Fallbacks) > 0
}

// AreaSkill returns the area skill named name, case-insensitively.
func (t *Tables) AreaSkill(name string) (aoe.SkillDef, bool) {
	for _, s := range t.AreaSkills {
		if strings.EqualFold(s.Name, strings.TrimSpace(name)) {
			return s, true
		}
	}
	return aoe.SkillDef{}, false
}

// Defaults returns the embedded tables.
//
// Postcondition: never fails for a correctly built binary; a broken embedded
// file panics.
func Defaults() *Tables {
	t := &Tables{Errors: map[string]error{}}
	for _, name := range Files {
		data, err := defaultsFS.ReadFile("defaults/" + name)
		if err != nil {
			panic(fmt.Sprintf("gamedata: embedded %s: %v", name, err))
		}
		if err := t.apply(name, data); err != nil {
			panic(fmt.Sprintf("gamedata: embedded %s: %v", name, err))
		}
	}
	return t
}

// Load reads every table file from dir. A file that cannot be read, parsed or
// validated is replaced by its embedded default and recorded in Fallbacks.
//
// Postcondition: always returns usable Tables; the error is non-nil only when
// dir exists but is not a directory.
func Load(dir string) (*Tables, error) {
	if dir != "" {
		if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
			return nil, fmt.Errorf("gamedata dir %q is not a directory", dir)
		}
	}
	t := &Tables{Errors: map[string]error{}}
	for _, name := range Files {
		err := t.loadFile(dir, name)
		if err == nil {
			continue
		}
		t.Fallbacks = append(t.Fallbacks, name)
		t.Errors[name] = err
		data, derr := defaultsFS.ReadFile("defaults/" + name)
		if derr != nil {
			return nil, fmt.Errorf("reading embedded %s: %w", name, derr)
		}
		if aerr := t.apply(name, data); aerr != nil {
			return nil, fmt.Errorf("parsing embedded %s: %w", name, aerr)
		}
	}
	return t, nil
}

func (t *Tables) loadFile(dir, name string) error {
	if dir == "" {
		return fs.ErrNotExist
	}
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	if err := t.apply(name, data); err != nil {
		return fmt.Errorf("parsing %q: %w", path, err)
	}
	return nil
}

// apply decodes and validates one file, assigning the result only on success.
func (t *Tables) apply(name string, data []byte) error {
	switch name {
	case SkillsFile:
		var f skillsFile
		if err := decode(data, &f); err != nil {
			return err
		}
		tbl, err := buildTiming(f.Skills)
		if err != nil {
			return err
		}
		t.Timing = tbl
	case AreaSkillsFile:
		var f areaSkillsFile
		if err := decode(data, &f); err != nil {
			return err
		}
		if err := validateAreaSkills(f.AreaSkills); err != nil {
			return err
		}
		t.AreaSkills = f.AreaSkills
	case CardsFile:
		var f cardsFile
		if err := decode(data, &f); err != nil {
			return err
		}
		if err := validateCards(f.Cards); err != nil {
			return err
		}
		t.WeaponSizes = f.WeaponSizes
		t.Cards = f.Cards
	case CombosFile:
		var f combosFile
		if err := decode(data, &f); err != nil {
			return err
		}
		if err := validateCombos(f.Combos); err != nil {
			return err
		}
		t.Combos = f.Combos
	default:
		return fmt.Errorf("unknown table file %q", name)
	}
	return nil
}

func decode(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmpty
		}
		return err
	}
	return nil
}

var errEmpty = errors.New("file is empty")

func buildTiming(records []SkillTimingRecord) (*timing.Table, error) {
	var errs []string
	entries := make(map[string]timing.SkillTiming, len(records))
	for i, r := range records {
		id := strings.ToUpper(strings.TrimSpace(r.ID))
		if id == "" {
			errs = append(errs, fmt.Sprintf("skill %d: id must not be empty", i))
			continue
		}
		if _, dup := entries[id]; dup {
			errs = append(errs, fmt.Sprintf("skill %s: duplicate id", id))
			continue
		}
		if r.FixedCast < 0 || r.VariableCast < 0 || r.AfterCastDelay < 0 || r.Cooldown < 0 || r.AnimationLock < 0 {
			errs = append(errs, fmt.Sprintf("skill %s: durations must be >= 0", id))
			continue
		}
		entries[id] = timing.SkillTiming{
			FixedCast:      r.FixedCast,
			VariableCast:   r.VariableCast,
			AfterCastDelay: r.AfterCastDelay,
			Cooldown:       r.Cooldown,
			AnimationLock:  r.AnimationLock,
		}
	}
	if len(errs) > 0 {
		return nil, errors.New(strings.Join(errs, "; "))
	}
	return timing.NewTable(entries), nil
}

func validateAreaSkills(skills []aoe.SkillDef) error {
	var errs []string
	seen := map[string]bool{}
	for i, s := range skills {
		k := strings.ToUpper(strings.TrimSpace(s.Name))
		if k == "" {
			errs = append(errs, fmt.Sprintf("area skill %d: name must not be empty", i))
			continue
		}
		if seen[k] {
			errs = append(errs, fmt.Sprintf("area skill %s: duplicate name", k))
		}
		seen[k] = true
		if s.Radius < 0 || s.CastRange < 0 || s.SPCost < 0 || s.HitsPerTarget < 0 {
			errs = append(errs, fmt.Sprintf("area skill %s: radius, cast_range, sp_cost and hits_per_target must be >= 0", k))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateCards(cards []racesize.Card) error {
	var errs []string
	seen := map[string]bool{}
	for i, c := range cards {
		k := strings.ToLower(strings.TrimSpace(c.Name))
		if k == "" {
			errs = append(errs, fmt.Sprintf("card %d: name must not be empty", i))
			continue
		}
		if seen[k] {
			errs = append(errs, fmt.Sprintf("card %q: duplicate name", c.Name))
		}
		seen[k] = true
		if c.Kind != racesize.KindRace && c.Kind != racesize.KindSize {
			errs = append(errs, fmt.Sprintf("card %q: kind must be race or size", c.Name))
		}
		if c.Bonus < 0 {
			errs = append(errs, fmt.Sprintf("card %q: bonus must be >= 0", c.Name))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateCombos(defs []combo.Def) error {
	var errs []string
	seen := map[string]bool{}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
		k := strings.ToLower(strings.TrimSpace(d.ID))
		if k != "" && seen[k] {
			errs = append(errs, fmt.Sprintf("combo %q: duplicate id", d.ID))
		}
		seen[k] = true
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
