package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roagent/internal/game/dice"
)

// GlobalProfile is the VM consulted when a profile has no VM of its own.
const GlobalProfile = "__global__"

// CharacterInfo is the character view exposed to Lua.
type CharacterInfo struct {
	ID            string
	Name          string
	Level         int
	HP, MaxHP     int
	SP, MaxSP     int
	X, Y          int
	WeaponType    string
	WeaponElement string
	Buffs         []string
	Items         map[string]int
}

// HostileInfo is one visible hostile as exposed to Lua.
type HostileInfo struct {
	ID          string
	Name        string
	Level       int
	HP, MaxHP   int
	Distance    float64
	Element     string
	Race        string
	Aggressive  bool
	TargetingMe bool
	Boss        string
}

type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed VM per profile.
//
// CallHook is safe for concurrent use; calls into the same VM are serialized.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger

	// Set before the first CallHook. nil makes the matching engine.* lookups
	// return nil.
	Character func(characterID string) *CharacterInfo
	Hostiles  func(characterID string) []HostileInfo
}

// NewManager returns a Manager with no VMs.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{vms: make(map[string]*vm), roller: roller, logger: logger}
}

// LoadProfile builds the VM for profile from every *.lua file in dir, in
// lexical order. An existing VM for profile is replaced only on success.
//
// Precondition: profile must be non-empty.
func (m *Manager) LoadProfile(profile, dir string, instLimit int) error {
	if profile == "" {
		return fmt.Errorf("scripting: empty profile name")
	}
	return m.load(profile, dir, instLimit)
}

// LoadGlobal builds the fallback VM from dir.
func (m *Manager) LoadGlobal(dir string, instLimit int) error {
	return m.load(GlobalProfile, dir, instLimit)
}

// LoadProfiles loads dir as the global VM when it holds *.lua files, and each
// subdirectory of dir as the profile of the same name.
//
// Postcondition: returns the loaded profile names, sorted.
func (m *Manager) LoadProfiles(dir string, instLimit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading %q: %w", dir, err)
	}
	var loaded []string
	hasLua := false
	for _, e := range entries {
		if !e.IsDir() {
			hasLua = hasLua || filepath.Ext(e.Name()) == ".lua"
			continue
		}
		if err := m.LoadProfile(e.Name(), filepath.Join(dir, e.Name()), instLimit); err != nil {
			return loaded, err
		}
		loaded = append(loaded, e.Name())
	}
	if hasLua {
		if err := m.LoadGlobal(dir, instLimit); err != nil {
			return loaded, err
		}
		loaded = append(loaded, GlobalProfile)
	}
	sort.Strings(loaded)
	return loaded, nil
}

func (m *Manager) load(profile, dir string, instLimit int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading %q for %q: %w", dir, profile, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	L := NewSandboxedState(instLimit)
	L.RemoveContext()
	m.RegisterModules(L)
	for _, f := range files {
		release := armBudget(L, instLimit)
		err := L.DoFile(f)
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", f, profile, err)
		}
	}

	m.mu.Lock()
	old := m.vms[profile]
	m.vms[profile] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.logger.Info("scripting: profile loaded", zap.String("profile", profile), zap.Int("files", len(files)))
	return nil
}

// Profiles returns the loaded profile names, sorted.
func (m *Manager) Profiles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.vms))
	for p := range m.vms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// CallHook calls the global Lua function hook in profile's VM, falling back
// to the global VM. Every call gets a fresh opcode budget. A missing VM or
// function yields (LNil, nil); Lua errors, including an exhausted budget, are
// logged at Warn and also yield (LNil, nil).
//
// Postcondition: returns the hook's first return value or LNil.
func (m *Manager) CallHook(profile, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[profile]
	if !ok {
		v = m.vms[GlobalProfile]
	}
	m.mu.RUnlock()
	if v == nil {
		m.logger.Debug("scripting: no VM for profile", zap.String("profile", profile), zap.String("hook", hook))
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.L.IsClosed() {
		return lua.LNil, nil
	}
	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}
	release := armBudget(v.L, v.limit)
	defer release()
	if err := v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("profile", profile),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close closes every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
