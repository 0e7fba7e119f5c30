package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules installs the engine table into L:
//
//	engine.log.debug|info|warn|error(msg)
//	engine.dice.roll(expr)        -> {dice=<sum>, modifier=<n>, total=<n>}
//	engine.dice.chance(pct)       -> bool
//	engine.character.get(id)      -> table or nil
//	engine.character.item_count(id, item) -> number
//	engine.character.has_buff(id, buff)   -> bool
//	engine.hostiles.list(id)      -> array of tables
//	engine.hostiles.count(id)     -> number
//	engine.hostiles.aggressive(id) -> number targeting the character
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "character", m.characterModule(L))
	L.SetField(engine, "hostiles", m.hostilesModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, fn := range levels {
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "roll", L.NewFunction(func(L *lua.LState) int {
		res, err := m.roller.RollExpr(L.CheckString(1))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		t := L.NewTable()
		t.RawSetString("dice", lua.LNumber(res.Total()-res.Modifier))
		t.RawSetString("modifier", lua.LNumber(res.Modifier))
		t.RawSetString("total", lua.LNumber(res.Total()))
		L.Push(t)
		return 1
	}))
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(m.roller.Chance(float64(L.CheckNumber(1)))))
		return 1
	}))
	return mod
}

func (m *Manager) character(id string) *CharacterInfo {
	if m.Character == nil {
		return nil
	}
	return m.Character(id)
}

func (m *Manager) characterModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(func(L *lua.LState) int {
		c := m.character(L.CheckString(1))
		if c == nil {
			L.Push(lua.LNil)
			return 1
		}
		t := L.NewTable()
		t.RawSetString("id", lua.LString(c.ID))
		t.RawSetString("name", lua.LString(c.Name))
		t.RawSetString("level", lua.LNumber(c.Level))
		t.RawSetString("hp", lua.LNumber(c.HP))
		t.RawSetString("max_hp", lua.LNumber(c.MaxHP))
		t.RawSetString("hp_pct", lua.LNumber(pct(c.HP, c.MaxHP)))
		t.RawSetString("sp", lua.LNumber(c.SP))
		t.RawSetString("max_sp", lua.LNumber(c.MaxSP))
		t.RawSetString("sp_pct", lua.LNumber(pct(c.SP, c.MaxSP)))
		t.RawSetString("x", lua.LNumber(c.X))
		t.RawSetString("y", lua.LNumber(c.Y))
		t.RawSetString("weapon_type", lua.LString(c.WeaponType))
		t.RawSetString("weapon_element", lua.LString(c.WeaponElement))
		L.Push(t)
		return 1
	}))
	L.SetField(mod, "item_count", L.NewFunction(func(L *lua.LState) int {
		n := 0
		if c := m.character(L.CheckString(1)); c != nil {
			n = c.Items[L.CheckString(2)]
		}
		L.Push(lua.LNumber(n))
		return 1
	}))
	L.SetField(mod, "has_buff", L.NewFunction(func(L *lua.LState) int {
		found := false
		if c := m.character(L.CheckString(1)); c != nil {
			buff := L.CheckString(2)
			for _, b := range c.Buffs {
				if b == buff {
					found = true
					break
				}
			}
		}
		L.Push(lua.LBool(found))
		return 1
	}))
	return mod
}

func (m *Manager) hostiles(id string) []HostileInfo {
	if m.Hostiles == nil {
		return nil
	}
	return m.Hostiles(id)
}

func (m *Manager) hostilesModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "list", L.NewFunction(func(L *lua.LState) int {
		list := L.NewTable()
		for _, h := range m.hostiles(L.CheckString(1)) {
			t := L.NewTable()
			t.RawSetString("id", lua.LString(h.ID))
			t.RawSetString("name", lua.LString(h.Name))
			t.RawSetString("level", lua.LNumber(h.Level))
			t.RawSetString("hp_pct", lua.LNumber(pct(h.HP, h.MaxHP)))
			t.RawSetString("distance", lua.LNumber(h.Distance))
			t.RawSetString("element", lua.LString(h.Element))
			t.RawSetString("race", lua.LString(h.Race))
			t.RawSetString("aggressive", lua.LBool(h.Aggressive))
			t.RawSetString("targeting_me", lua.LBool(h.TargetingMe))
			t.RawSetString("boss", lua.LString(h.Boss))
			list.Append(t)
		}
		L.Push(list)
		return 1
	}))
	L.SetField(mod, "count", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(len(m.hostiles(L.CheckString(1)))))
		return 1
	}))
	L.SetField(mod, "aggressive", L.NewFunction(func(L *lua.LState) int {
		n := 0
		for _, h := range m.hostiles(L.CheckString(1)) {
			if h.Aggressive && h.TargetingMe {
				n++
			}
		}
		L.Push(lua.LNumber(n))
		return 1
	}))
	return mod
}

func pct(cur, max int) float64 {
	if max <= 0 {
		return 0
	}
	return float64(cur) / float64(max) * 100
}
