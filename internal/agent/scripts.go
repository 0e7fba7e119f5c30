package agent

import (
	"github.com/cory-johannsen/roagent/internal/game/combat"
	"github.com/cory-johannsen/roagent/internal/scripting"
)

// BindScripts points the engine.character and engine.hostiles Lua modules
// of m at w.
func BindScripts(m *scripting.Manager, w World) {
	m.Character = func(id string) *scripting.CharacterInfo {
		snap, ok := w.Snapshot(id)
		if !ok {
			return nil
		}
		info := CharacterInfo(&snap.Character)
		return &info
	}
	m.Hostiles = func(id string) []scripting.HostileInfo {
		snap, ok := w.Snapshot(id)
		if !ok {
			return nil
		}
		living := snap.Living()
		out := make([]scripting.HostileInfo, len(living))
		for i, h := range living {
			out[i] = HostileInfo(&snap.Character, h)
		}
		return out
	}
}

// CharacterInfo converts c to its Lua view.
func CharacterInfo(c *combat.CharacterState) scripting.CharacterInfo {
	return scripting.CharacterInfo{
		ID:            c.ID,
		Name:          c.Name,
		Level:         c.Level,
		HP:            c.HP,
		MaxHP:         c.MaxHP,
		SP:            c.SP,
		MaxSP:         c.MaxSP,
		X:             c.Position.X,
		Y:             c.Position.Y,
		WeaponType:    c.WeaponType,
		WeaponElement: c.WeaponElement.String(),
		Buffs:         c.Buffs,
		Items:         c.Items,
	}
}

// HostileInfo converts h, seen from c, to its Lua view.
func HostileInfo(c *combat.CharacterState, h combat.HostileActor) scripting.HostileInfo {
	return scripting.HostileInfo{
		ID:          h.ID,
		Name:        h.Name,
		Level:       h.Level,
		HP:          h.HP,
		MaxHP:       h.MaxHP,
		Distance:    c.Position.DistanceTo(h.Position),
		Element:     h.Element.String(),
		Race:        h.Race.String(),
		Aggressive:  h.Aggressive,
		TargetingMe: h.TargetingMe,
		Boss:        h.Boss.String(),
	}
}
