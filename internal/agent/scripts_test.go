package agent_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roagent/internal/agent"
	"github.com/cory-johannsen/roagent/internal/game/dice"
	"github.com/cory-johannsen/roagent/internal/scripting"
)

func TestBindScripts(t *testing.T) {
	dir := t.TempDir()
	src := `
function summary(id)
  local c = engine.character.get(id)
  if c == nil then return "none" end
  return c.name .. ":" .. c.hp_pct .. ":" .. engine.hostiles.count(id)
end
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hooks.lua"), []byte(src), 0o644))
	mgr := scripting.NewManager(dice.NewRoller(dice.NewSeededSource(1), zap.NewNop()), zap.NewNop())
	require.NoError(t, mgr.LoadGlobal(dir, 0))
	defer mgr.Close()

	w := newFakeWorld()
	snap := snapshot("a", poring("m1", 11, 10), poring("m2", 12, 10))
	snap.Character.Name = "Aria"
	snap.Character.HP = 50
	snap.Hostiles[1].HP = 0
	w.snaps["a"] = snap
	agent.BindScripts(mgr, w)

	ret, err := mgr.CallHook("any", "summary", lua.LString("a"))
	require.NoError(t, err)
	assert.Equal(t, "Aria:50:1", ret.String())

	ret, err = mgr.CallHook("any", "summary", lua.LString("missing"))
	require.NoError(t, err)
	assert.Equal(t, "none", ret.String())
}

func TestHostileInfo(t *testing.T) {
	snap := snapshot("a", poring("m1", 13, 14))
	info := agent.HostileInfo(&snap.Character, snap.Hostiles[0])
	assert.InDelta(t, 5.0, info.Distance, 1e-9)
	assert.Equal(t, "neutral", info.Element)
	assert.Equal(t, "none", info.Boss)
}
