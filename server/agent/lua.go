package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"pitarena/server/engine"
)

// Lua runs a scripted player. The script must define a global
//
//	function decide(view) ... end
//
// taking a table shaped like View and returning a table with an "action"
// field plus "qty", "commodity" or "offer_id" as the kind requires. One
// interpreter serves one seat; Decide is never called concurrently.
type Lua struct {
	name  string
	state *lua.LState
}

// NewLua compiles source and checks that it defines decide.
func NewLua(name, source string) (*Lua, error) {
	L := lua.NewState()
	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("lua %s: %w", name, err)
	}
	if _, ok := L.GetGlobal("decide").(*lua.LFunction); !ok {
		L.Close()
		return nil, fmt.Errorf("lua %s: script defines no decide function", name)
	}
	return &Lua{name: name, state: L}, nil
}

// LoadLuaFile reads a script from disk.
func LoadLuaFile(path string) (*Lua, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), ".lua")
	return NewLua(name, string(src))
}

func (l *Lua) Name() string { return "lua:" + l.name }

func (l *Lua) Close() {
	l.state.Close()
}

func (l *Lua) Decide(v View) (engine.Action, error) {
	L := l.state
	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("decide"),
		NRet:    1,
		Protect: true,
	}, viewToLua(L, v)); err != nil {
		return engine.Action{}, fmt.Errorf("lua %s: %w", l.name, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return engine.Action{}, fmt.Errorf("lua %s: decide returned %s, want table", l.name, ret.Type())
	}
	a := engine.Action{
		Kind:      engine.ActionKind(lua.LVAsString(tbl.RawGetString("action"))),
		Quantity:  int(lua.LVAsNumber(tbl.RawGetString("qty"))),
		Commodity: engine.Commodity(lua.LVAsString(tbl.RawGetString("commodity"))),
		OfferID:   int64(lua.LVAsNumber(tbl.RawGetString("offer_id"))),
	}
	if a.Kind == "" {
		return engine.Action{}, fmt.Errorf("lua %s: decide returned no action field", l.name)
	}
	return a, nil
}

func viewToLua(L *lua.LState, v View) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("seat", lua.LNumber(v.Seat))
	t.RawSetString("round", lua.LNumber(v.Round))
	t.RawSetString("dealer", lua.LNumber(v.Dealer))
	t.RawSetString("bull", lua.LBool(v.Bull))
	t.RawSetString("bear", lua.LBool(v.Bear))
	t.RawSetString("corner_size", lua.LNumber(v.CornerSize))
	t.RawSetString("max_offer_qty", lua.LNumber(v.MaxOfferQty))

	hand := L.NewTable()
	for k, n := range v.Hand {
		hand.RawSetString(k, lua.LNumber(n))
	}
	t.RawSetString("hand", hand)

	offers := L.NewTable()
	for _, o := range v.Offers {
		ot := L.NewTable()
		ot.RawSetString("id", lua.LNumber(o.ID))
		ot.RawSetString("seat", lua.LNumber(o.Seat))
		ot.RawSetString("qty", lua.LNumber(o.Quantity))
		ot.RawSetString("mine", lua.LBool(o.Mine))
		if o.Commodity != "" {
			ot.RawSetString("commodity", lua.LString(o.Commodity))
		}
		offers.Append(ot)
	}
	t.RawSetString("offers", offers)

	counts := L.NewTable()
	for _, n := range v.HandCounts {
		counts.Append(lua.LNumber(n))
	}
	t.RawSetString("hand_counts", counts)

	scores := L.NewTable()
	for _, s := range v.Scores {
		scores.Append(lua.LNumber(s))
	}
	t.RawSetString("scores", scores)

	legal := L.NewTable()
	for _, k := range v.Legal {
		legal.Append(lua.LString(k))
	}
	t.RawSetString("legal_actions", legal)
	return t
}
