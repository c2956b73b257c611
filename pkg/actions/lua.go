package actions

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/arbor/pkg/linkedlist"
	lua "github.com/yuin/gopher-lua"
)

type luaParams struct {
	Script string `mapstructure:"script"`
}

type luaTask struct {
	base
}

func (t *luaTask) Execute(ctx context.Context, params map[string]any) error {
	var p luaParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.Script == "" {
		return fmt.Errorf("%w: lua requires 'script'", errMissingParam)
	}

	values, err := runScript(ctx, p.Script, t.list.Values())
	if err != nil {
		return err
	}

	t.list = linkedlist.FromValues(values...)
	return nil
}

// runScript evaluates script with the list exposed as the global table "values".
// Only the base, table, string and math libraries are available, without the
// functions that load code from files or strings.
func runScript(ctx context.Context, script string, values []int) ([]int, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// OpenBase also installs loaders that reach the filesystem.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetContext(ctx)

	in := L.NewTable()
	for _, v := range values {
		in.Append(lua.LNumber(v))
	}
	L.SetGlobal("values", in)

	top := L.GetTop()
	if err := L.DoString(script); err != nil {
		return nil, fmt.Errorf("lua script failed: %w", err)
	}

	out := L.GetGlobal("values")
	if L.GetTop() > top {
		out = L.Get(-1)
	}

	tbl, ok := out.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua script must return a table, got %s", out.Type())
	}

	result := make([]int, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		n, ok := tbl.RawGetInt(i).(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf("lua script returned a non-numeric element at index %d", i)
		}
		if f := float64(n); f != math.Trunc(f) {
			return nil, fmt.Errorf("lua script returned a non-integer element %v at index %d", f, i)
		}
		result = append(result, int(n))
	}
	return result, nil
}
