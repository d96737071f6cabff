package script

import (
	"sort"

	lua "github.com/yuin/gopher-lua"
)

const maxDepth = 64

// ToGuest converts a host value into the Lua value model. Lists become
// 1-indexed sequences and maps become tables; anything unrecognised is nil.
// Map keys are inserted in sorted order so iteration with pairs is stable.
func ToGuest(L *lua.LState, v any) lua.LValue {
	return toGuest(L, v, 0)
}

func toGuest(L *lua.LState, v any, depth int) lua.LValue {
	if depth > maxDepth {
		return lua.LNil
	}
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case []any:
		t := L.CreateTable(len(x), 0)
		for i, e := range x {
			t.RawSetInt(i+1, toGuest(L, e, depth+1))
		}
		return t
	case []string:
		t := L.CreateTable(len(x), 0)
		for i, e := range x {
			t.RawSetInt(i+1, lua.LString(e))
		}
		return t
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t := L.CreateTable(0, len(x))
		for _, k := range keys {
			t.RawSetString(k, toGuest(L, x[k], depth+1))
		}
		return t
	default:
		return lua.LNil
	}
}

// FromGuest converts a Lua value back into the host model. A table whose keys
// are exactly 1..n becomes a list, any other table a map keyed by the string
// form of its keys. Functions, userdata, threads and cyclic references become nil.
func FromGuest(v lua.LValue) any {
	return fromGuest(v, map[*lua.LTable]bool{})
}

func fromGuest(v lua.LValue, seen map[*lua.LTable]bool) any {
	switch x := v.(type) {
	case lua.LString:
		return string(x)
	case lua.LNumber:
		return float64(x)
	case lua.LBool:
		return bool(x)
	case *lua.LTable:
		if seen[x] || len(seen) > maxDepth {
			return nil
		}
		seen[x] = true
		defer delete(seen, x)

		n := x.MaxN()
		count := 0
		x.ForEach(func(lua.LValue, lua.LValue) { count++ })
		if n > 0 && count == n {
			list := make([]any, n)
			for i := 1; i <= n; i++ {
				list[i-1] = fromGuest(x.RawGetInt(i), seen)
			}
			return list
		}
		m := make(map[string]any, count)
		x.ForEach(func(k, val lua.LValue) {
			m[k.String()] = fromGuest(val, seen)
		})
		return m
	default:
		return nil
	}
}
