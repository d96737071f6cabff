// Package script runs embedded Lua code blocks and splices their printed
// output back into the document.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dgallion1/docweave/internal/doctree"
	"github.com/dgallion1/docweave/internal/metadata"
	"github.com/dgallion1/docweave/internal/parser"
	lua "github.com/yuin/gopher-lua"
)

const (
	// Language is the code-block language tag that marks a script.
	Language = "lua"
	// ErrorPrefix starts the output of a script that failed.
	ErrorPrefix = "Lua Error:"
	// OutputTag is the element script output is wrapped in.
	OutputTag = "div"

	chunkName = "script"
)

// Result is the outcome of one script evaluation.
type Result struct {
	Output string // print buffer, or the diagnostic line on failure
	Return any    // last value returned by the chunk, for logging
	Err    error
}

// Bridge executes scripts in a fresh sandboxed interpreter per block.
type Bridge struct {
	parser  parser.FragmentParser
	timeout time.Duration
	log     *slog.Logger
}

// NewBridge returns a bridge. timeout bounds each block; zero means no limit.
func NewBridge(fp parser.FragmentParser, timeout time.Duration, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{parser: fp, timeout: timeout, log: log}
}

// Transform replaces every lua code block under root with a div container
// holding the parsed script output. The raw output is kept in the container's
// Source for the directive recognition pass. Script failures render as a
// diagnostic and never abort; only a failure to parse the output does.
func (b *Bridge) Transform(ctx context.Context, root *doctree.Node, meta metadata.Mapping) error {
	var err error
	count := 0
	doctree.Walk(root, func(n, parent *doctree.Node, index int) doctree.WalkStatus {
		if n.Kind != doctree.KindCodeBlock || n.Lang != Language {
			return doctree.WalkContinue
		}
		count++
		res := b.Run(ctx, n.Value, meta)
		if res.Err != nil {
			b.log.Warn("script failed", "block", count, "error", res.Err)
		} else if res.Return != nil {
			b.log.Debug("script returned", "block", count, "value", res.Return)
		}

		children, perr := b.parser.ParseFragment(res.Output)
		if perr != nil {
			err = fmt.Errorf("parse script output: %w", perr)
			return doctree.WalkStop
		}
		out := doctree.NewDirective(doctree.KindContainerDirective, OutputTag, nil, children...)
		out.Source = res.Output
		doctree.Replace(parent, index, out)
		// Output is not executed again.
		return doctree.WalkSkipChildren
	})
	return err
}

// Run evaluates src with meta bound as the global `input`.
func (b *Bridge) Run(ctx context.Context, src string, meta metadata.Mapping) Result {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	L, err := newState()
	if err != nil {
		return failure(err)
	}
	defer L.Close()
	L.SetContext(ctx)

	var lines []string
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, top)
		for i := 1; i <= top; i++ {
			parts[i-1] = printString(L, L.Get(i))
		}
		lines = append(lines, strings.Join(parts, "\t"))
		return 0
	}))
	L.SetGlobal("input", ToGuest(L, map[string]any(meta)))

	fn, err := L.Load(strings.NewReader(src), chunkName)
	if err != nil {
		return failure(err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return failure(err)
	}

	res := Result{Output: strings.Join(lines, "\n")}
	if L.GetTop() > 0 {
		res.Return = FromGuest(L.Get(-1))
	}
	return res
}

// printString formats a value the way Lua 5.1 print does; numbers use %.14g.
func printString(L *lua.LState, v lua.LValue) string {
	n, ok := v.(lua.LNumber)
	if !ok {
		return L.ToStringMeta(v).String()
	}
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.14g", f)
}

var sandboxLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.CoroutineLibName, lua.OpenCoroutine},
}

// newState opens the pure-computation libraries only: no io, os or package,
// and no file loading from the base library.
func newState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range sandboxLibs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open %s library: %w", lib.name, err)
		}
	}
	for _, name := range []string{"dofile", "loadfile", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}

func failure(err error) Result {
	return Result{Output: ErrorPrefix + message(err), Err: err}
}

// message returns the interpreter's error text without the stack trace.
func message(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return oneLine(apiErr.Object.String())
	}
	return oneLine(err.Error())
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}
