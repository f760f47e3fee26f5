package script

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/editor"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/transform"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// Editor is the set of editor operations the console can drive.
// *editor.Editor satisfies it.
type Editor interface {
	AddPrimitive(ctx context.Context, p editor.Primitive) (int, error)
	AddText(ctx context.Context, text, fontPath string, height, depth float64) (int, error)
	AddVector(ctx context.Context, name string, path [][2]float64, depth float64) (int, error)
	DuplicateSelected() (int, error)
	RemoveSelected() error
	Select(index int) bool
	SelectSecondary(index int) bool
	SwapSelection() bool
	SetRenderMode(name string) error
	ApplyTransform(op string, dir int) (transform.Result, error)
	SetPosition(p v3.Vec) transform.Result
	SetRotation(r v3.Vec) transform.Result
	SetScale(s v3.Vec) transform.Result
	ResetTransform() transform.Result
	ToggleSnap() bool
	Combine(ctx context.Context, op kernel.Op) (int, error)
	Undo() bool
	Redo() bool
}

var _ Editor = (*editor.Editor)(nil)

type builtin func(a args) (zygo.Sexp, error)

// registerBuiltins installs the console builtins. Every builtin checks ctx
// first, so a timed out or superseded program stops changing the scene.
// Indices of models a builtin creates are appended to res.
func registerBuiltins(ctx context.Context, env *zygo.Zlisp, ed Editor, res *Result) {
	add := func(name string, fn builtin) {
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, in []zygo.Sexp) (zygo.Sexp, error) {
			if err := ctx.Err(); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return fn(parseArgs(in))
		})
	}
	created := func(idx int, err error) (zygo.Sexp, error) {
		if err != nil {
			return zygo.SexpNull, err
		}
		res.Models = append(res.Models, idx)
		return &zygo.SexpInt{Val: int64(idx)}, nil
	}
	primitive := func(shape string, names ...string) builtin {
		return func(a args) (zygo.Sexp, error) {
			v, err := a.floats(shape, names...)
			if err != nil {
				return zygo.SexpNull, err
			}
			p := editor.Primitive{Shape: shape}
			for i, name := range names {
				switch name {
				case "width":
					p.Width = v[i]
				case "height":
					p.Height = v[i]
				case "depth":
					p.Depth = v[i]
				case "radius":
					p.Radius = v[i]
				case "top-radius":
					p.TopRadius = v[i]
				}
			}
			return created(ed.AddPrimitive(ctx, p))
		}
	}

	// Creation.
	add("box", primitive("box", "width", "height", "depth"))
	add("cylinder", primitive("cylinder", "height", "radius"))
	add("sphere", primitive("sphere", "radius"))
	add("cone", primitive("cone", "height", "radius", "top-radius"))

	add("text", func(a args) (zygo.Sexp, error) {
		if len(a.positional) == 0 {
			return zygo.SexpNull, fmt.Errorf("text requires a string")
		}
		s, err := toName(a.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("text: %w", err)
		}
		height, err := a.float("text", "height", 10)
		if err != nil {
			return zygo.SexpNull, err
		}
		depth, err := a.float("text", "depth", 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		var font string
		if f, ok := a.kw["font"]; ok {
			if font, err = toName(f); err != nil {
				return zygo.SexpNull, fmt.Errorf("text: font: %w", err)
			}
		}
		return created(ed.AddText(ctx, s, font, height, depth))
	})

	// (extrude [0 0 10 0 10 10] :depth 3) takes a flat x y list.
	add("extrude", func(a args) (zygo.Sexp, error) {
		if len(a.positional) == 0 {
			return zygo.SexpNull, fmt.Errorf("extrude requires a point list")
		}
		flat, err := toFloats(a.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		if len(flat)%2 != 0 {
			return zygo.SexpNull, fmt.Errorf("extrude: odd number of coordinates")
		}
		path := make([][2]float64, len(flat)/2)
		for i := range path {
			path[i] = [2]float64{flat[2*i], flat[2*i+1]}
		}
		depth, err := a.float("extrude", "depth", 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		return created(ed.AddVector(ctx, "extrusion", path, depth))
	})

	add("duplicate", func(args) (zygo.Sexp, error) {
		return created(ed.DuplicateSelected())
	})
	add("delete", func(args) (zygo.Sexp, error) {
		if err := ed.RemoveSelected(); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})

	// Selection.
	selectFn := func(name string, sel func(int) bool) builtin {
		return func(a args) (zygo.Sexp, error) {
			if len(a.positional) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires an index", name)
			}
			i, err := toInt(a.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			if !sel(i) {
				return zygo.SexpNull, fmt.Errorf("%s: no model at index %d", name, i)
			}
			return &zygo.SexpInt{Val: int64(i)}, nil
		}
	}
	add("select", selectFn("select", ed.Select))
	add("select_secondary", selectFn("select-secondary", ed.SelectSecondary))
	add("swap", func(args) (zygo.Sexp, error) {
		return &zygo.SexpBool{Val: ed.SwapSelection()}, nil
	})

	// Transforms. Rotation is written in degrees.
	vecFn := func(name string, set func(v3.Vec) transform.Result, unit float64) builtin {
		return func(a args) (zygo.Sexp, error) {
			v, err := a.floats(name, "x", "y", "z")
			if err != nil {
				return zygo.SexpNull, err
			}
			return status(name, set(v3.Vec{X: v[0] * unit, Y: v[1] * unit, Z: v[2] * unit}))
		}
	}
	add("move", vecFn("move", ed.SetPosition, 1))
	add("rotate", vecFn("rotate", ed.SetRotation, math.Pi/180))
	add("scale", vecFn("scale", ed.SetScale, 1))
	add("reset", func(args) (zygo.Sexp, error) {
		return status("reset", ed.ResetTransform())
	})

	// (nudge :translateX -1) performs one stepped operation. The keyword
	// names the operation and its value, when given, the direction.
	add("nudge", func(a args) (zygo.Sexp, error) {
		op, dir, err := nudgeArgs(a)
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := ed.ApplyTransform(op, dir)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nudge: %w", err)
		}
		return status("nudge", r)
	})

	// Booleans on the primary and secondary selection.
	for name, op := range map[string]kernel.Op{
		"union":     kernel.OpUnion,
		"subtract":  kernel.OpSubtract,
		"intersect": kernel.OpIntersect,
	} {
		add(name, func(args) (zygo.Sexp, error) {
			return created(ed.Combine(ctx, op))
		})
	}

	// Scene.
	add("undo", func(args) (zygo.Sexp, error) {
		return &zygo.SexpBool{Val: ed.Undo()}, nil
	})
	add("redo", func(args) (zygo.Sexp, error) {
		return &zygo.SexpBool{Val: ed.Redo()}, nil
	})
	add("snap", func(args) (zygo.Sexp, error) {
		return &zygo.SexpBool{Val: ed.ToggleSnap()}, nil
	})
	add("render_mode", func(a args) (zygo.Sexp, error) {
		if len(a.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("render-mode requires a mode")
		}
		mode, err := toName(a.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("render-mode: %w", err)
		}
		if err := ed.SetRenderMode(mode); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})
}

func nudgeArgs(a args) (string, int, error) {
	var (
		op     string
		dirArg zygo.Sexp
		err    error
	)
	switch {
	case len(a.positional) > 0 && len(a.kw) == 0:
		if op, err = toName(a.positional[0]); err != nil {
			return "", 0, fmt.Errorf("nudge: %w", err)
		}
		if len(a.positional) > 1 {
			dirArg = a.positional[1]
		}
	case len(a.positional) == 0 && len(a.kw) == 1:
		for name, v := range a.kw {
			op = name
			if v != zygo.SexpNull {
				dirArg = v
			}
		}
	case len(a.positional) == 0 && len(a.kw) == 0:
		return "", 0, fmt.Errorf("nudge requires an operation such as :translateX")
	default:
		return "", 0, fmt.Errorf("nudge takes a single operation")
	}
	dir := 1
	if dirArg != nil {
		if dir, err = toInt(dirArg); err != nil {
			return "", 0, fmt.Errorf("nudge: direction: %w", err)
		}
	}
	return op, dir, nil
}

// status maps a transform result to a console value: the model index, or
// an error when nothing was selected or the change was rejected.
func status(name string, r transform.Result) (zygo.Sexp, error) {
	switch r.Status {
	case transform.NoSelection:
		return zygo.SexpNull, fmt.Errorf("%s: %w", name, editor.ErrNoSelection)
	case transform.Rejected:
		return zygo.SexpNull, fmt.Errorf("%s: rejected: %s", name, r.Reason)
	}
	return &zygo.SexpInt{Val: int64(r.Index)}, nil
}

// toFloats reads a list or array of numbers.
func toFloats(s zygo.Sexp) ([]float64, error) {
	var items []zygo.Sexp
	switch v := s.(type) {
	case *zygo.SexpArray:
		items = v.Val
	case *zygo.SexpPair:
		var err error
		if items, err = zygo.ListToArray(v); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("expected a list of numbers, got %s", s.SexpString(nil))
	}
	out := make([]float64, len(items))
	for i, item := range items {
		v, err := toFloat64(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
