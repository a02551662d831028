// Package app wires the loader, the kind registry, the compiler and the
// eager driver into the command-line application.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/nodefn/internal/compile"
	"github.com/vk/nodefn/internal/ctxlog"
	"github.com/vk/nodefn/internal/fn"
	"github.com/vk/nodefn/internal/hclgraph"
	"github.com/vk/nodefn/internal/kinds"
	"github.com/vk/nodefn/internal/registry"
	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/viz"
)

// App runs one compile-and-call cycle per invocation.
type App struct {
	outW io.Writer
	cfg  *Config
}

// NewApp assembles the application around the given output writer.
func NewApp(outW io.Writer, cfg *Config) *App {
	return &App{outW: outW, cfg: cfg}
}

// Run loads the graph file, compiles the selected graph and either renders
// its dependency graph or calls the compiled function with the configured
// arguments, printing every formal output.
func (a *App) Run(ctx context.Context) error {
	logger := newLogger(a.cfg.LogLevel, a.cfg.LogFormat, os.Stderr)
	ctx = ctxlog.WithLogger(ctx, logger)

	graphs, err := hclgraph.Load(ctx, a.cfg.GraphPath)
	if err != nil {
		return err
	}
	g, err := hclgraph.Find(graphs, a.cfg.GraphName)
	if err != nil {
		return err
	}

	reg := registry.New()
	kinds.RegisterAll(reg)

	f, err := compile.GenerateWith(ctx, g.Builder, reg, g.Name, compile.Options{
		PreferProgram: a.cfg.PreferProgram,
	})
	if err != nil {
		return err
	}
	defer f.Close()

	if a.cfg.EmitDOT || a.cfg.SVGPath != "" {
		return a.render(ctx, f)
	}
	return a.call(ctx, f)
}

func (a *App) render(ctx context.Context, f *fn.Function) error {
	dg, ok := compile.DependencyGraph(f)
	if !ok {
		return fmt.Errorf("compiled function carries no dependency graph")
	}
	dot := viz.ToDOT(dg)
	if a.cfg.EmitDOT {
		fmt.Fprint(a.outW, dot)
	}
	if a.cfg.SVGPath != "" {
		svg, err := viz.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.cfg.SVGPath, svg, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", a.cfg.SVGPath, err)
		}
	}
	return nil
}

func (a *App) call(ctx context.Context, f *fn.Function) error {
	in := f.NewInputTuple()
	inMeta := f.InputMeta()

	for name := range a.cfg.Args {
		if _, ok := inMeta.IndexOf(name); !ok {
			return fmt.Errorf("no formal input named %q, inputs are %v", name, inMeta.Names())
		}
	}
	for i := 0; i < inMeta.Len(); i++ {
		raw, ok := a.cfg.Args[inMeta.Name(i)]
		if !ok {
			return fmt.Errorf("missing value for input %q, pass -arg %s=...", inMeta.Name(i), inMeta.Name(i))
		}
		v, err := convert.Convert(cty.StringVal(raw), inMeta.Type(i))
		if err != nil {
			return fmt.Errorf("input %q: cannot convert %q to %s: %w",
				inMeta.Name(i), raw, inMeta.Type(i).FriendlyName(), err)
		}
		if err := in.Set(i, v); err != nil {
			return err
		}
	}

	out := f.NewOutputTuple()
	if err := fn.CallEager(ctx, f, in, out, trace.NewStack()); err != nil {
		return err
	}

	outMeta := f.OutputMeta()
	for j := 0; j < outMeta.Len(); j++ {
		v, err := out.Get(j)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.outW, "%s = %s\n", outMeta.Name(j), formatValue(v))
	}
	return nil
}

// formatValue renders a cty value for terminal output.
func formatValue(v cty.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case v.Type() == cty.String:
		return v.AsString()
	case v.Type() == cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case v.Type() == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	default:
		b, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return v.GoString()
		}
		return string(b)
	}
}
