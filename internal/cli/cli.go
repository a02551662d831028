// Package cli parses command-line arguments into an app configuration.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/nodefn/internal/app"
)

// ExitError is an error carrying a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// argList collects repeated -arg name=value flags.
type argList map[string]string

func (a argList) String() string {
	parts := make([]string, 0, len(a))
	for k, v := range a {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (a argList) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("argument %q is not of the form name=value", s)
	}
	a[name] = value
	return nil
}

// Parse processes command-line arguments. It returns the populated config,
// a boolean indicating the program should exit cleanly (help or no input),
// or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("nodefn", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
nodefn - compiles node graphs into callable functions and runs them.

Usage:
  nodefn [options] [GRAPH_PATH]

Arguments:
  GRAPH_PATH
    Path to an .hcl graph definition file.

Options:
`)
		flagSet.PrintDefaults()
	}

	graphFlag := flagSet.String("graph", "", "Path to the graph definition file.")
	gFlag := flagSet.String("g", "", "Path to the graph definition file (shorthand).")
	nameFlag := flagSet.String("name", "", "Graph to compile when the file defines several.")
	args2 := argList{}
	flagSet.Var(args2, "arg", "Formal input value as name=value. May be repeated.")
	dotFlag := flagSet.Bool("dot", false, "Print the dependency graph in DOT format instead of running.")
	svgFlag := flagSet.String("svg", "", "Render the dependency graph to the given SVG file instead of running.")
	programFlag := flagSet.Bool("program", false, "Execute via the lowered register program when available.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	switch {
	case *graphFlag != "":
		path = *graphFlag
	case *gFlag != "":
		path = *gFlag
	case flagSet.NArg() > 0:
		path = flagSet.Arg(0)
	}
	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	return &app.Config{
		GraphPath:     path,
		GraphName:     *nameFlag,
		Args:          args2,
		EmitDOT:       *dotFlag,
		SVGPath:       *svgFlag,
		PreferProgram: *programFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
	}, false, nil
}
