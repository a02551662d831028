package app

// Config is the fully resolved application configuration.
type Config struct {
	// GraphPath is the .hcl file holding the graph definitions.
	GraphPath string
	// GraphName selects one graph when the file defines several. Empty
	// means the file must define exactly one.
	GraphName string
	// Args supplies formal input values by name, still in text form.
	Args map[string]string

	// EmitDOT prints the dependency graph instead of running.
	EmitDOT bool
	// SVGPath renders the dependency graph to this file instead of running.
	SVGPath string
	// PreferProgram executes via the lowered register program when the
	// whole graph supports code generation.
	PreferProgram bool

	LogFormat string
	LogLevel  string
}
