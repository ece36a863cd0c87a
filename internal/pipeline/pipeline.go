// Package pipeline drives the full resolution pipeline (spec.md §2) in
// order: file finder, graph builder, visibility solver, use resolver,
// conflict checker, type-existence checker, raw-identifier validator.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/rhdl/rhdlc/internal/conflict"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/filegraph"
	"github.com/rhdl/rhdlc/internal/rawident"
	"github.com/rhdl/rhdlc/internal/resgraph"
	"github.com/rhdl/rhdlc/internal/source"
	"github.com/rhdl/rhdlc/internal/typeexist"
	"github.com/rhdl/rhdlc/internal/use"
	"github.com/rhdl/rhdlc/internal/visibility"
)

// Context owns one run of the pipeline end to end: a single root source,
// the diagnostics it accumulates, and the intermediate graphs built along
// the way. RunID identifies the run; it appears only in --dump-graph
// output, not in the rendered diagnostics.
type Context struct {
	RunID string

	Diags *diagnostic.List
	Files *filegraph.FileGraph
	Graph *resgraph.Graph
}

// New prepares a Context for a single root source. The run ID is generated
// here, once, so it stays stable for any later --dump-graph rendering of
// the same run.
func New() *Context {
	return &Context{
		RunID: uuid.NewString(),
		Diags: &diagnostic.List{},
	}
}

// Run executes every phase against root in spec.md §2's order. It never
// aborts early on a phase that reports diagnostics — only a hard failure
// building the file graph (an unreadable root, for instance) stops the
// run, since every later phase assumes a graph exists to walk.
func (c *Context) Run(root source.Resolution) error {
	fg, err := filegraph.Build(root, c.Diags)
	if err != nil {
		return err
	}
	c.Files = fg

	g := resgraph.Build(fg, c.Diags)
	c.Graph = g

	visibility.Solve(g, c.Diags)
	use.Resolve(g, c.Diags)
	conflict.Check(g, c.Diags)
	typeexist.Check(g, c.Diags)
	rawident.Check(g, c.Diags)

	return nil
}
