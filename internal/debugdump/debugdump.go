// Package debugdump renders a resolution graph for the `--dump-graph`
// CLI flag (spec.md §6: "a debug build may emit a graph rendering... for
// inspection only" — never parsed back in, never part of the stable
// interface).
package debugdump

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kr/pretty"
	"gopkg.in/yaml.v3"

	"github.com/rhdl/rhdlc/internal/resgraph"
)

// Format selects the dump's rendering.
type Format int

const (
	// FormatPretty is kr/pretty's Go-syntax-like rendering, the default
	// when --dump-graph is given with no value.
	FormatPretty Format = iota
	FormatJSON
	FormatYAML
)

// ParseFormat maps a --dump-graph flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "pretty":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("unknown --dump-graph format %q (want pretty, json, or yaml)", s)
	}
}

// node is the exported shape one resgraph.Node is flattened to. The real
// Node carries a *source.File and an ast.Item, neither of which marshal
// usefully (one holds the whole source text, the other has a recursive
// interface shape json/yaml can't round-trip), so the dump names the file
// by its display path and leaves the item out.
type node struct {
	ID       int      `json:"id" yaml:"id"`
	Kind     string   `json:"kind" yaml:"kind"`
	Parent   int      `json:"parent" yaml:"parent"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	File     string   `json:"file,omitempty" yaml:"file,omitempty"`
	Children []child  `json:"children,omitempty" yaml:"children,omitempty"`
	Anon     []int    `json:"anon,omitempty" yaml:"anon,omitempty"`
	Targets  []int    `json:"targets,omitempty" yaml:"targets,omitempty"`
	Export   *exportV `json:"export,omitempty" yaml:"export,omitempty"`
}

type child struct {
	Name string `json:"name" yaml:"name"`
	IDs  []int  `json:"ids" yaml:"ids"`
}

type exportV struct {
	Defined bool `json:"defined" yaml:"defined"`
	Beyond  bool `json:"beyond" yaml:"beyond"`
	Dest    int  `json:"dest" yaml:"dest"`
}

type dump struct {
	RunID string `json:"run_id" yaml:"run_id"`
	Roots []int  `json:"roots" yaml:"roots"`
	Nodes []node `json:"nodes" yaml:"nodes"`
}

func build(runID string, g *resgraph.Graph) dump {
	d := dump{RunID: runID, Roots: make([]int, len(g.Roots))}
	for i, r := range g.Roots {
		d.Roots[i] = int(r)
	}
	for i := range g.Nodes {
		n := g.Node(resgraph.NodeID(i))
		dn := node{
			ID:     i,
			Kind:   n.Kind.String(),
			Parent: int(n.Parent),
			Name:   n.Name,
		}
		if n.File != nil {
			dn.File = n.File.DisplayPath()
		}
		for name, ids := range n.Children {
			c := child{Name: name}
			for _, id := range ids {
				c.IDs = append(c.IDs, int(id))
			}
			dn.Children = append(dn.Children, c)
		}
		for _, a := range n.Anon {
			dn.Anon = append(dn.Anon, int(a))
		}
		for _, t := range n.Targets {
			dn.Targets = append(dn.Targets, int(t))
		}
		if exp, ok := g.Exports[resgraph.NodeID(i)]; ok {
			dn.Export = &exportV{Defined: exp.Defined, Beyond: exp.Beyond, Dest: int(exp.Dest)}
		}
		d.Nodes = append(d.Nodes, dn)
	}
	return d
}

// Write renders g to w in the requested format, stamped with runID (the
// rendered diagnostics do not carry it).
func Write(w io.Writer, runID string, g *resgraph.Graph, f Format) error {
	d := build(runID, g)
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(d)
	default:
		_, err := fmt.Fprintln(w, pretty.Sprint(d))
		return err
	}
}
