// Package visibility implements the visibility solver (spec.md §4.3): for
// every node carrying a surface modifier, it computes an export
// destination, and exposes the is_target_visible predicate shared by the
// use resolver and the type-existence checker.
package visibility

import (
	"github.com/rhdl/rhdlc/internal/ast"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/resgraph"
)

// Solve computes resgraph.Export for every node in g, recording errors for
// malformed `pub(in path)` restrictions into diags.
func Solve(g *resgraph.Graph, diags *diagnostic.List) {
	for i := range g.Nodes {
		solveNode(g, diags, resgraph.NodeID(i))
	}
}

func solveNode(g *resgraph.Graph, diags *diagnostic.List, n resgraph.NodeID) {
	node := &g.Nodes[n]
	switch node.Vis.Kind {
	case ast.VisInherited:
		// apply_visibility's Inherited arm exports to the node's own
		// parent, same as pub(self) below — is_target_visible's rule 4
		// fallback then only admits d's that are that parent or nested
		// under it.
		g.Exports[n] = resgraph.Export{Defined: true, Dest: node.Parent}
	case ast.VisPublic:
		gp := g.Grandparent(n)
		if gp == resgraph.NoParent {
			g.Exports[n] = resgraph.Export{Defined: true, Beyond: true}
		} else {
			g.Exports[n] = resgraph.Export{Defined: true, Dest: gp}
		}
	case ast.VisCrate:
		g.Exports[n] = resgraph.Export{Defined: true, Dest: g.RootOf(n)}
	case ast.VisRestricted:
		switch node.Vis.Restriction {
		case ast.RestrictSelf:
			g.Exports[n] = resgraph.Export{Defined: true, Dest: node.Parent}
		case ast.RestrictSuper:
			gp := g.Grandparent(n)
			if gp == resgraph.NoParent {
				g.Exports[n] = resgraph.Export{Defined: true, Beyond: true}
			} else {
				g.Exports[n] = resgraph.Export{Defined: true, Dest: gp}
			}
		case ast.RestrictIn:
			if exp, ok := solveInPath(g, diags, n, node.Vis.Path); ok {
				g.Exports[n] = exp
			}
		}
	}
}

// solveInPath resolves a `pub(in path)` restriction (spec.md §4.3's table
// row, and its following paragraph of path rules).
func solveInPath(g *resgraph.Graph, diags *diagnostic.List, n resgraph.NodeID, path ast.Path) (resgraph.Export, bool) {
	node := &g.Nodes[n]
	segs := path.Segments
	if len(segs) == 0 {
		return resgraph.Export{}, false
	}

	var cur resgraph.NodeID
	idx := 0
	beyond := false

	switch segs[0].Name() {
	case "self":
		if len(segs) > 1 {
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeNonAncestral,
				Message:  "`pub(in self)` does not take further path segments",
				File:     node.File,
				Primary:  diagnostic.Ref{Span: segs[1].Span},
			})
			return resgraph.Export{}, false
		}
		return resgraph.Export{Defined: true, Dest: node.Parent}, true
	case "crate":
		cur = g.RootOf(n)
		idx = 1
	case "super":
		cur = g.Parent(n)
		for idx < len(segs) && segs[idx].Name() == "super" {
			if beyond {
				diags.Add(&diagnostic.Diagnostic{
					Severity: diagnostic.Error,
					Code:     diagnostic.CodeTooManySupers,
					Message:  "too many leading `super` keywords",
					File:     node.File,
					Primary:  diagnostic.Ref{Span: segs[idx].Span},
				})
				return resgraph.Export{}, false
			}
			p := g.Parent(cur)
			if p == resgraph.NoParent {
				beyond = true
			} else {
				cur = p
			}
			idx++
		}
	default:
		diags.Add(&diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeSpecialIdentNotAtStartOfPath,
			Message:  "`pub(in path)` must begin with `crate`, `self`, or `super`",
			File:     node.File,
			Primary:  diagnostic.Ref{Span: segs[0].Span},
		})
		return resgraph.Export{}, false
	}

	if idx == len(segs) {
		if beyond {
			return resgraph.Export{Defined: true, Beyond: true}, true
		}
		return resgraph.Export{Defined: true, Dest: cur}, true
	}
	if beyond {
		diags.Add(&diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeUnresolvedItem,
			Message:  "path escapes every enclosing root",
			File:     node.File,
			Primary:  diagnostic.Ref{Span: segs[idx].Span},
			Hint:     diagnostic.HintExternalNamedScope,
		})
		return resgraph.Export{}, false
	}

	for _, seg := range segs[idx:] {
		name := seg.Name()
		children := g.Nodes[cur].Children[name]
		if len(children) == 0 {
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeUnresolvedItem,
				Message:  "cannot find `" + name + "` in this scope",
				File:     node.File,
				Primary:  diagnostic.Ref{Span: seg.Span},
				Hint:     diagnostic.HintInternalNamedChildScope,
			})
			return resgraph.Export{}, false
		}

		var match resgraph.NodeID = -1
		sawWrongKind := false
		for _, c := range children {
			if !g.Nodes[c].Kind.IsUsePathValid() {
				sawWrongKind = true
				continue
			}
			if !g.IsAncestor(c, n) {
				continue
			}
			match = c
			break
		}
		if match == -1 && sawWrongKind {
			// The name exists but resolves to something other than a mod
			// or root — `pub(in path)` can only ever name a scope, so this
			// is a distinct error from "no such ancestor at all".
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeIncorrectVisibility,
				Message:  "`pub(in " + name + ")` must name a module, not `" + name + "`",
				File:     node.File,
				Primary:  diagnostic.Ref{Span: seg.Span},
			})
			return resgraph.Export{}, false
		}
		if match == -1 {
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeNonAncestral,
				Message:  "`pub(in " + name + ")` does not name an ancestor module",
				File:     node.File,
				Primary:  diagnostic.Ref{Span: seg.Span},
				Hint:     diagnostic.HintInternalNamedChildScope,
			})
			return resgraph.Export{}, false
		}
		if !IsTargetVisible(g, g.Parent(n), match) {
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeScopeVisibility,
				Message:  "`pub(in " + name + ")` names a scope not visible here",
				File:     node.File,
				Primary:  diagnostic.Ref{Span: seg.Span},
			})
			return resgraph.Export{}, false
		}
		cur = match
	}
	return resgraph.Export{Defined: true, Dest: cur}, true
}

// IsTargetVisible implements the is_target_visible(d, t) predicate (spec.md
// §4.3): can node d's scope see node t?
//
// The original builds d's and target_parent's ancestries as STRICT
// (excluding the starting node itself) before testing containment of the
// recorded export destination. That distinction only bites on the
// target-parent disjunct below (the strictAncestor call): an Inherited or pub(self) item exports to its own
// parent, so a reflexive ancestor test would trivially admit every d —
// defeating the whole check. strictAncestor walks from n's parent, never
// n itself, to match.
func IsTargetVisible(g *resgraph.Graph, d, t resgraph.NodeID) bool {
	tParent := g.Nodes[t].Parent
	if tParent == resgraph.NoParent {
		return true
	}
	if g.IsAncestor(t, d) {
		return true
	}
	if g.IsAncestor(tParent, d) {
		return true
	}
	exp, ok := g.Exports[t]
	if !ok || !exp.Defined {
		return false
	}
	if exp.Beyond {
		return true
	}
	return strictAncestor(g, exp.Dest, tParent) || g.IsAncestor(exp.Dest, d)
}

// strictAncestor reports whether anc is an ancestor of n, not counting n
// itself — the original's build_ancestry excludes its starting node.
func strictAncestor(g *resgraph.Graph, anc, n resgraph.NodeID) bool {
	p := g.Nodes[n].Parent
	if p == resgraph.NoParent {
		return false
	}
	return g.IsAncestor(anc, p)
}
