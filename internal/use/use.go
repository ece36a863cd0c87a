// Package use implements the use resolver (spec.md §4.4): it traces every
// `use` tree to the concrete set of node indices it imports, re-entering
// sibling `use` branches on demand and terminating via the resolved_uses
// guard (spec.md §4.4.2).
package use

import (
	"github.com/rhdl/rhdlc/internal/ast"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/resgraph"
	"github.com/rhdl/rhdlc/internal/source"
	"github.com/rhdl/rhdlc/internal/token"
	"github.com/rhdl/rhdlc/internal/visibility"
)

type resolver struct {
	g        *resgraph.Graph
	diags    *diagnostic.List
	resolved map[resgraph.NodeID]bool
	visiting map[resgraph.NodeID]bool
}

// tracingContext mirrors the spec's TracingContext: state shared across
// one use tree's recursive descent (spec.md §4.4).
type tracingContext struct {
	root            resgraph.NodeID
	dest            resgraph.NodeID
	hasLeadingColon bool
	previousIdents  []string
}

// Resolve runs the use resolver over every `use` branch in g, in node
// order (source order, since the graph builder appends depth-first).
func Resolve(g *resgraph.Graph, diags *diagnostic.List) {
	r := &resolver{g: g, diags: diags, resolved: map[resgraph.NodeID]bool{}, visiting: map[resgraph.NodeID]bool{}}
	for i := range g.Nodes {
		id := resgraph.NodeID(i)
		if g.Nodes[id].Kind == resgraph.KindUse {
			r.resolveUse(id)
		}
	}
}

// resolveUse resolves one `use` branch, guarded by resolved_uses and a
// per-branch visiting flag (spec.md §4.4's re-entry guard).
func (r *resolver) resolveUse(u resgraph.NodeID) {
	if r.resolved[u] || r.visiting[u] {
		return
	}
	r.visiting[u] = true

	node := r.g.Node(u)
	scope := r.g.Parent(u)
	leadingColon := hasLeadingColon(node.UseTree)
	ctx := &tracingContext{root: r.g.RootOf(u), dest: u, hasLeadingColon: leadingColon}
	if leadingColon {
		scope = ctx.root
	}
	if node.UseTree != nil {
		r.walk(ctx, node.UseTree, scope, u, false)
	}

	r.visiting[u] = false
	r.resolved[u] = true
}

func hasLeadingColon(t ast.UseTree) bool {
	p, ok := t.(*ast.UsePath)
	return ok && p.Segment.Text == ""
}

func (r *resolver) walk(ctx *tracingContext, tree ast.UseTree, scope, parent resgraph.NodeID, inGroup bool) {
	switch t := tree.(type) {
	case *ast.UsePath:
		r.walkPath(ctx, t, scope, parent, inGroup)
	case *ast.UseName:
		r.resolveLeaf(ctx, t.Ident, t.Ident, scope, parent, inGroup, t.Span)
	case *ast.UseRename:
		r.resolveLeaf(ctx, t.Ident, t.Rename, scope, parent, inGroup, t.Span)
	case *ast.UseGlob:
		r.resolveGlob(ctx, t, scope, parent)
	case *ast.UseGroup:
		for _, item := range t.Items {
			r.walk(ctx, item, scope, parent, true)
		}
	}
}

func (r *resolver) walkPath(ctx *tracingContext, t *ast.UsePath, scope, parent resgraph.NodeID, inGroup bool) {
	if t.Segment.Text == "" {
		// Leading `::`: recurse at the same scope, marker consumed.
		r.walk(ctx, t.Rest, scope, parent, inGroup)
		return
	}
	node := r.g.Node(parent)
	name := t.Segment.Name()

	switch name {
	case "self", "super", "crate":
		if ctx.hasLeadingColon {
			r.diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeGlobalPathCannotHaveSpecialIdent,
				Message:  "a path starting with `::` cannot use `" + name + "`",
				File:     node.File,
				Primary:  diagnostic.Ref{Span: t.Segment.Span},
			})
			return
		}
		if len(ctx.previousIdents) > 0 && !(name == "super" && allSuper(ctx.previousIdents)) {
			r.diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeSpecialIdentNotAtStartOfPath,
				Message:  "`" + name + "` must be the first path segment",
				File:     node.File,
				Primary:  diagnostic.Ref{Span: t.Segment.Span},
			})
			return
		}
		var next resgraph.NodeID
		switch name {
		case "self":
			next = scope
		case "crate":
			next = ctx.root
		case "super":
			p := r.g.Parent(scope)
			if p == resgraph.NoParent {
				r.diags.Add(&diagnostic.Diagnostic{
					Severity: diagnostic.Error,
					Code:     diagnostic.CodeTooManySupers,
					Message:  "`super` goes past the root",
					File:     node.File,
					Primary:  diagnostic.Ref{Span: t.Segment.Span},
				})
				return
			}
			next = p
		}
		ctx.previousIdents = append(ctx.previousIdents, name)
		r.walk(ctx, t.Rest, next, parent, inGroup)
	default:
		matches := r.findChildren(ctx, scope, name, true, t.Segment.Span)
		if len(matches) != 1 {
			return
		}
		ctx.previousIdents = append(ctx.previousIdents, name)
		r.walk(ctx, t.Rest, matches[0], parent, inGroup)
	}
}

func (r *resolver) resolveLeaf(ctx *tracingContext, ident, exposed ast.Ident, scope, parent resgraph.NodeID, inGroup bool, span token.Span) {
	node := r.g.Node(parent)
	name := ident.Name()

	var targets []resgraph.NodeID
	if name == "self" {
		if !inGroup {
			r.diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeSelfNameNotInGroup,
				Message:  "`self` import must be inside a `{ ... }` group",
				File:     node.File,
				Primary:  diagnostic.Ref{Span: ident.Span},
			})
			return
		}
		targets = []resgraph.NodeID{scope}
	} else {
		targets = r.findChildren(ctx, scope, name, false, ident.Span)
	}

	kind := resgraph.KindUseName
	exposedName := exposed.Name()
	if exposed.Text != ident.Text {
		kind = resgraph.KindUseRename
	}
	id := r.g.NewNode(resgraph.Node{
		Kind:    kind,
		Parent:  parent,
		Name:    exposedName,
		Ident:   exposed,
		Span:    span,
		File:    node.File,
		Targets: targets,
	})
	r.g.AddNamedChild(parent, exposedName, id)
}

func (r *resolver) resolveGlob(ctx *tracingContext, t *ast.UseGlob, scope, parent resgraph.NodeID) {
	node := r.g.Node(parent)
	atEntry := len(ctx.previousIdents) == 0
	afterSelf := len(ctx.previousIdents) > 0 && ctx.previousIdents[len(ctx.previousIdents)-1] == "self"
	if atEntry || afterSelf {
		r.diags.Add(&diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeGlobAtEntry,
			Message:  "`*` cannot stand at the start of a path or immediately after `self`",
			File:     node.File,
			Primary:  diagnostic.Ref{Span: t.Span},
		})
		return
	}
	id := r.g.NewNode(resgraph.Node{
		Kind:      resgraph.KindUseGlob,
		Parent:    parent,
		Span:      t.Span,
		File:      node.File,
		GlobScope: scope,
	})
	r.g.AddAnonChild(parent, id)
}

func allSuper(idents []string) bool {
	for _, s := range idents {
		if s != "super" {
			return false
		}
	}
	return len(idents) > 0
}

// findChildren is the matching primitive described in spec.md §4.4.1: it
// combines a local set (named children of s, plus names reached through
// s's anonymous `use` children including their globs) with a global set
// (other roots, entry segment only), filters both by visibility, and
// falls back to a second local-set pass — which already performs the
// glob traversal the spec calls out as a distinct "glob_only" stage — when
// both come up empty.
func (r *resolver) findChildren(ctx *tracingContext, s resgraph.NodeID, id string, pathsOnly bool, span token.Span) []resgraph.NodeID {
	isEntry := len(ctx.previousIdents) == 0

	var local []resgraph.NodeID
	if !(ctx.hasLeadingColon && isEntry) {
		local = dedup(r.localSet(s, id, pathsOnly, map[resgraph.NodeID]bool{}))
	}
	var global []resgraph.NodeID
	if isEntry {
		global = dedup(r.globalSet(ctx, id, pathsOnly))
	}

	localVis := r.filterVisible(ctx.dest, local)
	globalVis := r.filterVisible(ctx.dest, global)

	file := r.fileFor(s)

	switch {
	case len(localVis) > 0 && len(globalVis) > 0:
		r.diags.Add(&diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeDisambiguation,
			Message:  "`" + id + "` is ambiguous between a local and an external item",
			File:     file,
			Primary:  diagnostic.Ref{Span: span},
		})
		return nil
	case len(localVis) > 0:
		return localVis
	case len(globalVis) > 0:
		return globalVis
	}

	if len(local) > 0 || len(global) > 0 {
		r.diags.Add(&diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeItemVisibility,
			Message:  "`" + id + "` exists here but is not visible",
			File:     file,
			Primary:  diagnostic.Ref{Span: span},
		})
		return nil
	}

	fallback := r.filterVisible(ctx.dest, dedup(r.localSet(s, id, pathsOnly, map[resgraph.NodeID]bool{})))
	if len(fallback) > 0 {
		return fallback
	}

	hint := diagnostic.HintItem
	if pathsOnly {
		hint = diagnostic.HintInternalNamedChildOrExternalNamedScope
	}
	r.diags.Add(&diagnostic.Diagnostic{
		Severity: diagnostic.Error,
		Code:     diagnostic.CodeUnresolvedItem,
		Message:  "cannot find `" + id + "` in this scope",
		File:     file,
		Primary:  diagnostic.Ref{Span: span},
		Hint:     hint,
	})
	return nil
}

func (r *resolver) localSet(s resgraph.NodeID, id string, pathsOnly bool, visitedGlobs map[resgraph.NodeID]bool) []resgraph.NodeID {
	var out []resgraph.NodeID
	for _, c := range r.g.Node(s).Children[id] {
		if pathsOnly && !r.g.Node(c).Kind.IsUsePathValid() {
			continue
		}
		out = append(out, c)
	}
	for _, u := range r.g.Node(s).Anon {
		if r.g.Node(u).Kind != resgraph.KindUse {
			continue
		}
		r.resolveUse(u)
		for _, leaf := range r.g.Node(u).Children[id] {
			out = append(out, r.g.Node(leaf).Targets...)
		}
		for _, glob := range r.g.Node(u).Anon {
			if r.g.Node(glob).Kind != resgraph.KindUseGlob {
				continue
			}
			gs := r.g.Node(glob).GlobScope
			if visitedGlobs[gs] {
				continue
			}
			visitedGlobs[gs] = true
			out = append(out, r.localSet(gs, id, pathsOnly, visitedGlobs)...)
		}
	}
	return out
}

func (r *resolver) globalSet(ctx *tracingContext, id string, pathsOnly bool) []resgraph.NodeID {
	var out []resgraph.NodeID
	for _, root := range r.g.Roots {
		if root == ctx.root {
			continue
		}
		for _, c := range r.g.Node(root).Children[id] {
			if pathsOnly && !r.g.Node(c).Kind.IsUsePathValid() {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

func (r *resolver) filterVisible(dest resgraph.NodeID, nodes []resgraph.NodeID) []resgraph.NodeID {
	var out []resgraph.NodeID
	for _, n := range nodes {
		if visibility.IsTargetVisible(r.g, dest, n) {
			out = append(out, n)
		}
	}
	return out
}

func (r *resolver) fileFor(s resgraph.NodeID) *source.File { return r.g.Node(s).File }

func dedup(ids []resgraph.NodeID) []resgraph.NodeID {
	if len(ids) < 2 {
		return ids
	}
	seen := map[resgraph.NodeID]bool{}
	var out []resgraph.NodeID
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
