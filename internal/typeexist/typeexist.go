// Package typeexist implements the type-existence checker (spec.md §4.5):
// for every type-path and trait-bound path reachable from the AST items
// the graph builder recorded, it confirms the path resolves to exactly one
// visible entity of the expected kind.
package typeexist

import (
	"github.com/rhdl/rhdlc/internal/ast"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/resgraph"
	"github.com/rhdl/rhdlc/internal/visibility"
)

// Check walks every node's originating item for type-path and
// trait-bound-path occurrences and resolves each one.
func Check(g *resgraph.Graph, diags *diagnostic.List) {
	for i := range g.Nodes {
		n := resgraph.NodeID(i)
		node := g.Node(n)
		switch it := node.Item.(type) {
		case *ast.FnDecl:
			for _, p := range it.Params {
				checkType(g, diags, n, p.Type)
			}
		case *ast.ConstDecl:
			checkType(g, diags, n, it.Type)
		case *ast.TypeDecl:
			if len(it.Alias.Segments) > 0 {
				checkType(g, diags, n, it.Alias)
			}
		case *ast.ImplDecl:
			if it.IsTraitImpl() {
				checkTrait(g, diags, n, it.TraitPath)
			}
			checkType(g, diags, n, it.SelfType)
		}
		if node.Kind == resgraph.KindField {
			if f, ok := fieldType(g, n); ok {
				checkType(g, diags, n, f)
			}
		}
	}
}

// fieldType recovers the AST Field.Type for a KindField node; fields are
// not backed by node.Item (only by their parent struct's item, or by the
// enum item above their parent variant), so this re-locates the matching
// ast.Field by identifier.
func fieldType(g *resgraph.Graph, n resgraph.NodeID) (ast.Path, bool) {
	node := g.Node(n)
	parent := g.Node(g.Parent(n))
	if en, ok := g.Node(parent.Parent).Item.(*ast.EnumDecl); ok && parent.Kind == resgraph.KindVariant {
		for _, v := range en.Variants {
			for _, f := range v.Fields {
				if v.Ident.Text == parent.Ident.Text && f.Ident.Text == node.Ident.Text {
					return f.Type, true
				}
			}
		}
	}
	switch it := parent.Item.(type) {
	case *ast.StructDecl:
		for _, f := range it.Fields {
			if f.Ident.Text == node.Ident.Text {
				return f.Type, true
			}
		}
	}
	return ast.Path{}, false
}

func genericsInScope(g *resgraph.Graph, n resgraph.NodeID) map[string]bool {
	params := map[string]bool{}
	for _, anc := range g.Ancestry(n) {
		gen := g.Node(anc).Generics
		for _, tp := range gen.TypeParams {
			params[tp.Name()] = true
		}
	}
	return params
}

func hasTraitOrImplAncestor(g *resgraph.Graph, n resgraph.NodeID) bool {
	for _, anc := range g.Ancestry(n) {
		k := g.Node(anc).Kind
		if k == resgraph.KindTrait || k == resgraph.KindImpl {
			return true
		}
	}
	return false
}

func checkType(g *resgraph.Graph, diags *diagnostic.List, n resgraph.NodeID, path ast.Path) {
	resolve(g, diags, n, path, false)
}

func checkTrait(g *resgraph.Graph, diags *diagnostic.List, n resgraph.NodeID, path ast.Path) {
	resolve(g, diags, n, path, true)
}

func resolve(g *resgraph.Graph, diags *diagnostic.List, n resgraph.NodeID, path ast.Path, wantTrait bool) {
	if len(path.Segments) == 0 {
		return
	}
	if len(path.Segments) == 1 {
		name := path.Segments[0].Name()
		if name == "Self" && hasTraitOrImplAncestor(g, n) {
			return
		}
		if !wantTrait && genericsInScope(g, n)[name] {
			return
		}
	}

	// Lookup starts in the nearest enclosing mod or root: the struct, enum,
	// impl or trait a path is written in is not itself a naming scope.
	scope := g.Parent(n)
	for !g.Node(scope).Kind.IsUsePathValid() {
		scope = g.Parent(scope)
	}
	for i, seg := range path.Segments {
		name := seg.Name()
		last := i == len(path.Segments)-1

		var matches []resgraph.NodeID
		for _, c := range g.Node(scope).Children[name] {
			if !last && !g.Node(c).Kind.IsTypePathValid() {
				continue
			}
			matches = append(matches, c)
		}
		// A same-named use leaf's resolved targets also count, so types
		// reached through an import are found without re-deriving the
		// full use-resolution traversal here.
		for _, u := range g.Node(scope).Anon {
			if g.Node(u).Kind != resgraph.KindUse {
				continue
			}
			for _, leaf := range g.Node(u).Children[name] {
				matches = append(matches, g.Node(leaf).Targets...)
			}
		}

		var visible []resgraph.NodeID
		for _, m := range matches {
			if visibility.IsTargetVisible(g, n, m) {
				visible = append(visible, m)
			}
		}

		if last {
			var ofKind []resgraph.NodeID
			for _, m := range visible {
				if wantTrait && g.Node(m).Kind.IsTrait() {
					ofKind = append(ofKind, m)
				}
				if !wantTrait && g.Node(m).Kind.IsType() {
					ofKind = append(ofKind, m)
				}
			}
			switch len(ofKind) {
			case 0:
				hint := diagnostic.HintType
				if wantTrait {
					hint = diagnostic.HintTrait
				}
				diags.Add(&diagnostic.Diagnostic{
					Severity: diagnostic.Error,
					Code:     diagnostic.CodeUnresolvedItem,
					Message:  "cannot find `" + name + "` in this scope",
					File:     g.Node(n).File,
					Primary:  diagnostic.Ref{Span: seg.Span},
					Hint:     hint,
				})
			case 1:
				// resolved
			default:
				diags.Add(&diagnostic.Diagnostic{
					Severity: diagnostic.Error,
					Code:     diagnostic.CodeDisambiguation,
					Message:  "`" + name + "` is ambiguous",
					File:     g.Node(n).File,
					Primary:  diagnostic.Ref{Span: seg.Span},
				})
			}
			return
		}

		switch len(visible) {
		case 0:
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeUnresolvedItem,
				Message:  "cannot find `" + name + "` in this scope",
				File:     g.Node(n).File,
				Primary:  diagnostic.Ref{Span: seg.Span},
				Hint:     diagnostic.HintInternalNamedChildScope,
			})
			return
		case 1:
			scope = visible[0]
		default:
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeDisambiguation,
				Message:  "`" + name + "` is ambiguous",
				File:     g.Node(n).File,
				Primary:  diagnostic.Ref{Span: seg.Span},
			})
			return
		}
	}
}
