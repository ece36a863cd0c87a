// Package conflict implements the conflict checker (spec.md §4.6): within
// every scope, it groups children by identifier and reports multiply
// defined names using the name-class table.
package conflict

import (
	"github.com/rhdl/rhdlc/internal/ast"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/resgraph"
	"github.com/rhdl/rhdlc/internal/source"
)

type nameClass int

const (
	classNone nameClass = iota
	classMod
	classFnConst
	classType
	classField
	classVariant
)

func classOf(k resgraph.Kind) nameClass {
	switch k {
	case resgraph.KindMod:
		return classMod
	case resgraph.KindFn, resgraph.KindConst:
		return classFnConst
	case resgraph.KindStruct, resgraph.KindEnum, resgraph.KindTrait, resgraph.KindType, resgraph.KindUseName, resgraph.KindUseRename:
		return classType
	case resgraph.KindField:
		return classField
	case resgraph.KindVariant:
		return classVariant
	default:
		// Root, Impl, Use (the branch), UseGlob: excluded from conflict
		// detection (spec.md §4.6's "Impl, UseGlob: never").
		return classNone
	}
}

// conflicts implements the §4.6 table: Mod/Crate and Fn/Const never
// conflict with each other, but each conflicts with itself and with the
// Struct/Enum/Trait/Type/UseName/UseRename class; Field and Variant only
// conflict within their own class.
func conflicts(a, b resgraph.Kind) bool {
	ca, cb := classOf(a), classOf(b)
	if ca == classNone || cb == classNone {
		return false
	}
	if ca == classField || cb == classField {
		return ca == classField && cb == classField
	}
	if ca == classVariant || cb == classVariant {
		return ca == classVariant && cb == classVariant
	}
	if ca == classMod && cb == classFnConst {
		return false
	}
	if ca == classFnConst && cb == classMod {
		return false
	}
	return true
}

// Check walks every node's Children map, reporting MultipleDefinitionError
// for each conflicting pair, and separately checks generics/parameter
// lists for repeated identifiers.
func Check(g *resgraph.Graph, diags *diagnostic.List) {
	for i := range g.Nodes {
		id := resgraph.NodeID(i)
		checkScope(g, diags, id)
		checkGenerics(g, diags, id)
		checkParams(g, diags, id)
	}
}

func checkScope(g *resgraph.Graph, diags *diagnostic.List, scope resgraph.NodeID) {
	node := g.Node(scope)
	for name, group := range node.Children {
		if len(group) < 2 {
			continue
		}
		claimed := map[resgraph.NodeID]bool{}
		for i := len(group) - 1; i >= 0; i-- {
			orig := group[i]
			if claimed[orig] {
				continue
			}
			for j := i - 1; j >= 0; j-- {
				dup := group[j]
				if claimed[dup] {
					continue
				}
				if !conflicts(g.Node(orig).Kind, g.Node(dup).Kind) {
					continue
				}
				claimed[dup] = true
				diags.Add(&diagnostic.Diagnostic{
					Severity: diagnostic.Error,
					Code:     diagnostic.CodeMultipleDefinition,
					Message:  "the name `" + name + "` is defined multiple times",
					File:     g.Node(dup).File,
					Primary:  diagnostic.Ref{Span: g.Node(dup).Span, Note: "redefined here"},
					Secondary: []diagnostic.Ref{
						{Span: g.Node(orig).Span, Note: "previous definition here"},
					},
				})
			}
		}
	}
}

func checkGenerics(g *resgraph.Graph, diags *diagnostic.List, n resgraph.NodeID) {
	node := g.Node(n)
	if len(node.Generics.TypeParams) == 0 && len(node.Generics.Lifetimes) == 0 {
		return
	}
	seen := map[string]ast.Ident{}
	checkIdentList(diags, node.File, node.Generics.TypeParams, seen)
	checkIdentList(diags, node.File, node.Generics.Lifetimes, seen)
}

func checkParams(g *resgraph.Graph, diags *diagnostic.List, n resgraph.NodeID) {
	if g.Node(n).Kind != resgraph.KindFn {
		return
	}
	fn, ok := g.Node(n).Item.(*ast.FnDecl)
	if !ok {
		return
	}
	seen := map[string]ast.Ident{}
	for _, p := range fn.Params {
		name := p.Ident.Name()
		if name == "" || name == "_" {
			continue
		}
		if prev, ok := seen[name]; ok {
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeMultipleDefinition,
				Message:  "the binding `" + name + "` is defined multiple times",
				File:     g.Node(n).File,
				Primary:  diagnostic.Ref{Span: p.Ident.Span, Note: "redefined here"},
				Secondary: []diagnostic.Ref{
					{Span: prev.Span, Note: "previous definition here"},
				},
			})
			continue
		}
		seen[name] = p.Ident
	}
}

// checkIdentList reports repeated type-parameter or lifetime identifiers
// within one generics block, sharing the seen set across both lists since
// a lifetime and a type parameter cannot share a name either.
func checkIdentList(diags *diagnostic.List, file *source.File, idents []ast.Ident, seen map[string]ast.Ident) {
	for _, id := range idents {
		name := id.Name()
		if prev, ok := seen[name]; ok {
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeMultipleDefinition,
				Message:  "the name `" + name + "` is bound multiple times in this generics list",
				File:     file,
				Primary:  diagnostic.Ref{Span: id.Span, Note: "redefined here"},
				Secondary: []diagnostic.Ref{
					{Span: prev.Span, Note: "previous definition here"},
				},
			})
			continue
		}
		seen[name] = id
	}
}
