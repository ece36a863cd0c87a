// Package rawident implements the raw-identifier validator (spec.md
// §4.7): reserved words written with the `r#` escape are never legal
// identifiers, even though the lexer accepts the raw-identifier form.
package rawident

import (
	"github.com/rhdl/rhdlc/internal/ast"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/resgraph"
	"github.com/rhdl/rhdlc/internal/source"
)

var reserved = map[string]bool{
	"r#_":     true,
	"r#":      true,
	"r#super": true,
	"r#self":  true,
	"r#Self":  true,
	"r#crate": true,
}

// Check walks each node's own identifier, generics, `pub(in path)` path,
// fn parameter names and types, and use tree, reporting
// InvalidRawIdentifierError for each reserved raw form. The type paths of
// consts, fields, type aliases and impl headers are not checked.
func Check(g *resgraph.Graph, diags *diagnostic.List) {
	for i := range g.Nodes {
		n := g.Node(resgraph.NodeID(i))
		checkIdent(diags, n.File, n.Ident)
		for _, tp := range n.Generics.TypeParams {
			checkIdent(diags, n.File, tp)
		}
		for _, lt := range n.Generics.Lifetimes {
			checkIdent(diags, n.File, lt)
		}
		checkPath(diags, n.File, n.Vis.Path)
		if fn, ok := n.Item.(*ast.FnDecl); ok {
			for _, p := range fn.Params {
				checkIdent(diags, n.File, p.Ident)
				checkPath(diags, n.File, p.Type)
			}
		}
		if n.UseTree != nil {
			checkUseTree(diags, n.File, n.UseTree)
		}
	}
}

func checkIdent(diags *diagnostic.List, file *source.File, id ast.Ident) {
	if id.Text == "" || !reserved[id.Text] {
		return
	}
	diags.Add(&diagnostic.Diagnostic{
		Severity: diagnostic.Error,
		Code:     diagnostic.CodeInvalidRawIdentifier,
		Message:  "`" + id.Text + "` is not a valid raw identifier",
		File:     file,
		Primary:  diagnostic.Ref{Span: id.Span},
	})
}

func checkPath(diags *diagnostic.List, file *source.File, p ast.Path) {
	for _, seg := range p.Segments {
		checkIdent(diags, file, seg)
	}
}

func checkUseTree(diags *diagnostic.List, file *source.File, t ast.UseTree) {
	switch tt := t.(type) {
	case *ast.UsePath:
		checkIdent(diags, file, tt.Segment)
		if tt.Rest != nil {
			checkUseTree(diags, file, tt.Rest)
		}
	case *ast.UseName:
		checkIdent(diags, file, tt.Ident)
	case *ast.UseRename:
		checkIdent(diags, file, tt.Ident)
		checkIdent(diags, file, tt.Rename)
	case *ast.UseGroup:
		for _, item := range tt.Items {
			checkUseTree(diags, file, item)
		}
	}
}
