// Package resgraph implements the resolution graph (spec.md §3) and the
// graph builder (spec.md §4.2): a flat, indexable vector of nodes with
// parent/child relationships recorded as integer indices rather than
// shared pointers (spec.md §9's "non-tree AST references" design note).
package resgraph

import (
	"github.com/rhdl/rhdlc/internal/ast"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/filegraph"
	"github.com/rhdl/rhdlc/internal/source"
	"github.com/rhdl/rhdlc/internal/token"
)

// Kind tags a node's item category (spec.md §3's Branch/Leaf kind lists).
type Kind int

const (
	KindRoot Kind = iota
	KindMod
	KindImpl
	KindTrait
	KindFn
	KindStruct
	KindEnum
	KindVariant
	KindUse
	KindField
	KindConst
	KindType
	KindUseName
	KindUseRename
	KindUseGlob
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindMod:
		return "mod"
	case KindImpl:
		return "impl"
	case KindTrait:
		return "trait"
	case KindFn:
		return "fn"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindVariant:
		return "variant"
	case KindUse:
		return "use"
	case KindField:
		return "field"
	case KindConst:
		return "const"
	case KindType:
		return "type"
	case KindUseName:
		return "use-name"
	case KindUseRename:
		return "use-rename"
	case KindUseGlob:
		return "use-glob"
	default:
		return "?"
	}
}

// IsUsePathValid reports whether a node of this kind may appear as an
// interior segment of a `use` path (spec.md GLOSSARY "Path segment").
func (k Kind) IsUsePathValid() bool { return k == KindRoot || k == KindMod }

// IsTypePathValid additionally allows impl/trait/enum/struct interior
// segments, for type- and trait-bound paths (spec.md §4.5).
func (k Kind) IsTypePathValid() bool {
	switch k {
	case KindRoot, KindMod, KindImpl, KindTrait, KindEnum, KindStruct:
		return true
	default:
		return false
	}
}

// IsType reports whether a node is "a type" for the type-existence checker
// (spec.md §4.5): struct, enum, or type-alias declarations, plus anything a
// use leaf ultimately resolves to of those kinds.
func (k Kind) IsType() bool {
	switch k {
	case KindStruct, KindEnum, KindType:
		return true
	default:
		return false
	}
}

// IsTrait reports whether a node is "a trait".
func (k Kind) IsTrait() bool { return k == KindTrait }

// NoParent marks a node with no parent (only Root nodes).
const NoParent NodeID = -1

// NodeID is a compact index into Graph.Nodes.
type NodeID int

// Node is one resolution-graph entry (spec.md §3's tagged ResolutionNode,
// flattened: every field applies to some subset of Kinds and is the zero
// value otherwise).
type Node struct {
	Kind   Kind
	Parent NodeID
	// Name is the identifier this node is keyed by in its parent's
	// Children map; "" for unnamed nodes (Impl, Use, UseGlob).
	Name     string
	Ident    ast.Ident
	Vis      ast.Visibility
	Generics ast.Generics
	Span     token.Span
	File     *source.File
	Item     ast.Item // the originating AST item, nil for Root, Variant, Field and use leaves

	// Children maps an optional identifier to the ordered list of child
	// node indices declared under that name (spec.md §3).
	Children map[string][]NodeID
	// Anon holds unnamed children (impls, use branches, glob leaves) in
	// source order.
	Anon []NodeID

	// Use-branch / use-leaf fields.
	UseTree   ast.UseTree // KindUse only
	RenameTo  string      // KindUseRename only
	GlobScope NodeID      // KindUseGlob only: the scope the glob imports from
	Targets   []NodeID    // KindUseName / KindUseRename only
}

// Export records a node's computed export destination (spec.md §3):
// Defined false means "private to parent"; Beyond true means visible past
// any root ("None" in the spec's Option<Option<NodeID>>).
type Export struct {
	Defined bool
	Beyond  bool
	Dest    NodeID
}

// Graph is the flat resolution graph (spec.md §3's ResolutionGraph).
type Graph struct {
	Nodes        []Node
	Roots        []NodeID
	ContentFiles map[NodeID]*source.File
	Exports      map[NodeID]Export
}

func newGraph() *Graph {
	return &Graph{ContentFiles: map[NodeID]*source.File{}, Exports: map[NodeID]Export{}}
}

func (g *Graph) newNode(n Node) NodeID {
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	return id
}

func (g *Graph) addChild(parent NodeID, name string, child NodeID) {
	p := &g.Nodes[parent]
	if p.Children == nil {
		p.Children = map[string][]NodeID{}
	}
	p.Children[name] = append(p.Children[name], child)
}

func (g *Graph) addAnon(parent NodeID, child NodeID) {
	p := &g.Nodes[parent]
	p.Anon = append(p.Anon, child)
}

// NewNode appends n to the graph and returns its index. Exposed for the use
// resolver, which creates UseName/UseRename/UseGlob leaves lazily as it
// traces each `use` tree (spec.md §4.2: "the use resolver will create
// child Leaf nodes for every terminal name/rename/glob").
func (g *Graph) NewNode(n Node) NodeID { return g.newNode(n) }

// AddNamedChild records child as parent's named child under name.
func (g *Graph) AddNamedChild(parent NodeID, name string, child NodeID) { g.addChild(parent, name, child) }

// AddAnonChild records child as one of parent's unnamed children.
func (g *Graph) AddAnonChild(parent NodeID, child NodeID) { g.addAnon(parent, child) }

// Node returns a pointer to the node at id for read or mutation.
func (g *Graph) Node(id NodeID) *Node { return &g.Nodes[id] }

// Parent returns n's parent, or NoParent for a root.
func (g *Graph) Parent(n NodeID) NodeID { return g.Nodes[n].Parent }

// IsAncestor reports whether anc appears in n's parent chain, or anc == n.
func (g *Graph) IsAncestor(anc, n NodeID) bool {
	for cur := n; ; {
		if cur == anc {
			return true
		}
		p := g.Nodes[cur].Parent
		if p == NoParent {
			return false
		}
		cur = p
	}
}

// Ancestry returns n and every ancestor up to and including its root, in
// that order (closest first).
func (g *Graph) Ancestry(n NodeID) []NodeID {
	var chain []NodeID
	for cur := n; ; {
		chain = append(chain, cur)
		p := g.Nodes[cur].Parent
		if p == NoParent {
			return chain
		}
		cur = p
	}
}

// RootOf returns the root ancestor of n.
func (g *Graph) RootOf(n NodeID) NodeID {
	chain := g.Ancestry(n)
	return chain[len(chain)-1]
}

// Grandparent returns n's grandparent, or NoParent if n's parent is a root
// (spec.md §4.3's "public" and "restricted super" rules read grandparent as
// NoParent, i.e. "beyond the root", in that case).
func (g *Graph) Grandparent(n NodeID) NodeID {
	p := g.Nodes[n].Parent
	if p == NoParent {
		return NoParent
	}
	return g.Nodes[p].Parent
}

// Build runs the graph builder (spec.md §4.2) over fg, producing a
// resolution graph. Diagnostics for unsupported items are appended to
// diags; the file finder's own diagnostics are assumed already collected.
func Build(fg *filegraph.FileGraph, diags *diagnostic.List) *Graph {
	g := newGraph()
	rootID := g.newNode(Node{Kind: KindRoot, Parent: NoParent, Name: fg.Root.Src.Name, File: fg.Root})
	g.Roots = append(g.Roots, rootID)
	if fg.Root.AST != nil {
		g.buildItems(fg, fg.Root, fg.Root.AST.Items, rootID, nil, diags)
	}
	return g
}

func (g *Graph) buildItems(fg *filegraph.FileGraph, file *source.File, items []ast.Item, parent NodeID, prefix []string, diags *diagnostic.List) {
	for _, item := range items {
		switch it := item.(type) {
		case *ast.ModDecl:
			g.buildMod(fg, file, it, parent, prefix, diags)
		case *ast.FnDecl:
			id := g.newNode(Node{Kind: KindFn, Parent: parent, Name: it.Ident.Name(), Ident: it.Ident, Vis: it.Vis, Generics: it.Generics, Span: it.Span, File: file, Item: it})
			g.addChild(parent, it.Ident.Name(), id)
		case *ast.StructDecl:
			g.buildStruct(file, it, parent)
		case *ast.EnumDecl:
			g.buildEnum(file, it, parent)
		case *ast.TraitDecl:
			id := g.newNode(Node{Kind: KindTrait, Parent: parent, Name: it.Ident.Name(), Ident: it.Ident, Vis: it.Vis, Generics: it.Generics, Span: it.Span, File: file, Item: it})
			g.addChild(parent, it.Ident.Name(), id)
			g.buildItems(fg, file, it.Items, id, nil, diags)
		case *ast.ImplDecl:
			id := g.newNode(Node{Kind: KindImpl, Parent: parent, Generics: it.Generics, Span: it.Span, File: file, Item: it})
			g.addAnon(parent, id)
			g.buildItems(fg, file, it.Items, id, nil, diags)
		case *ast.ConstDecl:
			id := g.newNode(Node{Kind: KindConst, Parent: parent, Name: it.Ident.Name(), Ident: it.Ident, Vis: it.Vis, Span: it.Span, File: file, Item: it})
			g.addChild(parent, it.Ident.Name(), id)
		case *ast.TypeDecl:
			id := g.newNode(Node{Kind: KindType, Parent: parent, Name: it.Ident.Name(), Ident: it.Ident, Vis: it.Vis, Span: it.Span, File: file, Item: it})
			g.addChild(parent, it.Ident.Name(), id)
		case *ast.UseDecl:
			id := g.newNode(Node{Kind: KindUse, Parent: parent, Vis: it.Vis, Span: it.Span, File: file, UseTree: it.Tree, Item: it})
			g.addAnon(parent, id)
		case *ast.UnsupportedDecl:
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeUnsupported,
				Message:  it.Kind + " is not supported",
				File:     file,
				Primary:  diagnostic.Ref{Span: it.Span},
			})
		}
	}
}

func (g *Graph) buildMod(fg *filegraph.FileGraph, file *source.File, it *ast.ModDecl, parent NodeID, prefix []string, diags *diagnostic.List) {
	id := g.newNode(Node{Kind: KindMod, Parent: parent, Name: it.Ident.Name(), Ident: it.Ident, Vis: it.Vis, Span: it.Span, File: file, Item: it})
	g.addChild(parent, it.Ident.Name(), id)

	if it.Content != nil {
		g.buildItems(fg, file, *it.Content, id, append(append([]string{}, prefix...), it.Ident.Name()), diags)
		return
	}

	path := append(append([]string{}, prefix...), it.Ident.Name())
	child, ok := fg.Lookup(file, path)
	if !ok || child == nil || child.AST == nil {
		return
	}
	g.ContentFiles[id] = child
	g.buildItems(fg, child, child.AST.Items, id, nil, diags)
}

func (g *Graph) buildStruct(file *source.File, it *ast.StructDecl, parent NodeID) {
	id := g.newNode(Node{Kind: KindStruct, Parent: parent, Name: it.Ident.Name(), Ident: it.Ident, Vis: it.Vis, Generics: it.Generics, Span: it.Span, File: file, Item: it})
	g.addChild(parent, it.Ident.Name(), id)
	for _, f := range it.Fields {
		fid := g.newNode(Node{Kind: KindField, Parent: id, Name: f.Ident.Name(), Ident: f.Ident, Vis: f.Vis, Span: f.Span, File: file})
		g.addChild(id, f.Ident.Name(), fid)
	}
}

func (g *Graph) buildEnum(file *source.File, it *ast.EnumDecl, parent NodeID) {
	id := g.newNode(Node{Kind: KindEnum, Parent: parent, Name: it.Ident.Name(), Ident: it.Ident, Vis: it.Vis, Generics: it.Generics, Span: it.Span, File: file, Item: it})
	g.addChild(parent, it.Ident.Name(), id)
	for _, v := range it.Variants {
		vid := g.newNode(Node{Kind: KindVariant, Parent: id, Name: v.Ident.Name(), Ident: v.Ident, Span: v.Span, File: file})
		g.addChild(id, v.Ident.Name(), vid)
		for _, f := range v.Fields {
			fid := g.newNode(Node{Kind: KindField, Parent: vid, Name: f.Ident.Name(), Ident: f.Ident, Vis: f.Vis, Span: f.Span, File: file})
			g.addChild(vid, f.Ident.Name(), fid)
		}
	}
}
