package visibility

import (
	"testing"

	"github.com/rhdl/rhdlc/internal/ast"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/resgraph"
)

// newNode appends a node with the given kind/parent/visibility and returns
// its id, wiring it into the parent's Children map under name (skipped if
// name is empty, mirroring an anonymous/use node).
func newNode(g *resgraph.Graph, parent resgraph.NodeID, name string, kind resgraph.Kind, vis ast.Visibility) resgraph.NodeID {
	id := g.NewNode(resgraph.Node{Kind: kind, Parent: parent, Name: name, Vis: vis})
	if parent != resgraph.NoParent && name != "" {
		g.AddNamedChild(parent, name, id)
	} else if parent != resgraph.NoParent {
		g.AddAnonChild(parent, id)
	}
	return id
}

// buildModuleGraph constructs: root -> mod a -> struct S (with visOfS),
// and a sibling `use` node directly under root standing in for `use a::S;`.
func buildModuleGraph(visOfS ast.Visibility) (*resgraph.Graph, resgraph.NodeID, resgraph.NodeID) {
	g := &resgraph.Graph{Exports: map[resgraph.NodeID]resgraph.Export{}}
	root := newNode(g, resgraph.NoParent, "", resgraph.KindRoot, ast.Visibility{})
	g.Roots = append(g.Roots, root)
	modA := newNode(g, root, "a", resgraph.KindMod, ast.Visibility{Kind: ast.VisInherited})
	structS := newNode(g, modA, "S", resgraph.KindStruct, visOfS)
	use := newNode(g, root, "", resgraph.KindUse, ast.Visibility{})
	return g, use, structS
}

func TestIsTargetVisible_PublicStructReachableThroughUse(t *testing.T) {
	g, use, s := buildModuleGraph(ast.Visibility{Kind: ast.VisPublic})
	Solve(g, &diagnostic.List{})
	if !IsTargetVisible(g, use, s) {
		t.Fatal("a pub struct in a sibling module must be visible to a use declaration at the root")
	}
}

func TestIsTargetVisible_InheritedStructNotReachableThroughUse(t *testing.T) {
	g, use, s := buildModuleGraph(ast.Visibility{Kind: ast.VisInherited})
	Solve(g, &diagnostic.List{})
	if IsTargetVisible(g, use, s) {
		t.Fatal("a private (inherited-visibility) struct must not be visible outside its module")
	}
}

func TestIsTargetVisible_InheritedStructVisibleWithinOwnModule(t *testing.T) {
	g, _, s := buildModuleGraph(ast.Visibility{Kind: ast.VisInherited})
	Solve(g, &diagnostic.List{})
	modA := g.Parent(s)
	sibling := newNode(g, modA, "f", resgraph.KindFn, ast.Visibility{Kind: ast.VisInherited})
	if !IsTargetVisible(g, sibling, s) {
		t.Fatal("an inherited-visibility item must be visible to a sibling in the same module")
	}
}

func TestIsTargetVisible_PubSelfBehavesLikeInherited(t *testing.T) {
	g, use, s := buildModuleGraph(ast.Visibility{Kind: ast.VisRestricted, Restriction: ast.RestrictSelf})
	Solve(g, &diagnostic.List{})
	if IsTargetVisible(g, use, s) {
		t.Fatal("pub(self) must behave exactly like inherited visibility for an outside use")
	}
}

func TestIsTargetVisible_RootItemsAlwaysVisible(t *testing.T) {
	g := &resgraph.Graph{Exports: map[resgraph.NodeID]resgraph.Export{}}
	root := newNode(g, resgraph.NoParent, "", resgraph.KindRoot, ast.Visibility{})
	other := newNode(g, resgraph.NoParent, "", resgraph.KindRoot, ast.Visibility{})
	if !IsTargetVisible(g, other, root) {
		t.Fatal("a root node has no parent and must always be visible")
	}
}
