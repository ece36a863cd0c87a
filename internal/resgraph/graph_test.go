package resgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/filegraph"
	"github.com/rhdl/rhdlc/internal/source"
)

func build(t *testing.T, content string) *Graph {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "top.rhdl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	diags := &diagnostic.List{}
	fg, err := filegraph.Build(source.NewFile(path), diags)
	if err != nil {
		t.Fatalf("filegraph.Build: %v", err)
	}
	return Build(fg, diags)
}

func childNamed(g *Graph, parent NodeID, name string, kind Kind) NodeID {
	for _, c := range g.Node(parent).Children[name] {
		if g.Node(c).Kind == kind {
			return c
		}
	}
	return NoParent
}

// TestBuild_SingleParentInvariant walks every node's single Parent chain
// and asserts it ends at a node with no parent without revisiting a node —
// spec.md §8's "single-parent" / acyclic-graph property.
func TestBuild_SingleParentInvariant(t *testing.T) {
	g := build(t, "mod a {\n    mod b {\n        struct S;\n    }\n}\nfn f() {}\n")
	for i := range g.Nodes {
		n := NodeID(i)
		seen := map[NodeID]bool{}
		for cur := n; ; {
			if seen[cur] {
				t.Fatalf("cycle detected in parent chain starting at node %d", n)
			}
			seen[cur] = true
			p := g.Nodes[cur].Parent
			if p == NoParent {
				break
			}
			cur = p
		}
	}
}

func TestBuild_NestedModsProduceTheExpectedAncestryChain(t *testing.T) {
	g := build(t, "mod a {\n    mod b {\n        struct S;\n    }\n}\n")
	root := g.Roots[0]
	a := childNamed(g, root, "a", KindMod)
	b := childNamed(g, a, "b", KindMod)
	s := childNamed(g, b, "S", KindStruct)

	if a == NoParent || b == NoParent || s == NoParent {
		t.Fatalf("expected mod a, mod b, and struct S to all be found; got a=%d b=%d s=%d", a, b, s)
	}

	got := g.Ancestry(s)
	want := []NodeID{s, b, a, root}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Ancestry(S) mismatch (-want +got):\n%s", diff)
	}

	if got, want := g.RootOf(s), root; got != want {
		t.Fatalf("RootOf(S) = %d, want %d", got, want)
	}
	if got, want := g.Grandparent(s), a; got != want {
		t.Fatalf("Grandparent(S) = %d, want %d", got, want)
	}
}

// TestIsAncestor_ReflexiveAndTransitive exercises the two properties the
// visibility solver's pub(in path) walk and is_target_visible's trivial
// rules both rely on: a node is its own ancestor, and ancestry composes
// transitively up the chain.
func TestIsAncestor_ReflexiveAndTransitive(t *testing.T) {
	g := build(t, "mod a {\n    mod b {\n        struct S;\n    }\n}\n")
	root := g.Roots[0]
	a := childNamed(g, root, "a", KindMod)
	b := childNamed(g, a, "b", KindMod)
	s := childNamed(g, b, "S", KindStruct)

	if !g.IsAncestor(s, s) {
		t.Fatal("a node must be its own ancestor (reflexive)")
	}
	if !g.IsAncestor(root, s) {
		t.Fatal("root must be an ancestor of every descendant")
	}
	if !g.IsAncestor(a, s) {
		t.Fatal("a must be an ancestor of its grandchild S")
	}
	if g.IsAncestor(s, root) {
		t.Fatal("a leaf must not be an ancestor of the root")
	}
	if g.IsAncestor(b, a) {
		t.Fatal("a child must not be an ancestor of its own parent")
	}
}

func TestGrandparent_NoParentBeyondRoot(t *testing.T) {
	g := build(t, "mod a {\n    struct S;\n}\n")
	root := g.Roots[0]
	a := childNamed(g, root, "a", KindMod)
	if got := g.Grandparent(a); got != NoParent {
		t.Fatalf("Grandparent(a) = %d, want NoParent (a's parent is the root)", got)
	}
	if got := g.Grandparent(root); got != NoParent {
		t.Fatalf("Grandparent(root) = %d, want NoParent", got)
	}
}
