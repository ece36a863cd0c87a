package ast

import "github.com/rhdl/rhdlc/internal/token"

// UseTree is one node of a `use` item's (possibly nested/grouped) import
// tree (spec.md §3's Leaf kinds UseName/UseRename/UseGlob, and §4.4's
// Path/Name/Rename/Glob/Group dispatch).
type UseTree interface {
	useTreeNode()
	TreeSpan() token.Span
}

// UsePath is one `segment::rest` step of a use path. Segment may be a
// special identifier ("self", "super", "crate") handled specially by the
// use resolver (spec.md §4.4).
type UsePath struct {
	Segment Ident
	Rest    UseTree
	Span    token.Span
}

func (*UsePath) useTreeNode()              {}
func (t *UsePath) TreeSpan() token.Span    { return t.Span }

// UseName is a terminal `ident` leaf: pulls `ident` into scope unchanged.
type UseName struct {
	Ident Ident
	Span  token.Span
}

func (*UseName) useTreeNode()              {}
func (t *UseName) TreeSpan() token.Span    { return t.Span }

// UseRename is a terminal `ident as rename` leaf.
type UseRename struct {
	Ident  Ident
	Rename Ident
	Span   token.Span
}

func (*UseRename) useTreeNode()              {}
func (t *UseRename) TreeSpan() token.Span    { return t.Span }

// UseGlob is a terminal `*` leaf.
type UseGlob struct {
	Span token.Span
}

func (*UseGlob) useTreeNode()              {}
func (t *UseGlob) TreeSpan() token.Span    { return t.Span }

// UseGroup is a `{ t1, t2, ... }` group; every element is traced from the
// same scope as the group itself (spec.md §4.4's Group case).
type UseGroup struct {
	Items []UseTree
	Span  token.Span
}

func (*UseGroup) useTreeNode()              {}
func (t *UseGroup) TreeSpan() token.Span    { return t.Span }
