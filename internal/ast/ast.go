// Package ast defines the minimal AST shapes the resolution engine
// consumes (spec.md §1, "only the AST shapes named in §3 are consumed").
// The lexer/parser that produces this tree is an external collaborator in
// the distilled spec; internal/parser supplies a small concrete one so the
// engine is exercisable end to end (SPEC_FULL.md §C.1).
package ast

import (
	"strings"

	"github.com/rhdl/rhdlc/internal/token"
)

// Ident is a source identifier, possibly raw (written "r#name").
type Ident struct {
	Text string // literal source text, including an "r#" prefix if raw
	Span token.Span
}

// IsRaw reports whether this identifier was written with an "r#" prefix.
func (id Ident) IsRaw() bool { return strings.HasPrefix(id.Text, "r#") }

// Name returns the identifier with any "r#" prefix stripped — the form
// used for filesystem module lookup (spec.md §4.1) and for all name
// comparisons in scoping. "r#mod" and "mod" name the same entity.
func (id Ident) Name() string { return strings.TrimPrefix(id.Text, "r#") }

// File is a parsed source unit's top-level item list.
type File struct {
	Items []Item
	Span  token.Span
}

// Item is any top-level or nested declaration the graph builder consumes.
type Item interface {
	itemNode()
	ItemSpan() token.Span
}

// Path is a `::`-separated sequence of identifiers, used for use-trees,
// pub(in path), type references, and trait-bound references.
type Path struct {
	LeadingColon bool
	Segments     []Ident
	Span         token.Span
}

// Generics is the set of type-parameter and lifetime identifiers
// introduced by a generics block, e.g. `fn f<T, 'a>(...)`.
type Generics struct {
	TypeParams []Ident
	Lifetimes  []Ident
	Span       token.Span
}

// ModDecl is a `mod m;` or `mod m { ... }` item. Content is nil for the
// former (a file-backed mod the file finder must locate); non-nil for the
// latter (an inline mod whose items are Content).
type ModDecl struct {
	Ident   Ident
	Vis     Visibility
	Content *[]Item
	Span    token.Span
}

func (*ModDecl) itemNode()                 {}
func (d *ModDecl) ItemSpan() token.Span    { return d.Span }
func (d *ModDecl) HasContent() bool        { return d.Content != nil }

// Param is one function parameter's binding pattern (just the identifier —
// the conflict checker only needs repeated-binding detection, not full
// pattern matching; spec.md §4.6).
type Param struct {
	Ident Ident
	Type  Path
}

// FnDecl is a function item, either a top-level `fn`, or one nested in an
// `impl`/`trait` block.
type FnDecl struct {
	Ident    Ident
	Vis      Visibility
	Generics Generics
	Params   []Param
	HasBody  bool // false for a trait fn with no default body
	Span     token.Span
}

func (*FnDecl) itemNode()              {}
func (d *FnDecl) ItemSpan() token.Span { return d.Span }

// Field is a named struct field.
type Field struct {
	Ident Ident
	Vis   Visibility
	Type  Path
	Span  token.Span
}

// StructDecl is a struct item; Fields is empty for a unit struct.
type StructDecl struct {
	Ident    Ident
	Vis      Visibility
	Generics Generics
	Fields   []Field
	Span     token.Span
}

func (*StructDecl) itemNode()              {}
func (d *StructDecl) ItemSpan() token.Span { return d.Span }

// Variant is one arm of an enum.
type Variant struct {
	Ident  Ident
	Fields []Field
	Span   token.Span
}

// EnumDecl is an enum item.
type EnumDecl struct {
	Ident    Ident
	Vis      Visibility
	Generics Generics
	Variants []Variant
	Span     token.Span
}

func (*EnumDecl) itemNode()              {}
func (d *EnumDecl) ItemSpan() token.Span { return d.Span }

// TraitDecl is a trait item; Items holds its associated fns/consts/types.
type TraitDecl struct {
	Ident    Ident
	Vis      Visibility
	Generics Generics
	Items    []Item
	Span     token.Span
}

func (*TraitDecl) itemNode()              {}
func (d *TraitDecl) ItemSpan() token.Span { return d.Span }

// ImplDecl is an `impl Type` or `impl Trait for Type` block. TraitPath is
// the zero Path (no segments) for an inherent impl.
type ImplDecl struct {
	Generics  Generics
	TraitPath Path // zero value (len(Segments)==0) when inherent
	SelfType  Path
	Items     []Item
	Span      token.Span
}

func (*ImplDecl) itemNode()              {}
func (d *ImplDecl) ItemSpan() token.Span { return d.Span }
func (d *ImplDecl) IsTraitImpl() bool    { return len(d.TraitPath.Segments) > 0 }

// ConstDecl is a `const`/`static` item, or an associated const in an
// impl/trait.
type ConstDecl struct {
	Ident Ident
	Vis   Visibility
	Type  Path
	Span  token.Span
}

func (*ConstDecl) itemNode()              {}
func (d *ConstDecl) ItemSpan() token.Span { return d.Span }

// TypeDecl is a `type Name = ...;` alias item, or an associated type in an
// impl/trait.
type TypeDecl struct {
	Ident Ident
	Vis   Visibility
	Alias Path // the right-hand-side type path, empty for a trait's
	           // associated-type declaration with no default
	Span  token.Span
}

func (*TypeDecl) itemNode()              {}
func (d *TypeDecl) ItemSpan() token.Span { return d.Span }

// UseDecl is a `use` item; Tree is its (possibly grouped) import tree.
type UseDecl struct {
	Vis  Visibility
	Tree UseTree
	Span token.Span
}

func (*UseDecl) itemNode()              {}
func (d *UseDecl) ItemSpan() token.Span { return d.Span }

// UnsupportedDecl records a syntactically valid item this front end does
// not resolve (extern crate, macros, union, trait alias — spec.md §4.2's
// "Unsupported forms"). A `static` item is parsed as a ConstDecl instead.
type UnsupportedDecl struct {
	Kind string
	Span token.Span
}

func (*UnsupportedDecl) itemNode()              {}
func (d *UnsupportedDecl) ItemSpan() token.Span { return d.Span }
