package ast

import "github.com/rhdl/rhdlc/internal/token"

// VisibilityKind tags the surface modifier a declaration carries (spec.md
// §4.3's table).
type VisibilityKind int

const (
	// VisInherited is the absence of a modifier: private to the parent.
	VisInherited VisibilityKind = iota
	// VisPublic is `pub`.
	VisPublic
	// VisCrate is `pub(crate)`.
	VisCrate
	// VisRestricted is `pub(self)`, `pub(super)`, or `pub(in path)`.
	VisRestricted
)

// Restricted path kinds, distinguished for the visibility solver
// (spec.md §4.3's `pub(in path)` rules).
const (
	RestrictSelf = "self"
	RestrictSuper = "super"
	RestrictIn   = "in"
)

// Visibility is a declaration's surface visibility modifier.
type Visibility struct {
	Kind VisibilityKind
	// Restriction is one of RestrictSelf, RestrictSuper, or RestrictIn,
	// valid only when Kind == VisRestricted.
	Restriction string
	// Path is the `in path` path, valid only when Restriction == RestrictIn.
	Path Path
	Span token.Span
}

// Inherited is the zero-value (private) visibility.
var Inherited = Visibility{Kind: VisInherited}
