// Package parser builds an internal/ast.File from rhdl source text using
// internal/lexer's token stream. Like the lexer, this is outside the
// resolution engine's contract (spec.md §1) but is concrete enough to
// exercise it end to end (SPEC_FULL.md §C.1). Its grammar is intentionally
// small: it does not attempt macro expansion or attribute-driven
// conditional compilation, matching the spec's Non-goals.
package parser

import (
	"fmt"

	"github.com/rhdl/rhdlc/internal/ast"
	"github.com/rhdl/rhdlc/internal/lexer"
	"github.com/rhdl/rhdlc/internal/token"
)

// Error is a syntax error, carrying the offending span.
type Error struct {
	Msg  string
	Span token.Span
}

func (e *Error) Error() string { return e.Msg }

type parser struct {
	toks []lexer.Token
	pos  int
}

// Parse tokenizes and parses src into a *ast.File.
func Parse(src string) (*ast.File, error) {
	lx := lexer.New(src)
	var toks []lexer.Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == lexer.EOF {
			break
		}
	}
	p := &parser{toks: toks}
	items, err := p.parseItems(true)
	if err != nil {
		return nil, err
	}
	var span token.Span
	if len(toks) > 0 {
		span = token.Span{Start: toks[0].Span.Start, End: toks[len(toks)-1].Span.End}
	}
	return &ast.File{Items: items, Span: span}, nil
}

func (p *parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *parser) at(k lexer.Kind, text string) bool {
	t := p.cur()
	return t.Kind == k && (text == "" || t.Text == text)
}
func (p *parser) atPunct(s string) bool { return p.at(lexer.Punct, s) }
func (p *parser) atIdent(s string) bool { return p.at(lexer.Ident, s) }
func (p *parser) atEOF() bool           { return p.cur().Kind == lexer.EOF }

func (p *parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectPunct(s string) (lexer.Token, error) {
	if !p.atPunct(s) {
		return lexer.Token{}, p.errorf("expected %q, found %q", s, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Span: p.cur().Span}
}

// parseItems parses a sequence of items, terminated by EOF (topLevel) or by
// a closing brace.
func (p *parser) parseItems(topLevel bool) ([]ast.Item, error) {
	var items []ast.Item
	for {
		if topLevel && p.atEOF() {
			break
		}
		if !topLevel && p.atPunct("}") {
			break
		}
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

func (p *parser) parseItem() (ast.Item, error) {
	start := p.cur().Span.Start
	vis, err := p.parseVisibility()
	if err != nil {
		return nil, err
	}
	switch {
	case p.atIdent("mod"):
		return p.parseMod(vis, start)
	case p.atIdent("use"):
		return p.parseUse(vis, start)
	case p.atIdent("fn"):
		return p.parseFn(vis, start)
	case p.atIdent("struct"):
		return p.parseStruct(vis, start)
	case p.atIdent("enum"):
		return p.parseEnum(vis, start)
	case p.atIdent("trait"):
		return p.parseTraitOrAlias(vis, start)
	case p.atIdent("impl"):
		return p.parseImpl(start)
	case p.atIdent("const"), p.atIdent("static"):
		return p.parseConst(vis, start)
	case p.atIdent("type"):
		return p.parseType(vis, start)
	case p.atIdent("extern"):
		return p.parseUnsupportedUntilSemiOrBlock("extern crate", start)
	case p.atIdent("union"):
		return p.parseUnsupportedUntilSemiOrBlock("union", start)
	case p.atIdent("macro"):
		return p.parseUnsupportedUntilSemiOrBlock("macro", start)
	default:
		return nil, p.errorf("unexpected token %q at top level", p.cur().Text)
	}
}

// parseVisibility consumes an optional `pub`, `pub(crate)`, `pub(self)`,
// `pub(super)`, or `pub(in path)` modifier (spec.md §4.3).
func (p *parser) parseVisibility() (ast.Visibility, error) {
	if !p.atIdent("pub") {
		return ast.Inherited, nil
	}
	start := p.advance().Span.Start
	if !p.atPunct("(") {
		return ast.Visibility{Kind: ast.VisPublic, Span: token.Span{Start: start, End: p.cur().Span.End}}, nil
	}
	p.advance() // (
	switch {
	case p.atIdent("crate"):
		end := p.advance().Span.End
		if _, err := p.expectPunct(")"); err != nil {
			return ast.Visibility{}, err
		}
		return ast.Visibility{Kind: ast.VisCrate, Span: token.Span{Start: start, End: end}}, nil
	case p.atIdent("self"):
		end := p.advance().Span.End
		if _, err := p.expectPunct(")"); err != nil {
			return ast.Visibility{}, err
		}
		return ast.Visibility{Kind: ast.VisRestricted, Restriction: ast.RestrictSelf, Span: token.Span{Start: start, End: end}}, nil
	case p.atIdent("super"):
		end := p.advance().Span.End
		for p.atPunct("::") {
			p.advance()
			if !p.atIdent("super") {
				break
			}
			end = p.advance().Span.End
		}
		if _, err := p.expectPunct(")"); err != nil {
			return ast.Visibility{}, err
		}
		return ast.Visibility{Kind: ast.VisRestricted, Restriction: ast.RestrictSuper, Span: token.Span{Start: start, End: end}}, nil
	case p.atIdent("in"):
		p.advance()
		path, err := p.parsePath()
		if err != nil {
			return ast.Visibility{}, err
		}
		end := path.Span.End
		if _, err := p.expectPunct(")"); err != nil {
			return ast.Visibility{}, err
		}
		return ast.Visibility{Kind: ast.VisRestricted, Restriction: ast.RestrictIn, Path: path, Span: token.Span{Start: start, End: end}}, nil
	default:
		// `pub(path)` without `in` — recorded exactly like `pub(in path)`,
		// so the visibility solver does not tell the two apart: a path not
		// starting with self/super/crate is reported as
		// SpecialIdentNotAtStartOfPathError, and one that does is accepted.
		path, err := p.parsePath()
		if err != nil {
			return ast.Visibility{}, err
		}
		end := path.Span.End
		if _, err := p.expectPunct(")"); err != nil {
			return ast.Visibility{}, err
		}
		return ast.Visibility{Kind: ast.VisRestricted, Restriction: ast.RestrictIn, Path: path, Span: token.Span{Start: start, End: end}}, nil
	}
}

func (p *parser) parseIdent() (ast.Ident, error) {
	t := p.cur()
	if t.Kind != lexer.Ident {
		return ast.Ident{}, p.errorf("expected identifier, found %q", t.Text)
	}
	p.advance()
	return ast.Ident{Text: t.Text, Span: t.Span}, nil
}

// parsePath parses a `::`-separated path, including leading `::` and the
// special segments self/super/crate (spec.md §4.4).
func (p *parser) parsePath() (ast.Path, error) {
	start := p.cur().Span.Start
	leading := false
	if p.atPunct("::") {
		leading = true
		p.advance()
	}
	var segs []ast.Ident
	id, err := p.parseIdent()
	if err != nil {
		return ast.Path{}, err
	}
	segs = append(segs, id)
	end := id.Span.End
	for p.atPunct("::") {
		p.advance()
		if p.atPunct("<") {
			// Generic argument list on the previous segment: skip it.
			if err := p.skipAngleBrackets(); err != nil {
				return ast.Path{}, err
			}
			continue
		}
		id, err := p.parseIdent()
		if err != nil {
			return ast.Path{}, err
		}
		segs = append(segs, id)
		end = id.Span.End
	}
	return ast.Path{LeadingColon: leading, Segments: segs, Span: token.Span{Start: start, End: end}}, nil
}

// parseTypeRef parses a type reference: a path optionally followed by a
// generic argument list, which is consumed but not modeled (the
// type-existence checker only needs the head path; spec.md §4.5).
func (p *parser) parseTypeRef() (ast.Path, error) {
	path, err := p.parsePath()
	if err != nil {
		return ast.Path{}, err
	}
	if p.atPunct("<") {
		if err := p.skipAngleBrackets(); err != nil {
			return ast.Path{}, err
		}
	}
	return path, nil
}

func (p *parser) skipAngleBrackets() error {
	if _, err := p.expectPunct("<"); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		if p.atEOF() {
			return p.errorf("unexpected end of input inside generic argument list")
		}
		if p.atPunct("<") {
			depth++
		} else if p.atPunct(">") {
			depth--
		}
		p.advance()
	}
	return nil
}

// parseGenerics parses an optional `<T, U, 'a>` generics block.
func (p *parser) parseGenerics() (ast.Generics, error) {
	if !p.atPunct("<") {
		return ast.Generics{}, nil
	}
	start := p.advance().Span.Start
	var g ast.Generics
	for !p.atPunct(">") {
		if p.cur().Kind == lexer.Lifetime {
			g.Lifetimes = append(g.Lifetimes, ast.Ident{Text: p.cur().Text, Span: p.cur().Span})
			p.advance()
		} else {
			id, err := p.parseIdent()
			if err != nil {
				return ast.Generics{}, err
			}
			g.TypeParams = append(g.TypeParams, id)
			if p.atPunct(":") {
				// bound list: skip to the next comma or closing angle bracket
				for !p.atPunct(",") && !p.atPunct(">") && !p.atEOF() {
					if p.atPunct("<") {
						if err := p.skipAngleBrackets(); err != nil {
							return ast.Generics{}, err
						}
						continue
					}
					p.advance()
				}
			}
		}
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct(">"); err != nil {
		return ast.Generics{}, err
	}
	g.Span = token.Span{Start: start, End: end}
	return g, nil
}

func (p *parser) parseMod(vis ast.Visibility, start token.Position) (ast.Item, error) {
	p.advance() // mod
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if p.atPunct(";") {
		end := p.advance().Span.End
		return &ast.ModDecl{Ident: id, Vis: vis, Content: nil, Span: token.Span{Start: start, End: end}}, nil
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	items, err := p.parseItems(false)
	if err != nil {
		return nil, err
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return &ast.ModDecl{Ident: id, Vis: vis, Content: &items, Span: token.Span{Start: start, End: end}}, nil
}

func (p *parser) parseUse(vis ast.Visibility, start token.Position) (ast.Item, error) {
	p.advance() // use
	tree, err := p.parseUseTree()
	if err != nil {
		return nil, err
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.UseDecl{Vis: vis, Tree: tree, Span: token.Span{Start: start, End: end}}, nil
}

func (p *parser) parseUseTree() (ast.UseTree, error) {
	start := p.cur().Span.Start
	if p.atPunct("::") {
		p.advance()
		rest, err := p.parseUseTree()
		if err != nil {
			return nil, err
		}
		return &ast.UsePath{Segment: ast.Ident{Text: "", Span: token.Span{Start: start, End: start}}, Rest: rest, Span: token.Span{Start: start, End: rest.TreeSpan().End}}, nil
	}
	if p.atPunct("*") {
		end := p.advance().Span.End
		return &ast.UseGlob{Span: token.Span{Start: start, End: end}}, nil
	}
	if p.atPunct("{") {
		p.advance()
		var items []ast.UseTree
		for !p.atPunct("}") {
			item, err := p.parseUseTree()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if p.atPunct(",") {
				p.advance()
				continue
			}
			break
		}
		end := p.cur().Span.End
		if _, err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		return &ast.UseGroup{Items: items, Span: token.Span{Start: start, End: end}}, nil
	}

	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if p.atPunct("::") {
		p.advance()
		rest, err := p.parseUseTree()
		if err != nil {
			return nil, err
		}
		return &ast.UsePath{Segment: id, Rest: rest, Span: token.Span{Start: start, End: rest.TreeSpan().End}}, nil
	}
	if p.atIdent("as") {
		p.advance()
		rename, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		return &ast.UseRename{Ident: id, Rename: rename, Span: token.Span{Start: start, End: rename.Span.End}}, nil
	}
	return &ast.UseName{Ident: id, Span: token.Span{Start: start, End: id.Span.End}}, nil
}

func (p *parser) parseFn(vis ast.Visibility, start token.Position) (ast.Item, error) {
	p.advance() // fn
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	generics, err := p.parseGenerics()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.atPunct(")") {
		pid, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		var typ ast.Path
		if p.atPunct(":") {
			p.advance()
			typ, err = p.parseTypeRef()
			if err != nil {
				return nil, err
			}
		}
		params = append(params, ast.Param{Ident: pid, Type: typ})
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	// Optional return type `-> Type`, consumed loosely. The lexer has no
	// two-char "->" token, so it arrives as adjacent "-" and ">" tokens.
	if p.atPunct("-") {
		p.advance()
		if _, err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		if _, err := p.parseTypeRef(); err != nil {
			return nil, err
		}
	}
	hasBody := false
	if p.atPunct("{") {
		hasBody = true
		if err := p.skipBlock(); err != nil {
			return nil, err
		}
	} else {
		end = p.cur().Span.End
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
	}
	return &ast.FnDecl{Ident: id, Vis: vis, Generics: generics, Params: params, HasBody: hasBody, Span: token.Span{Start: start, End: end}}, nil
}

// skipBlock consumes a balanced `{ ... }` block without interpreting its
// contents — function/impl bodies are not part of the resolution contract.
func (p *parser) skipBlock() error {
	if _, err := p.expectPunct("{"); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		if p.atEOF() {
			return p.errorf("unexpected end of input inside block")
		}
		if p.atPunct("{") {
			depth++
		} else if p.atPunct("}") {
			depth--
		}
		p.advance()
	}
	return nil
}

func (p *parser) parseFieldsBlockOrUnit() ([]ast.Field, bool, error) {
	if p.atPunct(";") {
		p.advance()
		return nil, false, nil
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, false, err
	}
	var fields []ast.Field
	for !p.atPunct("}") {
		fstart := p.cur().Span.Start
		fvis, err := p.parseVisibility()
		if err != nil {
			return nil, false, err
		}
		fid, err := p.parseIdent()
		if err != nil {
			return nil, false, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, false, err
		}
		ftyp, err := p.parseTypeRef()
		if err != nil {
			return nil, false, err
		}
		fields = append(fields, ast.Field{Ident: fid, Vis: fvis, Type: ftyp, Span: token.Span{Start: fstart, End: ftyp.Span.End}})
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

func (p *parser) parseStruct(vis ast.Visibility, start token.Position) (ast.Item, error) {
	p.advance() // struct
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	generics, err := p.parseGenerics()
	if err != nil {
		return nil, err
	}
	fields, _, err := p.parseFieldsBlockOrUnit()
	if err != nil {
		return nil, err
	}
	end := p.toks[p.pos-1].Span.End
	return &ast.StructDecl{Ident: id, Vis: vis, Generics: generics, Fields: fields, Span: token.Span{Start: start, End: end}}, nil
}

func (p *parser) parseEnum(vis ast.Visibility, start token.Position) (ast.Item, error) {
	p.advance() // enum
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	generics, err := p.parseGenerics()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var variants []ast.Variant
	for !p.atPunct("}") {
		vstart := p.cur().Span.Start
		vid, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		fields, _, err := p.parseVariantFields()
		if err != nil {
			return nil, err
		}
		variants = append(variants, ast.Variant{Ident: vid, Fields: fields, Span: token.Span{Start: vstart, End: p.toks[p.pos-1].Span.End}})
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return &ast.EnumDecl{Ident: id, Vis: vis, Generics: generics, Variants: variants, Span: token.Span{Start: start, End: end}}, nil
}

// parseVariantFields parses an enum variant's optional `{ ... }` field
// list; a bare variant (no braces) has none.
func (p *parser) parseVariantFields() ([]ast.Field, bool, error) {
	if !p.atPunct("{") {
		return nil, false, nil
	}
	return p.parseFieldsBlockOrUnit()
}

func (p *parser) parseTraitOrAlias(vis ast.Visibility, start token.Position) (ast.Item, error) {
	p.advance() // trait
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	generics, err := p.parseGenerics()
	if err != nil {
		return nil, err
	}
	if p.atPunct("=") {
		// trait alias: `trait Name = Bound + Bound;` — unsupported.
		for !p.atPunct(";") && !p.atEOF() {
			p.advance()
		}
		end := p.cur().Span.End
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return &ast.UnsupportedDecl{Kind: "trait alias", Span: token.Span{Start: start, End: end}}, nil
	}
	// Optional supertrait bounds `: Bound + Bound`, skipped.
	if p.atPunct(":") {
		p.advance()
		for !p.atPunct("{") && !p.atEOF() {
			if p.atPunct("<") {
				if err := p.skipAngleBrackets(); err != nil {
					return nil, err
				}
				continue
			}
			p.advance()
		}
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	items, err := p.parseItems(false)
	if err != nil {
		return nil, err
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return &ast.TraitDecl{Ident: id, Vis: vis, Generics: generics, Items: items, Span: token.Span{Start: start, End: end}}, nil
}

func (p *parser) parseImpl(start token.Position) (ast.Item, error) {
	p.advance() // impl
	generics, err := p.parseGenerics()
	if err != nil {
		return nil, err
	}
	first, err := p.parseTypeRef()
	if err != nil {
		return nil, err
	}
	var traitPath, selfType ast.Path
	if p.atIdent("for") {
		p.advance()
		traitPath = first
		selfType, err = p.parseTypeRef()
		if err != nil {
			return nil, err
		}
	} else {
		selfType = first
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	items, err := p.parseItems(false)
	if err != nil {
		return nil, err
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return &ast.ImplDecl{Generics: generics, TraitPath: traitPath, SelfType: selfType, Items: items, Span: token.Span{Start: start, End: end}}, nil
}

func (p *parser) parseConst(vis ast.Visibility, start token.Position) (ast.Item, error) {
	p.advance() // const|static
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	var typ ast.Path
	if p.atPunct(":") {
		p.advance()
		typ, err = p.parseTypeRef()
		if err != nil {
			return nil, err
		}
	}
	if p.atPunct("=") {
		for !p.atPunct(";") && !p.atEOF() {
			p.advance()
		}
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.ConstDecl{Ident: id, Vis: vis, Type: typ, Span: token.Span{Start: start, End: end}}, nil
}

func (p *parser) parseType(vis ast.Visibility, start token.Position) (ast.Item, error) {
	p.advance() // type
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.parseGenerics(); err != nil {
		return nil, err
	}
	var alias ast.Path
	if p.atPunct("=") {
		p.advance()
		alias, err = p.parseTypeRef()
		if err != nil {
			return nil, err
		}
	}
	end := p.cur().Span.End
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.TypeDecl{Ident: id, Vis: vis, Alias: alias, Span: token.Span{Start: start, End: end}}, nil
}

// parseUnsupportedUntilSemiOrBlock consumes tokens through the item's
// terminator (`;` or a balanced `{}` block) and records it as
// unsupported (spec.md §4.2).
func (p *parser) parseUnsupportedUntilSemiOrBlock(kind string, start token.Position) (ast.Item, error) {
	for !p.atPunct(";") && !p.atPunct("{") && !p.atEOF() {
		p.advance()
	}
	end := p.cur().Span.End
	if p.atPunct("{") {
		if err := p.skipBlock(); err != nil {
			return nil, err
		}
	} else if p.atPunct(";") {
		end = p.advance().Span.End
	}
	return &ast.UnsupportedDecl{Kind: kind, Span: token.Span{Start: start, End: end}}, nil
}
