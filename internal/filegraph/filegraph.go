// Package filegraph implements the file finder (spec.md §4.1): starting
// from one root source, it walks every content-less `mod` item, locates its
// backing file, parses it, and recurses, producing a tree of parsed files.
package filegraph

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rhdl/rhdlc/internal/ast"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/parser"
	"github.com/rhdl/rhdlc/internal/source"
)

// Edge is a file-graph edge: Parent's file contains a content-less `mod`
// reached by Path (the identifier path from Parent's own root, raw-ident
// prefixes stripped). Child is nil when the backing file could not be
// found or read — the file finder inserts this placeholder and continues
// (spec.md §7).
type Edge struct {
	Parent *source.File
	Path   []string
	Child  *source.File
}

// FileGraph is the tree of parsed files rooted at one ResolutionSource.
type FileGraph struct {
	Root  *source.File
	Edges []Edge
}

// Lookup finds the child file for a content-less mod reached from parent by
// path, mirroring the edge recorded when parent's own mod item was walked.
func (fg *FileGraph) Lookup(parent *source.File, path []string) (*source.File, bool) {
	for _, e := range fg.Edges {
		if e.Parent == parent && samePath(e.Path, path) {
			return e.Child, e.Child != nil
		}
	}
	return nil, false
}

func samePath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Build runs the file finder starting from res, recording diagnostics into
// diags. It returns a non-nil error only when the root cannot even be read
// or its working directory cannot be determined — conditions from which no
// graph, however partial, can be built.
func Build(res source.Resolution, diags *diagnostic.List) (*FileGraph, error) {
	if _, err := res.Dir(); err != nil {
		diags.Add(&diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeWorkingDirectory,
			Message:  fmt.Sprintf("could not determine working directory: %s", err),
		})
		return nil, err
	}

	if res.Kind == source.KindFile {
		base := filepath.Base(res.Path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if stem == "mod" {
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeUnexpectedModFile,
				Message:  fmt.Sprintf("a file cannot be named mod.%s unless it is a module", res.Extension()),
				File:     &source.File{Src: res},
			})
			return &FileGraph{Root: &source.File{Src: res}}, nil
		}
	}

	content, err := source.Read(res)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", res, err)
	}

	rootFile := &source.File{Content: content, Src: res}
	astFile, perr := parser.Parse(content)
	if perr != nil {
		addParseError(diags, rootFile, perr)
		return &FileGraph{Root: rootFile}, nil
	}
	rootFile.AST = astFile

	fg := &FileGraph{Root: rootFile}
	ext := res.Extension()
	fg.walk(rootFile, astFile.Items, nil, ext, diags)
	return fg, nil
}

func addParseError(diags *diagnostic.List, f *source.File, err error) {
	var perr *parser.Error
	msg := err.Error()
	primary := diagnostic.Ref{Note: "syntax error"}
	if errors.As(err, &perr) {
		primary.Span = perr.Span
	}
	diags.Add(&diagnostic.Diagnostic{
		Severity: diagnostic.Error,
		Code:     diagnostic.CodeParseError,
		Message:  fmt.Sprintf("syntax error: %s", msg),
		File:     f,
		Primary:  primary,
	})
}

// walk descends file's items, accumulating the identifier path through
// inline (content-bearing) mods, locating the backing file for every
// content-less mod it finds, and recursing into newly found files.
func (fg *FileGraph) walk(file *source.File, items []ast.Item, prefix []string, ext string, diags *diagnostic.List) {
	for _, item := range items {
		mod, ok := item.(*ast.ModDecl)
		if !ok {
			continue
		}
		if mod.Content != nil {
			fg.walk(file, *mod.Content, append(append([]string{}, prefix...), mod.Ident.Name()), ext, diags)
			continue
		}
		fg.resolveBareMod(file, mod, prefix, ext, diags)
	}
}

func (fg *FileGraph) resolveBareMod(file *source.File, mod *ast.ModDecl, prefix []string, ext string, diags *diagnostic.List) {
	path := append(append([]string{}, prefix...), mod.Ident.Name())

	baseDir, err := baseDirFor(file)
	if err != nil {
		diags.Add(&diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeWorkingDirectory,
			Message:  fmt.Sprintf("could not determine working directory: %s", err),
			File:     file,
			Primary:  diagnostic.Ref{Span: mod.Span},
		})
		return
	}

	rel := filepath.Join(path...)
	siblingPath := filepath.Join(baseDir, rel+"."+ext)
	folderPath := filepath.Join(baseDir, rel, "mod."+ext)

	siblingContent, siblingErr := os.ReadFile(siblingPath)
	folderContent, folderErr := os.ReadFile(folderPath)

	if siblingErr == nil && folderErr == nil {
		diags.Add(&diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeDuplicateModuleFile,
			Message:  fmt.Sprintf("module `%s` backed by both %s and %s", strings.Join(path, "::"), siblingPath, folderPath),
			File:     file,
			Primary:  diagnostic.Ref{Span: mod.Span, Note: "ambiguous module file"},
		})
	}

	var childPath, childContent string
	switch {
	case siblingErr == nil:
		childPath, childContent = siblingPath, string(siblingContent)
	case folderErr == nil:
		childPath, childContent = folderPath, string(folderContent)
	default:
		diags.Add(&diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeModuleFileNotFound,
			Message:  fmt.Sprintf("no file found for module `%s` (tried %s)", strings.Join(path, "::"), siblingPath),
			File:     file,
			Primary:  diagnostic.Ref{Span: mod.Ident.Span, Note: siblingErr.Error()},
		})
		if !errors.Is(folderErr, os.ErrNotExist) {
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeModuleFileNotFound,
				Message:  fmt.Sprintf("folder candidate for module `%s` could not be read", strings.Join(path, "::")),
				File:     file,
				Primary:  diagnostic.Ref{Span: mod.Ident.Span, Note: folderErr.Error()},
			})
		}
		fg.Edges = append(fg.Edges, Edge{Parent: file, Path: path, Child: nil})
		return
	}

	childAST, perr := parser.Parse(childContent)
	child := &source.File{Content: childContent, Src: source.NewFile(childPath)}
	if perr != nil {
		addParseError(diags, child, perr)
		fg.Edges = append(fg.Edges, Edge{Parent: file, Path: path, Child: child})
		return
	}
	child.AST = childAST
	fg.Edges = append(fg.Edges, Edge{Parent: file, Path: path, Child: child})
	fg.walk(child, childAST.Items, nil, ext, diags)
}

func baseDirFor(file *source.File) (string, error) {
	if file.Src.Kind == source.KindStdin {
		return file.Src.Dir()
	}
	return filepath.Dir(file.Src.Path), nil
}
