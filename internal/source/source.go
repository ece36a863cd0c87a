// Package source models a ResolutionSource (spec.md §3): the origin of one
// parsed file, either a filesystem path or standard input. It owns reading
// source text into memory; nothing beyond that is kept open.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rhdl/rhdlc/internal/ast"
)

// DefaultStdinExtension is used to label stdin-sourced files when no
// filesystem extension is available (spec.md §4.1).
const DefaultStdinExtension = "rhdl"

// Kind distinguishes the two origins a ResolutionSource can have.
type Kind int

const (
	// KindFile denotes a file read from the filesystem.
	KindFile Kind = iota
	// KindStdin denotes the process's standard input stream.
	KindStdin
)

// Resolution is a ResolutionSource: a tagged value labeling a File for
// diagnostics and for the file finder's directory/extension inference.
type Resolution struct {
	Kind Kind
	Path string // valid only when Kind == KindFile
	// Name optionally labels the root this source backs (spec.md §9 open
	// question on root identity / SPEC_FULL.md §D.2). Empty by default.
	Name string
}

// NewFile constructs a filesystem-backed ResolutionSource.
func NewFile(path string) Resolution { return Resolution{Kind: KindFile, Path: path} }

// Stdin is the standard-input ResolutionSource.
var Stdin = Resolution{Kind: KindStdin}

// String renders the source the way diagnostics refer to it.
func (r Resolution) String() string {
	if r.Kind == KindStdin {
		return "<stdin>"
	}
	return r.Path
}

// Dir returns the working directory the file finder should resolve sibling
// and folder module candidates against: the parent directory of a file
// source, or the process's current directory for stdin.
func (r Resolution) Dir() (string, error) {
	if r.Kind == KindStdin {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("couldn't get the current working directory: %w", err)
		}
		return wd, nil
	}
	return filepath.Dir(r.Path), nil
}

// Extension returns the extension the file finder should use to look up
// module files: the extension of this source's path, or the fixed
// stdin fallback.
func (r Resolution) Extension() string {
	if r.Kind == KindStdin {
		return DefaultStdinExtension
	}
	ext := filepath.Ext(r.Path)
	return strings.TrimPrefix(ext, ".")
}

// Read loads the full text of the source into memory, stripping a leading
// UTF-8 BOM if present — hand-authored .rhdl files saved from Windows
// editors occasionally carry one, and the lexer has no use for it.
func Read(r Resolution) (string, error) {
	var rd io.Reader
	switch r.Kind {
	case KindStdin:
		rd = os.Stdin
	default:
		f, err := os.Open(r.Path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		rd = f
	}

	bomStripped := transform.NewReader(bufio.NewReader(rd), unicode.BOMOverride(transform.Nop))
	data, err := io.ReadAll(bomStripped)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// File is a parsed source unit (spec.md §3). It is immutable after parsing
// and is shared, by reference, between the file graph and every
// resolution-graph node that needs it for diagnostics.
type File struct {
	Content string
	Src     Resolution
	AST     *ast.File
}

// DisplayPath renders the filename the way the diagnostic renderer wants it
// (spec.md §4.8): stdin is "<stdin>"; a file named mod.<ext> is prefixed
// with its parent directory name so "mod.rhdl" files are distinguishable.
func (f *File) DisplayPath() string {
	if f.Src.Kind == KindStdin {
		return "<stdin>"
	}
	base := filepath.Base(f.Src.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "mod" {
		parent := filepath.Base(filepath.Dir(f.Src.Path))
		if parent != "" && parent != "." {
			return parent + "/" + base
		}
	}
	return base
}
