package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/source"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_PublicItemVisibleAcrossModules(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.rhdl", "mod a {\n    pub struct S;\n}\nuse a::S;\n")

	c := New()
	if err := c.Run(source.NewFile(top)); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if c.Diags.HasErrors() {
		t.Fatalf("expected no diagnostics, got: %v", c.Diags.Diagnostics())
	}
	if c.RunID == "" {
		t.Fatal("expected a non-empty RunID")
	}
}

func TestRun_PrivateItemNotVisibleAcrossModules(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.rhdl", "mod a {\n    struct S;\n}\nuse a::S;\n")

	c := New()
	if err := c.Run(source.NewFile(top)); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if !hasCode(c.Diags, diagnostic.CodeItemVisibility) {
		t.Fatalf("expected an ItemVisibilityError, got: %v", c.Diags.Diagnostics())
	}
}

func TestRun_DuplicateDefinitionReported(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.rhdl", "mod m {\n    fn f() {}\n    fn f() {}\n}\n")

	c := New()
	if err := c.Run(source.NewFile(top)); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if !hasCode(c.Diags, diagnostic.CodeMultipleDefinition) {
		t.Fatalf("expected a MultipleDefinitionError, got: %v", c.Diags.Diagnostics())
	}
}

func TestRun_DuplicateModuleFileReported(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.rhdl", "mod a;\n")
	writeFile(t, dir, "a.rhdl", "pub struct S;\n")
	writeFile(t, dir, "a/mod.rhdl", "pub struct S;\n")

	c := New()
	if err := c.Run(source.NewFile(top)); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if !hasCode(c.Diags, diagnostic.CodeDuplicateModuleFile) {
		t.Fatalf("expected a DuplicateModuleFile diagnostic, got: %v", c.Diags.Diagnostics())
	}
}

func hasCode(diags *diagnostic.List, code diagnostic.Code) bool {
	for _, d := range diags.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}
