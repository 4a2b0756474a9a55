package matcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/treegrep/treegrep/pkg/language"
	"github.com/treegrep/treegrep/pkg/parser"
	"github.com/treegrep/treegrep/pkg/query"
)

func parseSource(t *testing.T, name, src string, lang language.Language) *parser.Result {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	p := parser.New()
	t.Cleanup(p.Close)

	res, err := p.ParseFile(context.Background(), path, lang, 0)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	t.Cleanup(func() {
		res.Close()
		res.Source.Close()
	})
	return res
}

func compile(t *testing.T, src string, lang language.Language, capture string) *query.Compiled {
	t.Helper()
	c, err := query.Compile([]byte(src), lang, capture)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestRunBasicCapture(t *testing.T) {
	res := parseSource(t, "a.go", "package main\n\nfunc one() {}\n\nfunc two() {}\n", language.LangGo)
	c := compile(t, `(function_declaration name: (identifier) @name)`, language.LangGo, "")

	matches, err := Run(c, res, Options{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}

	first := matches[0]
	if first.StartLine != 3 || first.StartCol != 5 {
		t.Errorf("first match at (%d, %d), want (3, 5)", first.StartLine, first.StartCol)
	}
	if first.LineText != "func one() {}" {
		t.Errorf("LineText = %q, want %q", first.LineText, "func one() {}")
	}

	// Ascending (start, end) order.
	if matches[1].StartByte <= matches[0].StartByte {
		t.Error("matches not in ascending start order")
	}
}

func TestRunTargetCaptureSelection(t *testing.T) {
	src := "package main\n\ntype S struct {\n\tpos int\n\tneg int\n}\n"
	res := parseSource(t, "s.go", src, language.LangGo)

	// Whole field declaration as target, constrained by the name capture.
	q := `((field_declaration name: (field_identifier) @n) @f (#eq? @n "pos"))`
	c := compile(t, q, language.LangGo, "f")

	matches, err := Run(c, res, Options{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].StartLine != 4 {
		t.Errorf("match on line %d, want 4", matches[0].StartLine)
	}
	if matches[0].LineText != "\tpos int" {
		t.Errorf("LineText = %q, want %q", matches[0].LineText, "\tpos int")
	}
}

func TestRunRegexPredicate(t *testing.T) {
	src := "package main\n\ntype S struct {\n\tpos int\n\tneg int\n}\n"
	res := parseSource(t, "s.go", src, language.LangGo)

	q := `((field_declaration name: (field_identifier) @n) (#match? @n "^p"))`
	c := compile(t, q, language.LangGo, "")

	matches, err := Run(c, res, Options{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].LineText != "\tpos int" {
		t.Errorf("matched %q, want the pos field", matches[0].LineText)
	}
}

func TestRunJudgeFilters(t *testing.T) {
	res := parseSource(t, "a.go", "package main\n\nfunc keep() {}\n\nfunc drop() {}\n", language.LangGo)
	c := compile(t, `(function_declaration name: (identifier) @name)`, language.LangGo, "")

	judge := func(tree *sitter.Tree, node *sitter.Node, source []byte) (bool, error) {
		return string(source[node.StartByte():node.EndByte()]) == "keep", nil
	}

	matches, err := Run(c, res, Options{Judge: judge})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].LineText != "func keep() {}" {
		t.Errorf("LineText = %q, want the kept function", matches[0].LineText)
	}
}

func TestRunJudgeErrorDiscardsFile(t *testing.T) {
	res := parseSource(t, "a.go", "package main\n\nfunc f() {}\n", language.LangGo)
	c := compile(t, `(function_declaration) @f`, language.LangGo, "")

	boom := errors.New("boom")
	judge := func(tree *sitter.Tree, node *sitter.Node, source []byte) (bool, error) {
		return false, boom
	}

	matches, err := Run(c, res, Options{Judge: judge})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if matches != nil {
		t.Error("a judge error must discard the file's matches")
	}
}

func TestRunAllVisitsEveryNode(t *testing.T) {
	res := parseSource(t, "a.go", "package main\n\nfunc f() {}\n", language.LangGo)

	// Accept only function declarations: plugin-only mode with a selective
	// judge.
	judge := func(tree *sitter.Tree, node *sitter.Node, source []byte) (bool, error) {
		return node.Type() == "function_declaration", nil
	}

	matches, err := RunAll(res, Options{Judge: judge})
	if err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].StartLine != 3 {
		t.Errorf("match on line %d, want 3", matches[0].StartLine)
	}
}

func TestRunContextLines(t *testing.T) {
	src := "package main\n\n// above\nfunc f() {}\n// below\n"
	res := parseSource(t, "a.go", src, language.LangGo)
	c := compile(t, `(function_declaration) @f`, language.LangGo, "")

	matches, err := Run(c, res, Options{ContextLines: 1})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	m := matches[0]
	if len(m.ContextBefore) != 1 || m.ContextBefore[0] != "// above" {
		t.Errorf("ContextBefore = %v, want [// above]", m.ContextBefore)
	}
	if len(m.ContextAfter) != 1 || m.ContextAfter[0] != "// below" {
		t.Errorf("ContextAfter = %v, want [// below]", m.ContextAfter)
	}
}

func TestRunDuplicatesPreserved(t *testing.T) {
	// Two patterns fire at the same node; both firings are reported.
	res := parseSource(t, "a.go", "package main\n\nfunc f() {}\n", language.LangGo)
	c := compile(t, "(function_declaration) @f\n(function_declaration) @f", language.LangGo, "")

	matches, err := Run(c, res, Options{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 (duplicates preserved)", len(matches))
	}
	if matches[0].StartByte != matches[1].StartByte || matches[0].EndByte != matches[1].EndByte {
		t.Error("duplicate firings should cover the same range")
	}
}
