package scanner

import (
	"path/filepath"
	"testing"

	"github.com/treegrep/treegrep/internal/testutil"
	"github.com/treegrep/treegrep/pkg/config"
	"github.com/treegrep/treegrep/pkg/language"
)

func scanTasks(t *testing.T, cfg *config.Config, root string) map[string]language.Language {
	t.Helper()
	s := NewScanner(cfg)
	tasks, err := s.ScanDir(root)
	if err != nil {
		t.Fatalf("ScanDir error: %v", err)
	}
	got := make(map[string]language.Language, len(tasks))
	for _, task := range tasks {
		rel, _ := filepath.Rel(root, task.Path)
		got[rel] = task.Language
	}
	return got
}

func TestScanDirClassifiesByExtension(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"a.go":      "package a",
		"b.py":      "x = 1",
		"c.txt":     "not source",
		"sub/d.rs":  "fn d() {}",
		"sub/e.xyz": "???",
	})

	got := scanTasks(t, config.DefaultConfig(), root)

	want := map[string]language.Language{
		"a.go": language.LangGo,
		"b.py": language.LangPython,
	}
	want[filepath.Join("sub", "d.rs")] = language.LangRust
	if len(got) != len(want) {
		t.Fatalf("got %d tasks (%v), want %d", len(got), got, len(want))
	}
	for rel, lang := range want {
		if got[rel] != lang {
			t.Errorf("%s classified as %v, want %v", rel, got[rel], lang)
		}
	}
}

func TestScanDirExcludePatterns(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"keep.go":          "package a",
		"vendor/skip.go":   "package b",
		"generated.min.js": "x",
		"lib.js":           "x",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	got := scanTasks(t, cfg, root)

	if _, ok := got["keep.go"]; !ok {
		t.Error("keep.go should be scanned")
	}
	if _, ok := got["lib.js"]; !ok {
		t.Error("lib.js should be scanned")
	}
	if _, ok := got[filepath.Join("vendor", "skip.go")]; ok {
		t.Error("vendor/ should be excluded")
	}
	if _, ok := got["generated.min.js"]; ok {
		t.Error("*.min.js should be excluded")
	}
}

func TestScanDirGitignore(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		".gitignore": "ignored.go\n",
		"ignored.go": "package a",
		"kept.go":    "package a",
	})
	// A .git directory marks the repository root for gitignore loading.
	testutil.WriteFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main\n")

	cfg := config.DefaultConfig()
	got := scanTasks(t, cfg, root)

	if _, ok := got["kept.go"]; !ok {
		t.Error("kept.go should be scanned")
	}
	if _, ok := got["ignored.go"]; ok {
		t.Error("ignored.go should be excluded by .gitignore")
	}
}

func TestScanDirSkipsHidden(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		".hidden/a.go": "package a",
		".secret.go":   "package a",
		"visible.go":   "package a",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	got := scanTasks(t, cfg, root)
	if len(got) != 1 {
		t.Fatalf("got %v, want only visible.go", got)
	}

	cfg.Exclude.Hidden = true
	got = scanTasks(t, cfg, root)
	if _, ok := got[".secret.go"]; !ok {
		t.Error(".secret.go should be scanned with Hidden enabled")
	}
}

func TestForceLanguage(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"script":  "print(1)",
		"data.py": "x = 1",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	s := NewScanner(cfg)
	s.ForceLanguage(language.LangPython)
	tasks, err := s.ScanDir(root)
	if err != nil {
		t.Fatalf("ScanDir error: %v", err)
	}

	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2 (override includes extensionless files)", len(tasks))
	}
	for _, task := range tasks {
		if task.Language != language.LangPython {
			t.Errorf("%s classified as %v, want python", task.Path, task.Language)
		}
	}
}

func TestScanPathsDirectFile(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{"a.go": "package a"})

	s := NewScanner(config.DefaultConfig())
	tasks, err := s.ScanPaths([]string{filepath.Join(root, "a.go")})
	if err != nil {
		t.Fatalf("ScanPaths error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Language != language.LangGo {
		t.Fatalf("tasks = %v, want one Go task", tasks)
	}
}

func TestScanPathsMissing(t *testing.T) {
	s := NewScanner(config.DefaultConfig())
	if _, err := s.ScanPaths([]string{filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestScanDirDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"b.go":     "package b",
		"a.go":     "package a",
		"sub/c.go": "package c",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	s := NewScanner(cfg)
	tasks, err := s.ScanDir(root)
	if err != nil {
		t.Fatalf("ScanDir error: %v", err)
	}

	var rels []string
	for _, task := range tasks {
		rel, _ := filepath.Rel(root, task.Path)
		rels = append(rels, rel)
	}
	want := []string{"a.go", "b.go", filepath.Join("sub", "c.go")}
	if len(rels) != len(want) {
		t.Fatalf("rels = %v, want %v", rels, want)
	}
	for i := range want {
		if rels[i] != want[i] {
			t.Fatalf("rels = %v, want %v (lexical walk order)", rels, want)
		}
	}
}
