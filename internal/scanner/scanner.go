// Package scanner walks directory trees and classifies candidate files.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/treegrep/treegrep/pkg/config"
	"github.com/treegrep/treegrep/pkg/language"
)

// Task is one classified candidate file: its path and the language it will be
// parsed as.
type Task struct {
	Path     string
	Language language.Language
}

// Scanner finds and classifies source files. Files are emitted in walk order
// (lexical within each directory), which fixes the output order of the whole
// run.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher

	// forced, when set, classifies every file as this language regardless of
	// extension.
	forced language.Language
}

// NewScanner creates a scanner honoring cfg's exclude patterns.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg, forced: language.LangUnknown}
}

// ForceLanguage classifies all files as lang, even without a recognized
// extension.
func (s *Scanner) ForceLanguage(lang language.Language) {
	s.forced = lang
}

// classify returns the task language for path, or LangUnknown to drop it.
func (s *Scanner) classify(path string) language.Language {
	if s.forced != language.LangUnknown {
		return s.forced
	}
	return language.Detect(path)
}

// findGitRoot finds the enclosing git repository root, or "".
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config exclude patterns with the repository's
// .gitignore files (recursively, via go-git's ReadPatterns).
func (s *Scanner) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			fs := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(fs, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}
	pathParts := strings.Split(path, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(pathParts, isDir) {
			return true
		}
	}
	return false
}

// ScanDir recursively scans root for candidate files. Hidden directories and
// files are skipped unless configured otherwise; symlinks that escape root
// are never followed.
func (s *Scanner) ScanDir(root string) ([]Task, error) {
	tasks := make([]Task, 0, 1024)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		if relPath != "." && !s.config.Exclude.Hidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) {
			return nil
		}
		if lang := s.classify(path); lang != language.LangUnknown {
			tasks = append(tasks, Task{Path: path, Language: lang})
		}
		return nil
	})

	return tasks, walkErr
}

// ScanPaths scans multiple paths in order. Files given directly are always
// included (classification permitting); directories are walked.
func (s *Scanner) ScanPaths(paths []string) ([]Task, error) {
	var tasks []Task
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if lang := s.classify(path); lang != language.LangUnknown {
				tasks = append(tasks, Task{Path: path, Language: lang})
			}
			continue
		}
		found, err := s.ScanDir(path)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, found...)
	}
	return tasks, nil
}

// isWithinRoot checks containment after symlink resolution, preventing walks
// from escaping the scan root.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
