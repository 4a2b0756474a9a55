// Package language maps language tags and file extensions to tree-sitter grammars.
package language

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies a registered grammar by its lowercase tag.
type Language string

const (
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangTSX        Language = "tsx"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangBash       Language = "bash"
	LangUnknown    Language = "unknown"
)

// entry describes one registered language: its grammar factory and the
// extensions it claims. The table is fixed at build time.
type entry struct {
	grammar    func() *sitter.Language
	extensions []string
}

// registry is the compile-time language table. Each extension is listed under
// one grammar only; `.h` is listed under C++, so C++ wins the C/C++ header
// conflict.
var registry = map[Language]entry{
	LangGo:         {golang.GetLanguage, []string{".go"}},
	LangRust:       {rust.GetLanguage, []string{".rs"}},
	LangPython:     {python.GetLanguage, []string{".py", ".pyw", ".pyi"}},
	LangTypeScript: {typescript.GetLanguage, []string{".ts"}},
	LangTSX:        {tsx.GetLanguage, []string{".tsx", ".jsx"}},
	LangJavaScript: {javascript.GetLanguage, []string{".js", ".mjs", ".cjs"}},
	LangJava:       {java.GetLanguage, []string{".java"}},
	LangC:          {c.GetLanguage, []string{".c"}},
	LangCPP:        {cpp.GetLanguage, []string{".cpp", ".cc", ".cxx", ".hpp", ".hxx", ".h"}},
	LangCSharp:     {csharp.GetLanguage, []string{".cs"}},
	LangRuby:       {ruby.GetLanguage, []string{".rb"}},
	LangPHP:        {php.GetLanguage, []string{".php"}},
	LangBash:       {bash.GetLanguage, []string{".sh", ".bash"}},
}

var extensionIndex = buildExtensionIndex()

func buildExtensionIndex() map[string]Language {
	idx := make(map[string]Language)
	for lang, e := range registry {
		for _, ext := range e.extensions {
			idx[ext] = lang
		}
	}
	return idx
}

// String returns the language tag.
func (l Language) String() string {
	return string(l)
}

// Grammar returns the tree-sitter grammar for a registered language.
func (l Language) Grammar() (*sitter.Language, error) {
	e, ok := registry[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
	return e.grammar(), nil
}

// Extensions returns the file extensions claimed by a language.
func (l Language) Extensions() []string {
	e, ok := registry[l]
	if !ok {
		return nil
	}
	exts := make([]string, len(e.extensions))
	copy(exts, e.extensions)
	sort.Strings(exts)
	return exts
}

// ResolveTag maps a lowercase tag to a registered language.
// Returns LangUnknown for unregistered tags.
func ResolveTag(tag string) Language {
	lang := Language(strings.ToLower(strings.TrimSpace(tag)))
	if _, ok := registry[lang]; !ok {
		return LangUnknown
	}
	return lang
}

// ResolveExtension maps a file extension (with leading dot) to a language.
func ResolveExtension(ext string) Language {
	lang, ok := extensionIndex[strings.ToLower(ext)]
	if !ok {
		return LangUnknown
	}
	return lang
}

// Detect determines the language from a file path by extension alone.
// It performs no I/O.
func Detect(path string) Language {
	return ResolveExtension(filepath.Ext(path))
}

// All returns the registered languages in tag order.
func All() []Language {
	langs := make([]Language, 0, len(registry))
	for lang := range registry {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}
