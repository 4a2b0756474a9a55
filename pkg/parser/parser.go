// Package parser produces tree-sitter syntax trees from source files.
package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/treegrep/treegrep/pkg/language"
)

// ParseFailedError reports a file the grammar could not produce a tree for.
// It is non-fatal: the file is treated as having no matches.
type ParseFailedError struct {
	Path string
	Err  error
}

func (e *ParseFailedError) Error() string {
	return fmt.Sprintf("%s: parse failed: %v", e.Path, e.Err)
}

func (e *ParseFailedError) Unwrap() error { return e.Err }

// Parser wraps a tree-sitter parser. Not safe for concurrent use; each worker
// owns its own instance.
type Parser struct {
	parser *sitter.Parser
}

// Result is a parsed file: the tree plus the decoded bytes it was built from.
// The tree borrows Source.Data; close the Result before closing the Source.
type Result struct {
	Tree     *sitter.Tree
	Language language.Language
	Source   *Source
}

// New creates a parser instance.
func New() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// ParseFile loads path (mmap above mmapThreshold) and parses it as lang.
func (p *Parser) ParseFile(ctx context.Context, path string, lang language.Language, mmapThreshold int64) (*Result, error) {
	src, err := LoadSource(path, mmapThreshold)
	if err != nil {
		return nil, err
	}

	res, err := p.Parse(ctx, src, lang)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return res, nil
}

// Parse parses already-loaded source bytes as lang.
func (p *Parser) Parse(ctx context.Context, src *Source, lang language.Language) (*Result, error) {
	grammar, err := lang.Grammar()
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(grammar)
	tree, err := p.parser.ParseCtx(ctx, nil, src.Data)
	if err != nil {
		return nil, &ParseFailedError{Path: src.Path, Err: err}
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, &ParseFailedError{Path: src.Path, Err: fmt.Errorf("no tree produced")}
	}

	return &Result{Tree: tree, Language: lang, Source: src}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// Close releases the tree. The underlying Source is left to the caller.
func (r *Result) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
	}
}

// Walk traverses the tree depth-first, calling visitor for each node. The
// visitor returns false to skip a node's children.
func Walk(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), visitor)
	}
}
