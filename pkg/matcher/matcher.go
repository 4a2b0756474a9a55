// Package matcher runs compiled queries over syntax trees and produces match
// ranges.
package matcher

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/treegrep/treegrep/pkg/parser"
	"github.com/treegrep/treegrep/pkg/query"
)

// Range is one match: byte offsets into the decoded file bytes plus the
// derived positions. Lines are 1-based; columns are 0-based byte columns.
type Range struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`

	// LineText is the full text of the line containing the match start.
	// Captured at match time because the file bytes are released before the
	// printer runs.
	LineText string `json:"line_text"`

	// Context lines around the match, populated when context capture is
	// requested.
	ContextBefore []string `json:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty"`
}

// FileResult is everything one file produced: its matches in ascending
// (start, end) order plus an optional non-fatal error.
type FileResult struct {
	Path    string  `json:"path"`
	Matches []Range `json:"matches,omitempty"`
	Err     error   `json:"-"`
}

// Judge post-filters one candidate node. The tree and bytes are borrows valid
// only for the duration of the call.
type Judge func(tree *sitter.Tree, node *sitter.Node, source []byte) (bool, error)

// Options controls a match run.
type Options struct {
	// Judge, when non-nil, decides each candidate. A Judge error abandons the
	// file's results.
	Judge Judge
	// ContextLines captures N lines before and after each match.
	ContextLines int
}

// Run executes compiled against the parsed file and returns the ranges bound
// to the target capture. A match yielding several nodes under the target
// capture emits one range per node; duplicate ranges from query alternations
// are preserved.
func Run(compiled *query.Compiled, res *parser.Result, opts Options) ([]Range, error) {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(compiled.Query, res.Tree.RootNode())

	var nodes []*sitter.Node
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		m = cursor.FilterPredicates(m, res.Source.Data)
		if m == nil {
			continue
		}
		for _, c := range m.Captures {
			if c.Index == compiled.TargetIndex {
				nodes = append(nodes, c.Node)
			}
		}
	}

	return judgeAndResolve(nodes, res, opts)
}

// RunAll treats every node in the tree as a candidate. Used when no query was
// supplied and the filter plugin alone decides what matches.
func RunAll(res *parser.Result, opts Options) ([]Range, error) {
	var nodes []*sitter.Node
	parser.Walk(res.Tree.RootNode(), func(n *sitter.Node) bool {
		nodes = append(nodes, n)
		return true
	})
	return judgeAndResolve(nodes, res, opts)
}

func judgeAndResolve(nodes []*sitter.Node, res *parser.Result, opts Options) ([]Range, error) {
	if opts.Judge != nil {
		kept := nodes[:0]
		for _, n := range nodes {
			ok, err := opts.Judge(res.Tree, n, res.Source.Data)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, n)
			}
		}
		nodes = kept
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].StartByte() != nodes[j].StartByte() {
			return nodes[i].StartByte() < nodes[j].StartByte()
		}
		return nodes[i].EndByte() < nodes[j].EndByte()
	})

	ix := NewLineIndex(res.Source.Data)
	ranges := make([]Range, 0, len(nodes))
	for _, n := range nodes {
		ranges = append(ranges, resolveRange(ix, n, opts.ContextLines))
	}
	return ranges, nil
}

func resolveRange(ix *LineIndex, n *sitter.Node, contextLines int) Range {
	startLine, startCol := ix.Position(n.StartByte())
	endLine, endCol := ix.Position(n.EndByte())

	r := Range{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   endLine,
		EndCol:    endCol,
		LineText:  ix.LineText(startLine),
	}

	if contextLines > 0 {
		last := ix.LineCount()
		for line := startLine - contextLines; line < startLine; line++ {
			if line >= 1 {
				r.ContextBefore = append(r.ContextBefore, ix.LineText(line))
			}
		}
		for line := startLine + 1; line <= startLine+contextLines && line <= last; line++ {
			r.ContextAfter = append(r.ContextAfter, ix.LineText(line))
		}
	}
	return r
}
