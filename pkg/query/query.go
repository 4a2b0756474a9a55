// Package query compiles tree-sitter queries and caches them per language.
package query

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/treegrep/treegrep/pkg/language"
)

// QueryHasNoCapturesError rejects a query that defines no captures: without a
// capture there is no range to report.
type QueryHasNoCapturesError struct{}

func (e *QueryHasNoCapturesError) Error() string {
	return "query has no captures; add at least one @capture"
}

// NoSuchCaptureError reports a --capture name absent from the query.
type NoSuchCaptureError struct {
	Name     string
	Captures []string
}

func (e *NoSuchCaptureError) Error() string {
	return fmt.Sprintf("no such capture: %q (query defines %v)", e.Name, e.Captures)
}

// UnsupportedPredicateError reports a query predicate the evaluator does not
// implement.
type UnsupportedPredicateError struct {
	Name string
}

func (e *UnsupportedPredicateError) Error() string {
	return fmt.Sprintf("unsupported predicate: #%s", e.Name)
}

// supportedPredicates is the predicate set the match engine evaluates:
// textual equality and regular-expression match, plus their negations.
var supportedPredicates = map[string]bool{
	"eq?":        true,
	"not-eq?":    true,
	"match?":     true,
	"not-match?": true,
}

// Compiled is a query compiled against one language. Immutable after
// construction and safe to share across workers.
type Compiled struct {
	Query       *sitter.Query
	Language    language.Language
	Captures    []string
	TargetIndex uint32
}

// TargetName returns the name of the target capture.
func (c *Compiled) TargetName() string {
	return c.Captures[c.TargetIndex]
}

// Close releases the compiled query.
func (c *Compiled) Close() {
	if c.Query != nil {
		c.Query.Close()
		c.Query = nil
	}
}

// Digest returns a 64-bit digest of a query source, used for result-cache
// keys.
func Digest(source []byte) uint64 {
	return xxhash.Sum64(source)
}

// Compile compiles source against lang and resolves the target capture.
// captureName selects the target explicitly; when empty, the capture with the
// lexicographically smallest name is chosen.
func Compile(source []byte, lang language.Language, captureName string) (*Compiled, error) {
	grammar, err := lang.Grammar()
	if err != nil {
		return nil, err
	}

	q, err := sitter.NewQuery(source, grammar)
	if err != nil {
		return nil, err
	}

	captures := make([]string, q.CaptureCount())
	for i := range captures {
		captures[i] = q.CaptureNameForId(uint32(i))
	}
	if len(captures) == 0 {
		q.Close()
		return nil, &QueryHasNoCapturesError{}
	}

	if err := checkPredicates(q); err != nil {
		q.Close()
		return nil, err
	}

	target, err := resolveTarget(captures, captureName)
	if err != nil {
		q.Close()
		return nil, err
	}

	return &Compiled{
		Query:       q,
		Language:    lang,
		Captures:    captures,
		TargetIndex: target,
	}, nil
}

// checkPredicates rejects predicates outside the supported set at compile
// time rather than silently ignoring them at match time.
func checkPredicates(q *sitter.Query) error {
	for pattern := uint32(0); pattern < q.PatternCount(); pattern++ {
		for _, steps := range q.PredicatesForPattern(pattern) {
			if len(steps) == 0 || steps[0].Type != sitter.QueryPredicateStepTypeString {
				continue
			}
			operator := q.StringValueForId(steps[0].ValueId)
			if !supportedPredicates[operator] {
				return &UnsupportedPredicateError{Name: operator}
			}
		}
	}
	return nil
}

// resolveTarget picks the target capture index: the explicit name when given,
// else the lexicographically smallest capture name.
func resolveTarget(captures []string, captureName string) (uint32, error) {
	if captureName != "" {
		for i, name := range captures {
			if name == captureName {
				return uint32(i), nil
			}
		}
		sorted := make([]string, len(captures))
		copy(sorted, captures)
		sort.Strings(sorted)
		return 0, &NoSuchCaptureError{Name: captureName, Captures: sorted}
	}

	best := 0
	for i := 1; i < len(captures); i++ {
		if captures[i] < captures[best] {
			best = i
		}
	}
	return uint32(best), nil
}
