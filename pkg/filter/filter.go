// Package filter loads user-supplied filter plugins and invokes them per
// candidate match.
//
// A filter plugin is a Go plugin (built with -buildmode=plugin) exporting:
//
//	func FilterInit(arg string) (any, error)
//	    One-time initialization. Receives the --filter-arg string ("" when
//	    absent) and returns an opaque per-run context.
//
//	func FilterJudge(ctx any, tree *sitter.Tree, node *sitter.Node, source []byte) bool
//	    Judges one candidate. The tree, node and source bytes are borrows
//	    valid only for the duration of the call.
//
//	var FilterThreadSafe bool
//	    Capability flag. When false (or absent), judge calls are serialized.
//
//	func FilterTeardown(ctx any)
//	    Optional. Called once at shutdown after all workers have quiesced.
//
// The host and plugin share the process, so no bytes are marshalled across
// the boundary; both sides reference the same in-memory tree.
package filter

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Symbol names resolved from the plugin.
const (
	SymbolInit       = "FilterInit"
	SymbolJudge      = "FilterJudge"
	SymbolThreadSafe = "FilterThreadSafe"
	SymbolTeardown   = "FilterTeardown"
)

// InitFunc is the signature of the plugin's initialization entry.
type InitFunc = func(arg string) (any, error)

// JudgeFunc is the signature of the plugin's judgment entry.
type JudgeFunc = func(ctx any, tree *sitter.Tree, node *sitter.Node, source []byte) bool

// TeardownFunc is the signature of the plugin's optional teardown entry.
type TeardownFunc = func(ctx any)
