package filter

import (
	"fmt"
	"plugin"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// LoadError reports a plugin that could not be loaded or is missing a
// required symbol. Fatal: the run does not start without its filter.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load filter plugin %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PluginError reports a judge call that panicked. Non-fatal: the file's
// results are discarded and the run continues.
type PluginError struct {
	Path string
	Err  error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("filter plugin %s: %v", e.Path, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

// Host owns a loaded filter plugin for the duration of a run.
type Host struct {
	path       string
	judge      JudgeFunc
	teardown   TeardownFunc
	ctx        any
	threadSafe bool

	// mu serializes judge calls for plugins that do not declare thread
	// safety.
	mu sync.Mutex
}

// Load opens the plugin at path, resolves its entry points and runs its
// initialization with arg. The returned Host is held until Close.
func Load(path, arg string) (*Host, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	initSym, err := p.Lookup(SymbolInit)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	initFn, ok := initSym.(InitFunc)
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%s has wrong signature", SymbolInit)}
	}

	judgeSym, err := p.Lookup(SymbolJudge)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	judgeFn, ok := judgeSym.(JudgeFunc)
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%s has wrong signature", SymbolJudge)}
	}

	h := &Host{path: path, judge: judgeFn}

	// The capability flag and teardown are optional.
	if sym, err := p.Lookup(SymbolThreadSafe); err == nil {
		if flag, ok := sym.(*bool); ok {
			h.threadSafe = *flag
		}
	}
	if sym, err := p.Lookup(SymbolTeardown); err == nil {
		if fn, ok := sym.(TeardownFunc); ok {
			h.teardown = fn
		}
	}

	ctx, err := initFn(arg)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("init: %w", err)}
	}
	h.ctx = ctx
	return h, nil
}

// ThreadSafe reports whether the plugin advertised concurrent judge calls.
func (h *Host) ThreadSafe() bool {
	return h.threadSafe
}

// Judge invokes the plugin for one candidate. A panic inside the plugin is
// caught and returned as a PluginError so a plugin fault fails one file, not
// the run.
func (h *Host) Judge(tree *sitter.Tree, node *sitter.Node, source []byte) (verdict bool, err error) {
	if !h.threadSafe {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	defer func() {
		if r := recover(); r != nil {
			verdict = false
			err = &PluginError{Path: h.path, Err: fmt.Errorf("judge panicked: %v", r)}
		}
	}()
	return h.judge(h.ctx, tree, node, source), nil
}

// Close runs the plugin's teardown. Call only after all workers have
// quiesced; the plugin itself stays mapped until process exit.
func (h *Host) Close() {
	if h.teardown != nil {
		h.teardown(h.ctx)
	}
}
