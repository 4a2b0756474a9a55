package query

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/treegrep/treegrep/pkg/language"
)

// ErrSkip marks a language whose grammar rejected the query. Files of that
// language are silently excluded from matching for the rest of the run.
var ErrSkip = errors.New("query does not compile for language")

// Cache compiles one query source against each language at most once per run.
// Concurrent callers for the same language block on the first compilation and
// then observe the recorded outcome.
type Cache struct {
	source      []byte
	captureName string

	mu    sync.Mutex
	slots map[language.Language]*slot
}

type slot struct {
	once     sync.Once
	done     atomic.Bool
	compiled *Compiled
	err      error
}

// NewCache creates a cache for one query source. captureName is the explicit
// target capture, empty for the lexicographic default.
func NewCache(source []byte, captureName string) *Cache {
	return &Cache{
		source:      source,
		captureName: captureName,
		slots:       make(map[language.Language]*slot),
	}
}

// Source returns the raw query text.
func (c *Cache) Source() []byte {
	return c.source
}

// Get returns the compiled query for lang, compiling on first call. A failed
// compilation is recorded and reported as ErrSkip on every call; target
// capture resolution failures and unsupported predicates are returned as-is
// so the caller can abort the run.
func (c *Cache) Get(lang language.Language) (*Compiled, error) {
	s := c.slot(lang)
	s.once.Do(func() {
		s.compiled, s.err = Compile(c.source, lang, c.captureName)
		s.done.Store(true)
	})
	if s.err != nil {
		var noCapture *QueryHasNoCapturesError
		var badCapture *NoSuchCaptureError
		var badPredicate *UnsupportedPredicateError
		if errors.As(s.err, &noCapture) || errors.As(s.err, &badCapture) || errors.As(s.err, &badPredicate) {
			return nil, s.err
		}
		return nil, ErrSkip
	}
	return s.compiled, nil
}

func (c *Cache) slot(lang language.Language) *slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[lang]
	if !ok {
		s = &slot{}
		c.slots[lang] = s
	}
	return s
}

// Validate checks the query at startup. It compiles against each registered
// language in tag order until one accepts the query; configuration errors
// (no captures, bad --capture name, unsupported predicate) surface from the
// first grammar that gets far enough to detect them. The query is rejected
// outright only when every registered grammar refuses it.
func (c *Cache) Validate() error {
	for _, lang := range language.All() {
		_, err := c.Get(lang)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrSkip) {
			return err
		}
	}
	return errors.New("query does not compile for any registered language")
}

// Skipped returns the languages whose compilation was attempted and failed,
// in tag order. Used for --verbose diagnostics and --stats.
func (c *Cache) Skipped() []language.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	var langs []language.Language
	for lang, s := range c.slots {
		if s.done.Load() && s.err != nil {
			langs = append(langs, lang)
		}
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}
