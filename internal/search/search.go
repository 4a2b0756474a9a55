// Package search runs the per-file match pipeline: classify, parse, query,
// filter, and emit results in walker order.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/treegrep/treegrep/internal/cache"
	"github.com/treegrep/treegrep/internal/fileproc"
	"github.com/treegrep/treegrep/internal/scanner"
	"github.com/treegrep/treegrep/pkg/config"
	"github.com/treegrep/treegrep/pkg/filter"
	"github.com/treegrep/treegrep/pkg/language"
	"github.com/treegrep/treegrep/pkg/matcher"
	"github.com/treegrep/treegrep/pkg/parser"
	"github.com/treegrep/treegrep/pkg/query"
)

// Options configures one search run.
type Options struct {
	// Paths to search; directories are walked.
	Paths []string

	// ForceLanguage treats every file as this language. LangUnknown (or the
	// zero value) means classify by extension.
	ForceLanguage language.Language

	// ContextLines captures N lines of context around each match.
	ContextLines int

	// Progress, when non-nil, is called once per completed file.
	Progress func()
}

// Stats summarizes a run.
type Stats struct {
	FilesScanned     int
	FilesMatched     int
	MatchCount       int
	FileErrors       *fileproc.ProcessingErrors
	SkippedLanguages []language.Language
	Elapsed          time.Duration
}

// Engine owns the process-wide pieces of the pipeline: the compiled-query
// cache, the optional filter plugin and the result cache.
type Engine struct {
	cfg     *config.Config
	queries *query.Cache
	host    *filter.Host
	results *cache.Cache
	digest  uint64
}

// New builds an engine. filterPath loads a filter plugin (fatal on failure);
// querySource may be nil only when a plugin is present. The query is
// validated here so configuration errors surface before any file is touched.
func New(cfg *config.Config, querySource []byte, captureName, filterPath, filterArg string) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if querySource == nil && filterPath == "" {
		return nil, errors.New("a query or a filter plugin is required")
	}

	e := &Engine{cfg: cfg}

	if filterPath != "" {
		host, err := filter.Load(filterPath, filterArg)
		if err != nil {
			return nil, err
		}
		e.host = host
	}

	if querySource != nil {
		e.queries = query.NewCache(querySource, captureName)
		e.digest = query.Digest(querySource)
		if err := e.queries.Validate(); err != nil {
			e.Close()
			return nil, err
		}
	}

	results, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.results = results

	return e, nil
}

// Close releases the filter plugin after all workers have quiesced.
func (e *Engine) Close() {
	if e.host != nil {
		e.host.Close()
		e.host = nil
	}
}

// SkippedLanguages returns the languages whose query compilation failed.
func (e *Engine) SkippedLanguages() []language.Language {
	if e.queries == nil {
		return nil
	}
	return e.queries.Skipped()
}

// Run walks opts.Paths and streams one FileResult per scanned file to emit,
// in walker order, including files with no matches. Cancel ctx to stop: queued tasks become no-ops
// and in-flight parses are left to finish.
func (e *Engine) Run(ctx context.Context, opts Options, emit func(matcher.FileResult)) (*Stats, error) {
	start := time.Now()

	scan := scanner.NewScanner(e.cfg)
	if opts.ForceLanguage != language.LangUnknown && opts.ForceLanguage != "" {
		scan.ForceLanguage(opts.ForceLanguage)
	}
	tasks, err := scan.ScanPaths(opts.Paths)
	if err != nil {
		return nil, err
	}

	stats := &Stats{FilesScanned: len(tasks), FileErrors: &fileproc.ProcessingErrors{}}

	procOpts := fileproc.Options{
		Workers: e.cfg.Search.Workers,
		Window:  e.cfg.Search.DispatchWindow,
	}
	fileproc.MapOrdered(ctx, tasks, procOpts,
		func(psr *parser.Parser, task scanner.Task) (matcher.FileResult, error) {
			return e.searchFile(psr, task, opts.ContextLines), nil
		},
		func(task scanner.Task, res matcher.FileResult, err error) {
			if opts.Progress != nil {
				opts.Progress()
			}
			if err != nil {
				// Cancelled before the task started; nothing to report.
				return
			}
			if res.Err != nil {
				stats.FileErrors.Add(res.Path, res.Err)
			}
			if len(res.Matches) > 0 {
				stats.FilesMatched++
				stats.MatchCount += len(res.Matches)
			}
			emit(res)
		})

	// Report only languages the walk actually produced files for; Validate
	// probes grammars the tree may not contain.
	seen := make(map[language.Language]bool, len(tasks))
	for _, task := range tasks {
		seen[task.Language] = true
	}
	for _, lang := range e.SkippedLanguages() {
		if seen[lang] {
			stats.SkippedLanguages = append(stats.SkippedLanguages, lang)
		}
	}
	stats.Elapsed = time.Since(start)
	return stats, nil
}

// searchFile runs the pipeline for one file. All failures below the
// configuration level are non-fatal and land in FileResult.Err.
func (e *Engine) searchFile(psr *parser.Parser, task scanner.Task, contextLines int) matcher.FileResult {
	res := matcher.FileResult{Path: task.Path}

	var compiled *query.Compiled
	if e.queries != nil {
		var err error
		compiled, err = e.queries.Get(task.Language)
		if errors.Is(err, query.ErrSkip) {
			// The query does not compile for this language; skip silently.
			return res
		}
		if err != nil {
			res.Err = err
			return res
		}
	}

	src, err := parser.LoadSource(task.Path, e.cfg.Search.MmapThreshold)
	if err != nil {
		res.Err = err
		return res
	}
	defer src.Close()

	if max := e.cfg.Search.MaxFileSize; max > 0 && int64(len(src.Data)) > max {
		res.Err = &parser.FileTooLargeError{Path: task.Path, Size: int64(len(src.Data))}
		return res
	}

	var key string
	if e.results.Enabled() && e.host == nil {
		key = cache.Key(src.Data, e.digest, task.Language.String(), e.targetName(compiled))
		if matches, ok := e.results.Get(key); ok {
			res.Matches = matches
			return res
		}
	}

	// Once a task has started its parse runs to completion; cancellation is
	// only observed between tasks.
	parsed, err := psr.Parse(context.Background(), src, task.Language)
	if err != nil {
		var parseFailed *parser.ParseFailedError
		if errors.As(err, &parseFailed) {
			// A file the grammar cannot parse has no matches; the run
			// continues.
			res.Err = parseFailed
			return res
		}
		res.Err = err
		return res
	}
	defer parsed.Close()

	matchOpts := matcher.Options{ContextLines: contextLines}
	if e.host != nil {
		matchOpts.Judge = e.host.Judge
	}

	var matches []matcher.Range
	if compiled != nil {
		matches, err = matcher.Run(compiled, parsed, matchOpts)
	} else {
		matches, err = matcher.RunAll(parsed, matchOpts)
	}
	if err != nil {
		// A plugin fault discards this file's results only.
		res.Err = err
		return res
	}
	res.Matches = matches

	if key != "" {
		_ = e.results.Set(key, matches)
	}
	return res
}

func (e *Engine) targetName(compiled *query.Compiled) string {
	if compiled == nil {
		return ""
	}
	return compiled.TargetName()
}
