package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/treegrep/treegrep/internal/printer"
	"github.com/treegrep/treegrep/internal/progress"
	"github.com/treegrep/treegrep/internal/search"
	"github.com/treegrep/treegrep/pkg/language"
	"github.com/treegrep/treegrep/pkg/matcher"
)

// resolveQuery returns the query source from -q or -Q, or nil when a filter
// plugin alone drives the search. Misuse is a configuration error (exit 2).
func resolveQuery(inline, fromFile string, haveFilter bool) ([]byte, error) {
	switch {
	case inline != "" && fromFile != "":
		return nil, fmt.Errorf("supply only one of --query-source and --query-file")
	case inline != "":
		return []byte(inline), nil
	case fromFile != "":
		data, err := os.ReadFile(fromFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read query file: %w", err)
		}
		return data, nil
	case haveFilter:
		// Plugin-only mode: every node is a candidate.
		return nil, nil
	default:
		return nil, fmt.Errorf("no query: supply --query-source, --query-file, or --filter")
	}
}

func runSearch(c *cli.Context) error {
	querySource, err := resolveQuery(c.String("query-source"), c.String("query-file"), c.String("filter") != "")
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	forced := language.LangUnknown
	if tag := c.String("language"); tag != "" {
		forced = language.ResolveTag(tag)
		if forced == language.LangUnknown {
			return cli.Exit(fmt.Sprintf("unknown language: %s", tag), exitError)
		}
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	engine, err := search.New(cfg, querySource, c.String("capture"), c.String("filter"), c.String("filter-arg"))
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer engine.Close()

	format := printer.ParseFormat(cfg.Output.Format)
	colored := cfg.Output.Color && isatty.IsTerminal(os.Stdout.Fd())
	p := printer.New(os.Stdout, os.Stderr, format, colored, cfg.Output.Verbose)

	paths := getPaths(c)

	var tracker *progress.Tracker
	if c.Bool("progress") {
		// Total is unknown until the walk completes; the tracker counts up.
		tracker = progress.New("Searching...", -1)
	}

	opts := search.Options{
		Paths:         paths,
		ForceLanguage: forced,
		ContextLines:  cfg.Output.Context,
		Progress:      tracker.Tick,
	}

	stats, err := engine.Run(c.Context, opts, func(res matcher.FileResult) {
		p.Print(res)
	})
	tracker.Finish()
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	if err := p.Flush(); err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	if cfg.Output.Verbose {
		for _, lang := range stats.SkippedLanguages {
			fmt.Fprintf(os.Stderr, "treegrep: query does not compile for %s; files skipped\n", lang)
		}
	}
	if c.Bool("stats") {
		printer.PrintStats(os.Stderr, stats)
	}

	if !p.Matched() {
		return cli.Exit("", exitNoMatch)
	}
	return nil
}
