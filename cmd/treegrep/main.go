package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/treegrep/treegrep/pkg/config"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

const (
	exitMatch   = 0
	exitNoMatch = 1
	exitError   = 2
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func main() {
	app := &cli.App{
		Name:      "treegrep",
		Usage:     "Recursively search for tree-sitter query matches",
		Version:   version,
		ArgsUsage: "[path...]",
		Metadata:  make(map[string]interface{}),
		Description: `Treegrep searches source trees for syntactic patterns. Patterns are
tree-sitter queries evaluated against each file's syntax tree, so matches
survive reformatting that would defeat a textual grep.

Supports: Go, Rust, Python, TypeScript, JavaScript, Java, C, C++, C#, Ruby, PHP, Bash`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query-source",
				Aliases: []string{"q"},
				Usage:   "Inline tree-sitter query text",
			},
			&cli.StringFlag{
				Name:    "query-file",
				Aliases: []string{"Q"},
				Usage:   "Path to a query file",
			},
			&cli.StringFlag{
				Name:    "capture",
				Aliases: []string{"c"},
				Usage:   "Target capture name (default: lexicographically smallest)",
			},
			&cli.StringFlag{
				Name:    "language",
				Aliases: []string{"l"},
				Usage:   "Force all files to be treated as this language tag",
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Path to a filter plugin library",
			},
			&cli.StringFlag{
				Name:    "filter-arg",
				Aliases: []string{"a"},
				Usage:   "Opaque string passed to the filter plugin's init",
			},
			&cli.BoolFlag{
				Name:  "vimgrep",
				Usage: "Print PATH:LINE:COLUMN:CONTENT, one line per match",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: grep, vimgrep, json, toon, count",
			},
			&cli.IntFlag{
				Name:    "context",
				Aliases: []string{"C"},
				Usage:   "Print N lines of context around each match",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Worker pool size (default: number of logical CPUs)",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"TREEGREP_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "no-ignore",
				Usage: "Do not respect .gitignore files",
			},
			&cli.BoolFlag{
				Name:  "hidden",
				Usage: "Search hidden files and directories",
			},
			&cli.BoolFlag{
				Name:  "cache",
				Usage: "Cache per-file results keyed by content and query",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Print a run summary to stderr",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar on stderr",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Report per-file errors and skipped languages on stderr",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before: func(c *cli.Context) error {
			if pprofPrefix := c.String("pprof"); pprofPrefix != "" {
				cpuFile, err := os.Create(pprofPrefix + ".cpu.pprof")
				if err != nil {
					return fmt.Errorf("failed to create CPU profile: %w", err)
				}
				if err := pprof.StartCPUProfile(cpuFile); err != nil {
					cpuFile.Close()
					return fmt.Errorf("failed to start CPU profile: %w", err)
				}
				c.App.Metadata["pprofCPU"] = cpuFile
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if pprofPrefix := c.String("pprof"); pprofPrefix != "" {
				pprof.StopCPUProfile()
				if cpuFile, ok := c.App.Metadata["pprofCPU"].(*os.File); ok {
					cpuFile.Close()
				}

				memFile, err := os.Create(pprofPrefix + ".mem.pprof")
				if err != nil {
					return fmt.Errorf("failed to create memory profile: %w", err)
				}
				defer memFile.Close()

				runtime.GC()
				if err := pprof.WriteHeapProfile(memFile); err != nil {
					return fmt.Errorf("failed to write memory profile: %w", err)
				}
			}
			return nil
		},
		Action: runSearch,
		Commands: []*cli.Command{
			languagesCmd(),
			initCmd(),
			mcpCmd(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ExitCoder errors (the 1 and 2 paths) are handled inside RunContext.
	if err := app.RunContext(ctx, os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(exitError)
	}
}

// loadConfig resolves the effective config: --config path, discovered file,
// or defaults, with flag overrides applied on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}

	if c.IsSet("workers") {
		cfg.Search.Workers = c.Int("workers")
	}
	if c.Bool("no-ignore") {
		cfg.Exclude.Gitignore = false
	}
	if c.Bool("hidden") {
		cfg.Exclude.Hidden = true
	}
	if c.Bool("cache") {
		cfg.Cache.Enabled = true
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	if c.IsSet("context") {
		cfg.Output.Context = c.Int("context")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.Bool("vimgrep") {
		cfg.Output.Format = "vimgrep"
	}
	return cfg, nil
}
