// Package printer formats match results. A single printer owns its writer;
// results arrive one file at a time, already in walker order, so each file's
// output is emitted atomically.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	toon "github.com/toon-format/toon-go"

	"github.com/treegrep/treegrep/pkg/matcher"
)

// Format selects the output style.
type Format string

const (
	// FormatGrep is PATH:LINE:CONTENT, one line per match.
	FormatGrep Format = "grep"
	// FormatVimgrep is PATH:LINE:COLUMN:CONTENT (1-based column), one line
	// per match even when a match spans several source lines.
	FormatVimgrep Format = "vimgrep"
	// FormatCount is PATH:N per file with matches.
	FormatCount Format = "count"
	// FormatJSON collects all results and emits a JSON document at the end.
	FormatJSON Format = "json"
	// FormatTOON collects all results and emits a TOON document at the end.
	FormatTOON Format = "toon"
)

// ParseFormat converts a string to Format, defaulting to grep.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "vimgrep":
		return FormatVimgrep
	case "count":
		return FormatCount
	case "json":
		return FormatJSON
	case "toon":
		return FormatTOON
	default:
		return FormatGrep
	}
}

// Printer writes match output. Not safe for concurrent use; the pipeline
// feeds it from a single goroutine.
type Printer struct {
	w       io.Writer
	errW    io.Writer
	format  Format
	colored bool
	verbose bool

	pathColor *color.Color
	lineColor *color.Color
	sepColor  *color.Color

	matched   bool
	fileCount int
	collected []matcher.FileResult
}

// New creates a printer. colored applies only to the grep-style formats and
// should be true only when w is a terminal.
func New(w, errW io.Writer, format Format, colored, verbose bool) *Printer {
	return &Printer{
		w:         w,
		errW:      errW,
		format:    format,
		colored:   colored,
		verbose:   verbose,
		pathColor: color.New(color.FgMagenta),
		lineColor: color.New(color.FgGreen),
		sepColor:  color.New(color.FgCyan),
	}
}

// Matched reports whether any match has been printed. Drives the exit code.
func (p *Printer) Matched() bool {
	return p.matched
}

// FileCount returns the number of files that produced at least one match.
func (p *Printer) FileCount() int {
	return p.fileCount
}

// Print emits one file's results. Non-fatal errors go to the diagnostic
// stream when verbose is enabled.
func (p *Printer) Print(res matcher.FileResult) {
	if res.Err != nil && p.verbose {
		fmt.Fprintf(p.errW, "treegrep: %v\n", res.Err)
	}
	if len(res.Matches) == 0 {
		return
	}
	p.matched = true
	p.fileCount++

	switch p.format {
	case FormatJSON, FormatTOON:
		p.collected = append(p.collected, res)
	case FormatCount:
		fmt.Fprintf(p.w, "%s:%d\n", p.paint(p.pathColor, res.Path), len(res.Matches))
	default:
		p.printGrep(res)
	}
}

// Flush writes any buffered document output (json, toon). Call once after
// the last Print.
func (p *Printer) Flush() error {
	switch p.format {
	case FormatJSON:
		if p.collected == nil {
			p.collected = []matcher.FileResult{}
		}
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(p.collected)
	case FormatTOON:
		out, err := toon.Marshal(map[string]any{"files": p.collected}, toon.WithIndent(2))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, string(out))
		return err
	}
	return nil
}

func (p *Printer) printGrep(res matcher.FileResult) {
	withContext := false
	for i, m := range res.Matches {
		if len(m.ContextBefore) > 0 || len(m.ContextAfter) > 0 {
			withContext = true
			if i > 0 {
				fmt.Fprintln(p.w, p.paint(p.sepColor, "--"))
			}
			for j, line := range m.ContextBefore {
				p.printLine(res.Path, m.StartLine-len(m.ContextBefore)+j, -1, line, '-')
			}
		}

		if p.format == FormatVimgrep {
			p.printLine(res.Path, m.StartLine, m.StartCol+1, m.LineText, ':')
		} else {
			p.printLine(res.Path, m.StartLine, -1, m.LineText, ':')
		}

		if withContext {
			for j, line := range m.ContextAfter {
				p.printLine(res.Path, m.StartLine+1+j, -1, line, '-')
			}
		}
	}
}

// printLine writes PATH<sep>LINE<sep>[COL<sep>]CONTENT. sep is ':' for match
// lines and '-' for context lines, following the grep convention.
func (p *Printer) printLine(path string, line, col int, content string, sep byte) {
	s := string(sep)
	fmt.Fprint(p.w, p.paint(p.pathColor, path), s)
	fmt.Fprint(p.w, p.paint(p.lineColor, fmt.Sprintf("%d", line)), s)
	if col >= 0 {
		fmt.Fprint(p.w, p.paint(p.lineColor, fmt.Sprintf("%d", col)), s)
	}
	fmt.Fprintln(p.w, content)
}

func (p *Printer) paint(c *color.Color, s string) string {
	if !p.colored {
		return s
	}
	return c.Sprint(s)
}
