package printer

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/treegrep/treegrep/internal/search"
)

// PrintStats renders the run summary table. Written to the diagnostic stream
// so it never mixes with match output.
func PrintStats(w io.Writer, stats *search.Stats) {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenColumns: tw.Off},
			},
		}),
	)

	table.Header([]string{"Metric", "Value"})
	table.Append([]string{"Files scanned", fmt.Sprintf("%d", stats.FilesScanned)})
	table.Append([]string{"Files matched", fmt.Sprintf("%d", stats.FilesMatched)})
	table.Append([]string{"Matches", fmt.Sprintf("%d", stats.MatchCount)})
	fileErrors := 0
	if stats.FileErrors != nil {
		fileErrors = len(stats.FileErrors.Errors)
	}
	table.Append([]string{"File errors", fmt.Sprintf("%d", fileErrors)})
	skipped := "none"
	if len(stats.SkippedLanguages) > 0 {
		skipped = ""
		for i, lang := range stats.SkippedLanguages {
			if i > 0 {
				skipped += ", "
			}
			skipped += lang.String()
		}
	}
	table.Append([]string{"Skipped languages", skipped})
	table.Append([]string{"Elapsed", stats.Elapsed.Round(time.Millisecond).String()})
	table.Render()
}
