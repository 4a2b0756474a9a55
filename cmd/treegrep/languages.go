package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/urfave/cli/v2"

	"github.com/treegrep/treegrep/pkg/language"
)

func languagesCmd() *cli.Command {
	return &cli.Command{
		Name:  "languages",
		Usage: "List registered languages and their file extensions",
		Action: func(c *cli.Context) error {
			table := tablewriter.NewTable(os.Stdout,
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
			table.Header([]string{"Language", "Extensions"})
			for _, lang := range language.All() {
				table.Append([]string{lang.String(), strings.Join(lang.Extensions(), " ")})
			}
			table.Render()
			fmt.Fprintln(os.Stdout)
			return nil
		},
	}
}
