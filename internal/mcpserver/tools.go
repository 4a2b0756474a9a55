package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"

	"github.com/treegrep/treegrep/internal/search"
	"github.com/treegrep/treegrep/pkg/config"
	"github.com/treegrep/treegrep/pkg/language"
	"github.com/treegrep/treegrep/pkg/matcher"
)

// SearchInput is the input for the search tool.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"Tree-sitter query (S-expression) with at least one @capture (required)."`
	Paths    []string `json:"paths,omitempty" jsonschema:"Paths to search. Defaults to current directory if empty."`
	Capture  string   `json:"capture,omitempty" jsonschema:"Target capture name. Defaults to the lexicographically smallest capture in the query."`
	Language string   `json:"language,omitempty" jsonschema:"Force all files to be treated as this language tag (e.g. rust, go, python)."`
	Context  int      `json:"context,omitempty" jsonschema:"Lines of context to include around each match."`
}

// SearchMatch is one match in the tool output.
type SearchMatch struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	Line      string `json:"line"`
}

// SearchOutput is the search tool result payload.
type SearchOutput struct {
	Matches          []SearchMatch `json:"matches"`
	FileCount        int           `json:"file_count"`
	SkippedLanguages []string      `json:"skipped_languages,omitempty"`
}

// LanguageInfo describes one registered language.
type LanguageInfo struct {
	Tag        string   `json:"tag"`
	Extensions []string `json:"extensions"`
}

func toolResult(data any) (*mcp.CallToolResult, any, error) {
	out, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(out)},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	if input.Query == "" {
		return toolError("query is required")
	}

	paths := input.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	forced := language.LangUnknown
	if input.Language != "" {
		forced = language.ResolveTag(input.Language)
		if forced == language.LangUnknown {
			return toolError("unknown language: " + input.Language)
		}
	}

	cfg := config.LoadOrDefault()
	engine, err := search.New(cfg, []byte(input.Query), input.Capture, "", "")
	if err != nil {
		return toolError(err.Error())
	}
	defer engine.Close()

	output := SearchOutput{Matches: []SearchMatch{}}
	stats, err := engine.Run(ctx, search.Options{
		Paths:         paths,
		ForceLanguage: forced,
		ContextLines:  input.Context,
	}, func(res matcher.FileResult) {
		for _, m := range res.Matches {
			output.Matches = append(output.Matches, SearchMatch{
				Path:      res.Path,
				StartLine: m.StartLine,
				StartCol:  m.StartCol,
				EndLine:   m.EndLine,
				EndCol:    m.EndCol,
				Line:      m.LineText,
			})
		}
	})
	if err != nil {
		return toolError(err.Error())
	}

	output.FileCount = stats.FilesMatched
	for _, lang := range stats.SkippedLanguages {
		output.SkippedLanguages = append(output.SkippedLanguages, lang.String())
	}
	return toolResult(output)
}

func handleListLanguages(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	infos := make([]LanguageInfo, 0)
	for _, lang := range language.All() {
		infos = append(infos, LanguageInfo{
			Tag:        lang.String(),
			Extensions: lang.Extensions(),
		})
	}
	return toolResult(map[string]any{"languages": infos})
}
