package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveQuery(t *testing.T) {
	queryFile := filepath.Join(t.TempDir(), "query.scm")
	if err := os.WriteFile(queryFile, []byte("(function_item) @f\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		inline     string
		fromFile   string
		haveFilter bool
		want       string
		wantNil    bool
		wantErr    string
	}{
		{
			name:   "inline query",
			inline: "(x) @a",
			want:   "(x) @a",
		},
		{
			name:     "query file",
			fromFile: queryFile,
			want:     "(function_item) @f\n",
		},
		{
			name:     "both is an error",
			inline:   "(x) @a",
			fromFile: queryFile,
			wantErr:  "only one",
		},
		{
			name:    "neither without filter is an error",
			wantErr: "no query",
		},
		{
			name:       "filter alone allows no query",
			haveFilter: true,
			wantNil:    true,
		},
		{
			name:     "missing query file",
			fromFile: filepath.Join(t.TempDir(), "absent.scm"),
			wantErr:  "failed to read query file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveQuery(tt.inline, tt.fromFile, tt.haveFilter)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("got %q, want nil query", got)
				}
				return
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	content, err := generateDefaultConfig()
	if err != nil {
		t.Fatalf("generateDefaultConfig error: %v", err)
	}
	for _, want := range []string{"[search]", "[exclude]", "[output]", "gitignore"} {
		if !strings.Contains(content, want) {
			t.Errorf("generated config missing %q:\n%s", want, content)
		}
	}
}
