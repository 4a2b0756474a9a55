package parser

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	return path
}

func TestLoadSourceSmallFile(t *testing.T) {
	content := []byte("package main\n")
	path := writeTemp(t, "small.go", content)

	src, err := LoadSource(path, 0)
	if err != nil {
		t.Fatalf("LoadSource error: %v", err)
	}
	defer src.Close()

	if !bytes.Equal(src.Data, content) {
		t.Errorf("Data = %q, want %q", src.Data, content)
	}
	if src.mapped != nil {
		t.Error("small file should not be memory-mapped")
	}
}

func TestLoadSourceMapsLargeFile(t *testing.T) {
	content := []byte(strings.Repeat("// filler line\n", 100))
	path := writeTemp(t, "large.go", content)

	// Threshold below the file size forces the mmap path.
	src, err := LoadSource(path, 16)
	if err != nil {
		t.Fatalf("LoadSource error: %v", err)
	}

	if !bytes.Equal(src.Data, content) {
		t.Errorf("mapped data differs from file content")
	}
	if src.mapped == nil {
		t.Error("file above threshold should be memory-mapped")
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
	if src.Data != nil {
		t.Error("Data should be nil after Close")
	}
}

func TestLoadSourceMissingFile(t *testing.T) {
	if _, err := LoadSource(filepath.Join(t.TempDir(), "absent.go"), 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain utf8", []byte("fn main() {}"), "fn main() {}"},
		{"utf8 bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, []byte("hi")...), "hi"},
		{"utf16 le", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi"},
		{"utf16 be", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "hi"},
		{"latin1", []byte{'c', 'a', 'f', 0xE9}, "café"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := decode(tt.in)
			if string(got) != tt.want {
				t.Errorf("decode(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeAliasing(t *testing.T) {
	valid := []byte("plain ascii")
	if _, aliased := decode(valid); !aliased {
		t.Error("valid UTF-8 should not be copied")
	}

	latin1 := []byte{0xE9}
	if _, aliased := decode(latin1); aliased {
		t.Error("Latin-1 input must be decoded into a copy")
	}
}
