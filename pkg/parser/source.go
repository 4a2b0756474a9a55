package parser

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/edsrzf/mmap-go"
)

// DefaultMmapThreshold is the file size above which files are memory-mapped
// instead of read into a heap buffer.
const DefaultMmapThreshold = 64 * 1024

// MaxFileBytes is the hard cap on file size. Larger files fail with
// FileTooLargeError instead of being parsed.
const MaxFileBytes = int64(1) << 31

// FileTooLargeError reports a file exceeding MaxFileBytes.
type FileTooLargeError struct {
	Path string
	Size int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s: file too large: %d bytes (limit: %d)", e.Path, e.Size, MaxFileBytes)
}

// Source holds a file's contents as decoded UTF-8 bytes. When the bytes alias
// a live memory mapping, Close releases it; Data must not be used afterwards.
type Source struct {
	Path   string
	Data   []byte
	mapped mmap.MMap
}

// Close releases the underlying mapping, if any.
func (s *Source) Close() error {
	if s.mapped == nil {
		return nil
	}
	m := s.mapped
	s.mapped = nil
	s.Data = nil
	return m.Unmap()
}

// LoadSource reads a file for parsing. Files larger than mmapThreshold are
// mapped read-only; smaller files are read into a heap buffer. Contents that
// are not valid UTF-8 are decoded best-effort (BOM transcode, else Latin-1),
// in which case the returned bytes are a decoded copy and any mapping is
// released immediately. A non-positive mmapThreshold selects the default.
func LoadSource(path string, mmapThreshold int64) (*Source, error) {
	if mmapThreshold <= 0 {
		mmapThreshold = DefaultMmapThreshold
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > MaxFileBytes {
		return nil, &FileTooLargeError{Path: path, Size: info.Size()}
	}

	if info.Size() <= mmapThreshold {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		decoded, _ := decode(data)
		return &Source{Path: path, Data: decoded}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		// Mapping can fail on some filesystems; fall back to a plain read.
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, fmt.Errorf("failed to read file: %w", rerr)
		}
		decoded, _ := decode(data)
		return &Source{Path: path, Data: decoded}, nil
	}

	decoded, aliased := decode(m)
	if !aliased {
		// Decoding produced a copy; the mapping is no longer needed.
		_ = m.Unmap()
		return &Source{Path: path, Data: decoded}, nil
	}
	return &Source{Path: path, Data: decoded, mapped: m}, nil
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decode returns data as UTF-8 bytes plus whether the result aliases the
// input. A BOM selects the source encoding; anything else that fails UTF-8
// validation is treated as Latin-1. Reported byte offsets always refer to the
// decoded form.
func decode(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return data, true
	}

	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], true
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeUTF16(data[2:], false), false
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeUTF16(data[2:], true), false
	}

	if utf8.Valid(data) {
		return data, true
	}
	return decodeLatin1(data), false
}

func decodeUTF16(data []byte, bigEndian bool) []byte {
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		if bigEndian {
			units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
		} else {
			units = append(units, uint16(data[i+1])<<8|uint16(data[i]))
		}
	}
	return []byte(string(utf16.Decode(units)))
}

func decodeLatin1(data []byte) []byte {
	buf := make([]byte, 0, len(data)+len(data)/8)
	for _, b := range data {
		buf = utf8.AppendRune(buf, rune(b))
	}
	return buf
}
