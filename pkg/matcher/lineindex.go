package matcher

import (
	"bytes"
	"sort"
)

// LineIndex maps byte offsets to line/column positions. Built once per file,
// on demand, by a single scan for newlines.
type LineIndex struct {
	data []byte
	// starts[i] is the byte offset of the first byte of line i+1.
	starts []uint32
}

// NewLineIndex builds the newline-offset table for data.
func NewLineIndex(data []byte) *LineIndex {
	starts := []uint32{0}
	for off := 0; off < len(data); {
		i := bytes.IndexByte(data[off:], '\n')
		if i < 0 {
			break
		}
		off += i + 1
		starts = append(starts, uint32(off))
	}
	return &LineIndex{data: data, starts: starts}
}

// Position returns the 1-based line and 0-based byte column for offset.
// A \r before the newline counts as part of the preceding line.
func (ix *LineIndex) Position(offset uint32) (line, col int) {
	i := sort.Search(len(ix.starts), func(i int) bool { return ix.starts[i] > offset }) - 1
	return i + 1, int(offset - ix.starts[i])
}

// LineCount returns the number of lines, counting a trailing fragment with no
// newline as a line.
func (ix *LineIndex) LineCount() int {
	n := len(ix.starts)
	if n > 0 && int(ix.starts[n-1]) >= len(ix.data) {
		n--
	}
	return n
}

// LineText returns the text of the 1-based line, without its newline (and
// without a trailing \r).
func (ix *LineIndex) LineText(line int) string {
	if line < 1 || line > len(ix.starts) {
		return ""
	}
	start := int(ix.starts[line-1])
	end := len(ix.data)
	if line < len(ix.starts) {
		end = int(ix.starts[line]) - 1
	}
	if end > start && end-1 < len(ix.data) && ix.data[end-1] == '\r' {
		end--
	}
	if start > end {
		start = end
	}
	return string(ix.data[start:end])
}
