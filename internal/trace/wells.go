package trace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/protocheck/internal/catalog"
)

// gridPos is a parsed gridded element name like "B7": 0-based row and
// column.
type gridPos struct {
	row int
	col int
}

// parseGridName parses a row-letter + column-number element name. Rows
// beyond "Z" continue "AA", "AB", ... as on high-density plates.
func parseGridName(name string) (gridPos, error) {
	i := 0
	for i < len(name) && name[i] >= 'A' && name[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(name) {
		return gridPos{}, fmt.Errorf("malformed element name %q", name)
	}
	row := 0
	for _, c := range name[:i] {
		row = row*26 + int(c-'A') + 1
	}
	col, err := strconv.Atoi(name[i:])
	if err != nil || col < 1 {
		return gridPos{}, fmt.Errorf("malformed element name %q", name)
	}
	return gridPos{row: row - 1, col: col - 1}, nil
}

// gridName renders a 0-based row/column back into the display form.
func gridName(row, col int) string {
	var sb strings.Builder
	r := row + 1
	for r > 0 {
		r--
		sb.WriteByte(byte('A' + r%26))
		r /= 26
	}
	// single-letter rows dominate; reverse only when needed
	s := sb.String()
	if len(s) > 1 {
		b := []byte(s)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		s = string(b)
	}
	return fmt.Sprintf("%s%d", s, col+1)
}

// linearIndex converts a grid position to the column-major linear index
// used throughout the engine: "A1" is 0, "B1" is 1, "A2" is rows.
func linearIndex(p gridPos, shape catalog.Shape) int {
	return p.col*shape.Rows + p.row
}

// inBounds reports whether the position exists on the given shape.
func inBounds(p gridPos, shape catalog.Shape) bool {
	return p.row >= 0 && p.row < shape.Rows && p.col >= 0 && p.col < shape.Columns
}
