package views_test

import (
	"strings"
	"testing"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

func testDrawContext(w, h uint16) vxfw.DrawContext {
	return vxfw.DrawContext{
		Max: vxfw.Size{Width: w, Height: h},
		Min: vxfw.Size{},
		Characters: func(s string) []vaxis.Character {
			chars := make([]vaxis.Character, 0, len(s))
			for _, r := range s {
				chars = append(chars, vaxis.Character{Grapheme: string(r), Width: 1})
			}
			return chars
		},
	}
}

// screen flattens s and its children into rows of text with trailing blanks
// trimmed.
func screen(s vxfw.Surface) []string {
	w, h := int(s.Size.Width), int(s.Size.Height)
	grid := make([][]string, h)
	for r := range grid {
		grid[r] = make([]string, w)
	}
	paint(grid, s, 0, 0)

	rows := make([]string, h)
	for r, cells := range grid {
		var b strings.Builder
		for _, g := range cells {
			if g == "" {
				g = " "
			}
			b.WriteString(g)
		}
		rows[r] = strings.TrimRight(b.String(), " ")
	}
	return rows
}

func paint(grid [][]string, s vxfw.Surface, row, col int) {
	w := int(s.Size.Width)
	for i, cell := range s.Buffer {
		if w == 0 {
			break
		}
		r, c := row+i/w, col+i%w
		if r < len(grid) && c < len(grid[r]) && cell.Character.Grapheme != "" {
			grid[r][c] = cell.Character.Grapheme
		}
	}
	for _, child := range s.Children {
		paint(grid, child.Surface, row+child.Origin.Row, col+child.Origin.Col)
	}
}

func screenText(s vxfw.Surface) string {
	return strings.Join(screen(s), "\n")
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
