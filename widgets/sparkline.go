package widgets

import (
	"math"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// Block characters for sparkline rendering (8 levels).
var sparkBlocks = [8]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a 1-row graph of a series, oldest value first. When the
// series is wider than the surface the newest values are kept.
type Sparkline struct {
	Values []float64
	Style  vaxis.Style
}

// Levels returns the block level (0-7) of each value that fits in width.
func (sl *Sparkline) Levels(width int) []int {
	vals := sl.Values
	if len(vals) == 0 || width <= 0 {
		return nil
	}
	if len(vals) > width {
		vals = vals[len(vals)-width:]
	}

	minV, maxV := vals[0], vals[0]
	for _, v := range vals[1:] {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}

	levels := make([]int, len(vals))
	for i, v := range vals {
		switch {
		case maxV > minV:
			levels[i] = min(int(math.Round((v-minV)/(maxV-minV)*7)), 7)
		case maxV != 0:
			levels[i] = 4 // flat non-zero line
		}
	}
	return levels
}

// Draw renders the sparkline as a single row.
func (sl *Sparkline) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, sl)

	style := sl.Style
	if style == (vaxis.Style{}) {
		style = vaxis.Style{Foreground: vaxis.IndexColor(6)}
	}
	for i, level := range sl.Levels(int(ctx.Max.Width)) {
		for _, c := range ctx.Characters(string(sparkBlocks[level])) {
			s.WriteCell(uint16(i), 0, vaxis.Cell{Character: c, Style: style})
		}
	}
	return s, nil
}
