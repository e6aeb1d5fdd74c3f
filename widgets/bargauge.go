package widgets

import (
	"fmt"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// BarGauge is a horizontal share-of-total gauge.
//
//	Niêm yết [████████░░░░░░░░░░░░]  42.5%  85 / 200
type BarGauge struct {
	Label      string
	LabelWidth int     // label column width; 0 fits the label
	Used       float64 // portion drawn filled
	Total      float64
	Suffix     string // text after the percentage
	BarWidth   int    // character width of the bar, excluding brackets
	// Warn and Crit are the percentages at which the fill turns yellow and
	// red. Zero values select 60 and 85.
	Warn, Crit float64
}

const (
	barFilled = '█'
	barEmpty  = '░'
)

// Percent returns Used as a share of Total, clamped to 0..100. A zero Total
// reads as 0%.
func (bg *BarGauge) Percent() float64 {
	if bg.Total <= 0 {
		return 0
	}
	p := bg.Used / bg.Total * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func (bg *BarGauge) color(pct float64) vaxis.Color {
	warn, crit := bg.Warn, bg.Crit
	if warn == 0 {
		warn = 60
	}
	if crit == 0 {
		crit = 85
	}
	switch {
	case pct >= crit:
		return vaxis.IndexColor(1)
	case pct >= warn:
		return vaxis.IndexColor(3)
	}
	return vaxis.IndexColor(2)
}

// Draw renders the gauge as a single row.
func (bg *BarGauge) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, bg)

	put := func(col uint16, text string, style vaxis.Style) uint16 {
		for _, ch := range ctx.Characters(text) {
			if col >= ctx.Max.Width {
				break
			}
			s.WriteCell(col, 0, vaxis.Cell{Character: ch, Style: style})
			col += uint16(ch.Width)
		}
		return col
	}

	labelWidth := bg.LabelWidth
	if labelWidth == 0 {
		labelWidth = textWidth(ctx, bg.Label)
	}
	col := put(0, fmt.Sprintf("%-*s ", labelWidth, bg.Label), vaxis.Style{Attribute: vaxis.AttrBold})
	col = put(col, "[", vaxis.Style{})

	pct := bg.Percent()
	filled := int(pct / 100 * float64(bg.BarWidth))
	fill := vaxis.Style{Foreground: bg.color(pct)}
	empty := vaxis.Style{Foreground: vaxis.IndexColor(8)}
	for i := 0; i < bg.BarWidth; i++ {
		if i < filled {
			col = put(col, string(barFilled), fill)
		} else {
			col = put(col, string(barEmpty), empty)
		}
	}

	col = put(col, fmt.Sprintf("] %5.1f%%", pct), vaxis.Style{})
	if bg.Suffix != "" {
		put(col, "  "+bg.Suffix, vaxis.Style{Attribute: vaxis.AttrDim})
	}
	return s, nil
}
