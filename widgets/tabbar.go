package widgets

import (
	"strconv"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// TabBar is a horizontal tab navigation widget. Tabs are numbered from 1 so
// the digit keys can select them.
type TabBar struct {
	labels []string
	active int
	// Right is drawn right-aligned on the same row, e.g. the profile name.
	Right string
}

// NewTabBar creates a TabBar with the given labels. Active defaults to 0.
func NewTabBar(labels []string) *TabBar {
	return &TabBar{labels: labels}
}

// Active returns the currently active tab index.
func (tb *TabBar) Active() int {
	return tb.active
}

// Len returns the number of tabs.
func (tb *TabBar) Len() int {
	return len(tb.labels)
}

// Label returns the label of tab i.
func (tb *TabBar) Label(i int) string {
	if i < 0 || i >= len(tb.labels) {
		return ""
	}
	return tb.labels[i]
}

// SetLabels replaces the tabs and resets the selection to the first one.
func (tb *TabBar) SetLabels(labels []string) {
	tb.labels = labels
	tb.active = 0
}

// SetActive sets the active tab index. Out-of-range values are ignored.
func (tb *TabBar) SetActive(i int) {
	if i >= 0 && i < len(tb.labels) {
		tb.active = i
	}
}

// Next advances to the next tab, wrapping around.
func (tb *TabBar) Next() {
	if len(tb.labels) == 0 {
		return
	}
	tb.active = (tb.active + 1) % len(tb.labels)
}

// Prev moves to the previous tab, wrapping around.
func (tb *TabBar) Prev() {
	if len(tb.labels) == 0 {
		return
	}
	tb.active = (tb.active - 1 + len(tb.labels)) % len(tb.labels)
}

// Draw renders the tab bar as a single row: " 1 Ví │ 2 Phương tiện │ 3 Kiểm toán "
// The active tab is rendered in reverse video.
func (tb *TabBar) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, tb)

	col := uint16(0)
	for i, label := range tb.labels {
		if i > 0 {
			for _, ch := range ctx.Characters(" │ ") {
				s.WriteCell(col, 0, vaxis.Cell{Character: ch, Style: vaxis.Style{Attribute: vaxis.AttrDim}})
				col += uint16(ch.Width)
			}
		}

		style := vaxis.Style{}
		if i == tb.active {
			style.Attribute |= vaxis.AttrReverse | vaxis.AttrBold
		}

		text := " " + strconv.Itoa(i+1) + " " + label + " "
		for _, ch := range ctx.Characters(text) {
			s.WriteCell(col, 0, vaxis.Cell{Character: ch, Style: style})
			col += uint16(ch.Width)
		}
	}

	if tb.Right != "" && col < ctx.Max.Width {
		writeText(ctx, &s, col, 0, int(ctx.Max.Width-col), tb.Right+" ", vaxis.Style{Attribute: vaxis.AttrDim}, true)
	}

	return s, nil
}
