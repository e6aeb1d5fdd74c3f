package widgets

import (
	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// TableColumn defines a column in a Table.
type TableColumn struct {
	Title      string
	Width      int         // fixed character width
	AlignRight bool        // right-align text within the column
	Style      vaxis.Style // applied to all cells in this column
}

// Table renders rows of text with fixed-width columns. The selected row is
// drawn in reverse video and kept in view when the rows overflow.
type Table struct {
	Columns  []TableColumn
	Rows     [][]string
	Selected int // -1 for no selection
	Gap      int // spaces between columns (default 1)
	// Empty is shown in place of rows when there are none.
	Empty string
	// CellStyle, when set, overrides the column style of individual cells.
	CellStyle func(row, col int, text string) (vaxis.Style, bool)
}

// writeText writes s into surf at (col, row) within maxWidth. If
// right-aligned, text is padded on the left.
func writeText(ctx vxfw.DrawContext, surf *vxfw.Surface, col, row uint16, maxWidth int, s string, style vaxis.Style, alignRight bool) {
	chars := ctx.Characters(s)

	displayWidth := 0
	for _, ch := range chars {
		displayWidth += ch.Width
	}

	offset := 0
	if alignRight && displayWidth < maxWidth {
		offset = maxWidth - displayWidth
	}

	pos := offset
	for _, ch := range chars {
		if pos+ch.Width > maxWidth {
			break
		}
		surf.WriteCell(col+uint16(pos), row, vaxis.Cell{
			Character: ch,
			Style:     style,
		})
		pos += ch.Width
	}
}

func (t *Table) hasHeader() bool {
	for _, c := range t.Columns {
		if c.Title != "" {
			return true
		}
	}
	return false
}

// window returns the first row index to draw so the selection is visible.
func (t *Table) window(visible int) int {
	if visible <= 0 || t.Selected < visible {
		return 0
	}
	start := t.Selected - visible + 1
	if last := len(t.Rows) - visible; start > last {
		start = last
	}
	return start
}

// Draw renders the header (if any column has a title) and the visible rows.
func (t *Table) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	gap := t.Gap
	if gap == 0 {
		gap = 1
	}

	header := t.hasHeader()
	totalRows := len(t.Rows)
	if totalRows == 0 && t.Empty != "" {
		totalRows = 1
	}
	if header {
		totalRows++
	}

	height := uint16(totalRows)
	if height > ctx.Max.Height {
		height = ctx.Max.Height
	}

	s := vxfw.NewSurface(ctx.Max.Width, height, t)
	row := uint16(0)

	if header && row < height {
		col := uint16(0)
		for _, c := range t.Columns {
			if int(col) >= int(ctx.Max.Width) {
				break
			}
			writeText(ctx, &s, col, row, c.Width, c.Title, vaxis.Style{Attribute: vaxis.AttrDim | vaxis.AttrBold}, c.AlignRight)
			col += uint16(c.Width + gap)
		}
		row++
	}

	if len(t.Rows) == 0 {
		if t.Empty != "" && row < height {
			writeText(ctx, &s, 0, row, int(ctx.Max.Width), t.Empty, vaxis.Style{Attribute: vaxis.AttrDim}, false)
		}
		return s, nil
	}

	start := t.window(int(height - row))
	for r := start; r < len(t.Rows) && row < height; r++ {
		cells := t.Rows[r]
		selected := r == t.Selected

		if selected {
			for c := uint16(0); c < ctx.Max.Width; c++ {
				s.WriteCell(c, row, vaxis.Cell{
					Character: vaxis.Character{Grapheme: " ", Width: 1},
					Style:     vaxis.Style{Attribute: vaxis.AttrReverse},
				})
			}
		}

		col := uint16(0)
		for i, c := range t.Columns {
			if int(col) >= int(ctx.Max.Width) {
				break
			}
			text := ""
			if i < len(cells) {
				text = cells[i]
			}
			style := c.Style
			if t.CellStyle != nil {
				if override, ok := t.CellStyle(r, i, text); ok {
					style = override
				}
			}
			if selected {
				style.Attribute |= vaxis.AttrReverse
			}
			writeText(ctx, &s, col, row, c.Width, text, style, c.AlignRight)
			col += uint16(c.Width + gap)
		}
		row++
	}

	return s, nil
}
