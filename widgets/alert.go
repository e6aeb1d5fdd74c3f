package widgets

import (
	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"

	"github.com/deevus/carbon-tui/internal/notify"
)

// Alert renders one notification.
//
//	 ✔ Đã duyệt yêu cầu: cấp 42.5 tín chỉ  [x]
//
// An alert with no message draws nothing.
type Alert struct {
	Variant     notify.Variant
	Title       string
	Message     string
	Dismissible bool
	Dismissing  bool // drawn dimmed while the slot clears
	Toast       bool // size to content instead of filling the row
}

// AlertFrom builds an Alert for the coordinator's current state.
func AlertFrom(s notify.Snapshot) *Alert {
	if !s.Shown() {
		return &Alert{}
	}
	return &Alert{
		Variant:     s.Variant,
		Title:       s.Title,
		Message:     s.Message,
		Dismissible: s.Dismissible,
		Dismissing:  s.State == notify.Dismissing,
		Toast:       s.Position == notify.Toast,
	}
}

// VariantColor returns the background colour for a variant.
func VariantColor(v notify.Variant) vaxis.Color {
	switch v {
	case notify.Success:
		return vaxis.IndexColor(2)
	case notify.Warning:
		return vaxis.IndexColor(3)
	case notify.Danger:
		return vaxis.IndexColor(1)
	case notify.Info:
		return vaxis.IndexColor(6)
	}
	return vaxis.IndexColor(4)
}

// VariantIcon returns the leading glyph for a variant.
func VariantIcon(v notify.Variant) string {
	switch v {
	case notify.Success:
		return "✔"
	case notify.Warning:
		return "⚠"
	case notify.Danger:
		return "✖"
	case notify.Info:
		return "ℹ"
	}
	return "●"
}

const closeHint = "  [x]"

// Height returns the number of rows the alert needs.
func (a *Alert) Height() uint16 {
	switch {
	case a.Message == "":
		return 0
	case a.Title != "":
		return 2
	}
	return 1
}

func (a *Alert) lines() []string {
	icon := " " + VariantIcon(a.Variant) + " "
	if a.Title == "" {
		return []string{icon + a.Message}
	}
	return []string{icon + a.Title, "   " + a.Message}
}

// Draw renders the alert. The close hint is only shown when dismissible.
func (a *Alert) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	height := a.Height()
	if height == 0 || ctx.Max.Width == 0 {
		return vxfw.NewSurface(0, 0, a), nil
	}
	if height > ctx.Max.Height {
		height = ctx.Max.Height
	}

	lines := a.lines()
	hint := ""
	if a.Dismissible {
		hint = closeHint
	}

	width := ctx.Max.Width
	if a.Toast {
		need := 0
		for i, l := range lines {
			w := textWidth(ctx, l) + 1
			if i == 0 {
				w += textWidth(ctx, hint)
			}
			if w > need {
				need = w
			}
		}
		if uint16(need) < width {
			width = uint16(need)
		}
	}

	style := vaxis.Style{Foreground: vaxis.IndexColor(0), Background: VariantColor(a.Variant)}
	if a.Dismissing {
		style.Attribute |= vaxis.AttrDim
	}

	s := vxfw.NewSurface(width, height, a)
	for row := uint16(0); row < height; row++ {
		for col := uint16(0); col < width; col++ {
			s.WriteCell(col, row, vaxis.Cell{Character: vaxis.Character{Grapheme: " ", Width: 1}, Style: style})
		}
	}

	for row := uint16(0); row < height; row++ {
		lineStyle := style
		if row == 0 && a.Title != "" {
			lineStyle.Attribute |= vaxis.AttrBold
		}
		avail := int(width)
		if row == 0 && hint != "" {
			avail -= textWidth(ctx, hint)
		}
		writeText(ctx, &s, 0, row, avail, lines[row], lineStyle, false)
	}
	if hint != "" {
		writeText(ctx, &s, 0, 0, int(width), hint, style, true)
	}
	return s, nil
}

func textWidth(ctx vxfw.DrawContext, s string) int {
	w := 0
	for _, ch := range ctx.Characters(s) {
		w += ch.Width
	}
	return w
}
