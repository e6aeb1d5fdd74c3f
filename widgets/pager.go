package widgets

import (
	"fmt"
	"strings"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/dustin/go-humanize"
)

// Pager is the footer of a paginated list.
//
//	Trang 2/5 · 87 mục · createdAt ↓ · lọc: ACTIVE          n/p trang  s sắp xếp
type Pager struct {
	Page       int // 1-based
	TotalPages int
	TotalItems int
	SortField  string
	SortDesc   bool
	Filter     string
	Hint       string // key help, drawn right-aligned
}

// Summary returns the left-hand text.
func (p *Pager) Summary() string {
	pages := p.TotalPages
	if pages < 1 {
		pages = 1
	}
	parts := []string{
		fmt.Sprintf("Trang %d/%d", max(p.Page, 1), pages),
		humanize.Comma(int64(p.TotalItems)) + " mục",
	}
	if p.SortField != "" {
		arrow := "↑"
		if p.SortDesc {
			arrow = "↓"
		}
		parts = append(parts, p.SortField+" "+arrow)
	}
	if p.Filter != "" {
		parts = append(parts, "lọc: "+p.Filter)
	}
	return strings.Join(parts, " · ")
}

// Draw renders the pager as a single dimmed row.
func (p *Pager) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, p)
	dim := vaxis.Style{Attribute: vaxis.AttrDim}

	summary := " " + p.Summary()
	writeText(ctx, &s, 0, 0, int(ctx.Max.Width), summary, dim, false)

	if p.Hint != "" {
		used := textWidth(ctx, summary) + 2
		if used < int(ctx.Max.Width) {
			writeText(ctx, &s, uint16(used), 0, int(ctx.Max.Width)-used, p.Hint+" ", dim, true)
		}
	}
	return s, nil
}
