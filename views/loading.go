package views

import (
	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"git.sr.ht/~rockorager/vaxis/vxfw/richtext"
)

// LoadingText is shown while a view has no data yet.
const LoadingText = "Đang tải..."

// drawLoadingState renders a "Đang tải..." message in the view.
func drawLoadingState(ctx vxfw.DrawContext, owner vxfw.Widget) (vxfw.Surface, error) {
	return drawMessage(ctx, owner, LoadingText, vaxis.Style{Attribute: vaxis.AttrDim})
}

// drawErrorState renders the reason a first load failed. Press r to retry.
func drawErrorState(ctx vxfw.DrawContext, owner vxfw.Widget, err error) (vxfw.Surface, error) {
	return drawMessage(ctx, owner, ErrorMessage(err)+" (r: thử lại)", vaxis.Style{Foreground: vaxis.IndexColor(1)})
}

func drawMessage(ctx vxfw.DrawContext, owner vxfw.Widget, text string, style vaxis.Style) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, owner)
	label := richtext.New([]vaxis.Segment{
		{Text: text, Style: style},
	})
	labelSurf, err := label.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, labelSurf)
	return s, nil
}
