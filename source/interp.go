// seehuhn.de/go/markup - drawing annotation and export engine
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package source

import (
	"context"
	"image/color"

	"github.com/pkg/errors"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/markup/raster"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics"
	pdfcolor "seehuhn.de/go/pdf/graphics/color"
	"seehuhn.de/go/pdf/graphics/content"
	"seehuhn.de/go/pdf/graphics/form"
	"seehuhn.de/go/pdf/reader"
)

const (
	// checkInterval is the number of operators between cancellation checks.
	checkInterval = 64

	// maxFormDepth limits the nesting of form XObjects.
	maxFormDepth = 12
)

// painter paints the path operators of a content stream onto a canvas.
// The graphics state is tracked by the content reader; text, images and
// clipping paths are skipped.
type painter struct {
	ctx context.Context
	c   *raster.Canvas

	path       *path.Data
	cur, start vec.Vec2
	depth      int
	ops        int
}

func newPainter(ctx context.Context, c *raster.Canvas) *painter {
	return &painter{
		ctx:  ctx,
		c:    c,
		path: &path.Data{},
	}
}

// attach installs the painter as the operator callback of r.
func (pt *painter) attach(r *reader.Reader) {
	r.EveryOp = func(op string, args []pdf.Object) error {
		// r.State.GState is replaced on Q, so it is looked up for every
		// operator.
		return pt.do(content.OpName(op), args, r.State)
	}
}

// do handles one operator.  The state has already been updated for op.
func (pt *painter) do(op content.OpName, args []pdf.Object, st *content.State) error {
	pt.ops++
	if pt.ops%checkInterval == 0 {
		if err := pt.ctx.Err(); err != nil {
			return err
		}
	}

	switch op {

	// == path construction ==

	case content.OpMoveTo:
		if x, ok := numbers(args, 2); ok {
			pt.cur = vec.Vec2{X: x[0], Y: x[1]}
			pt.start = pt.cur
			pt.path.MoveTo(pt.cur)
		}
	case content.OpLineTo:
		if x, ok := numbers(args, 2); ok {
			pt.ensureCurrent()
			pt.cur = vec.Vec2{X: x[0], Y: x[1]}
			pt.path.LineTo(pt.cur)
		}
	case content.OpCurveTo:
		if x, ok := numbers(args, 6); ok {
			pt.ensureCurrent()
			p1 := vec.Vec2{X: x[0], Y: x[1]}
			p2 := vec.Vec2{X: x[2], Y: x[3]}
			pt.cur = vec.Vec2{X: x[4], Y: x[5]}
			pt.path.CubeTo(p1, p2, pt.cur)
		}
	case content.OpCurveToV:
		if x, ok := numbers(args, 4); ok {
			pt.ensureCurrent()
			p2 := vec.Vec2{X: x[0], Y: x[1]}
			p3 := vec.Vec2{X: x[2], Y: x[3]}
			pt.path.CubeTo(pt.cur, p2, p3)
			pt.cur = p3
		}
	case content.OpCurveToY:
		if x, ok := numbers(args, 4); ok {
			pt.ensureCurrent()
			p1 := vec.Vec2{X: x[0], Y: x[1]}
			p3 := vec.Vec2{X: x[2], Y: x[3]}
			pt.path.CubeTo(p1, p3, p3)
			pt.cur = p3
		}
	case content.OpClosePath:
		pt.closePath()
	case content.OpRectangle:
		if x, ok := numbers(args, 4); ok {
			x0, y0, w, h := x[0], x[1], x[2], x[3]
			pt.path.MoveTo(vec.Vec2{X: x0, Y: y0}).
				LineTo(vec.Vec2{X: x0 + w, Y: y0}).
				LineTo(vec.Vec2{X: x0 + w, Y: y0 + h}).
				LineTo(vec.Vec2{X: x0, Y: y0 + h}).
				Close()
			pt.cur = vec.Vec2{X: x0, Y: y0}
			pt.start = pt.cur
		}

	// == path painting ==

	case content.OpStroke:
		pt.paint(st.GState, false, raster.NonZero, true)
	case content.OpCloseAndStroke:
		pt.closePath()
		pt.paint(st.GState, false, raster.NonZero, true)
	case content.OpFill, content.OpFillCompat:
		pt.paint(st.GState, true, raster.NonZero, false)
	case content.OpFillEvenOdd:
		pt.paint(st.GState, true, raster.EvenOdd, false)
	case content.OpFillAndStroke:
		pt.paint(st.GState, true, raster.NonZero, true)
	case content.OpFillAndStrokeEvenOdd:
		pt.paint(st.GState, true, raster.EvenOdd, true)
	case content.OpCloseFillAndStroke:
		pt.closePath()
		pt.paint(st.GState, true, raster.NonZero, true)
	case content.OpCloseFillAndStrokeEvenOdd:
		pt.closePath()
		pt.paint(st.GState, true, raster.EvenOdd, true)
	case content.OpEndPath:
		pt.paint(st.GState, false, raster.NonZero, false)

	// == external objects ==

	case content.OpXObject:
		if len(args) > 0 {
			if key, ok := args[0].(pdf.Name); ok {
				return pt.drawForm(st, key)
			}
		}
	}

	// Text, images, clipping, marked content and shading operators are
	// not rendered.
	return nil
}

// ensureCurrent starts a subpath at the current point if a segment is
// appended to an empty path.
func (pt *painter) ensureCurrent() {
	if len(pt.path.Cmds) == 0 {
		pt.path.MoveTo(pt.cur)
		pt.start = pt.cur
	}
}

func (pt *painter) closePath() {
	if len(pt.path.Cmds) > 0 {
		pt.path.Close()
		pt.cur = pt.start
	}
}

// paint fills and/or strokes the current path and starts a new one.
func (pt *painter) paint(g *graphics.State, fill bool, rule raster.FillRule, stroke bool) {
	if len(pt.path.Cmds) > 0 {
		if fill {
			pt.c.Fill(pt.path, rule, toNRGBA(g.FillColor, g.FillAlpha), g.CTM)
		}
		if stroke {
			style := raster.StrokeStyle{
				Width:      g.LineWidth,
				Cap:        g.LineCap,
				Join:       g.LineJoin,
				MiterLimit: g.MiterLimit,
				Dash:       g.DashPattern,
				DashPhase:  g.DashPhase,
			}
			pt.c.Stroke(pt.path, style, toNRGBA(g.StrokeColor, g.StrokeAlpha), g.CTM)
		}
	}
	pt.path = &path.Data{}
}

// drawForm paints a form XObject.  Image XObjects are skipped.
func (pt *painter) drawForm(st *content.State, key pdf.Name) error {
	if st.Resources == nil {
		return nil
	}
	f, ok := st.Resources.XObject[key].(*form.Form)
	if !ok {
		return nil
	}
	if pt.depth >= maxFormDepth {
		return errors.New("form XObjects nested too deeply")
	}

	res := f.Res
	if res == nil {
		res = st.Resources
	}
	sub := content.NewState(content.Form, res)
	sub.GState = st.GState.Clone()
	sub.GState.CTM = f.Matrix.Mul(st.GState.CTM)

	savedPath := pt.path
	pt.path = &path.Data{}
	pt.depth++
	defer func() {
		pt.path = savedPath
		pt.depth--
	}()

	for _, op := range f.Content {
		_ = sub.ApplyOperator(op.Name, op.Args)
		if err := pt.do(op.Name, op.Args, sub); err != nil {
			return err
		}
	}
	return nil
}

// numbers returns the last n numeric operands.
func numbers(args []pdf.Object, n int) ([]float64, bool) {
	if len(args) < n {
		return nil, false
	}
	res := make([]float64, n)
	for i, a := range args[len(args)-n:] {
		switch x := a.(type) {
		case pdf.Integer:
			res[i] = float64(x)
		case pdf.Real:
			res[i] = float64(x)
		case pdf.Number:
			res[i] = float64(x)
		default:
			return nil, false
		}
	}
	return res, true
}

// toNRGBA converts a PDF colour to an RGB colour with the given opacity.
// Gray, RGB and CMYK values are converted directly.  Other colour spaces
// use their component values, interpreted by count; patterns paint black.
func toNRGBA(c pdfcolor.Color, alpha float64) color.NRGBA {
	var x []float64
	switch c := c.(type) {
	case nil:
	case pdfcolor.DeviceGray:
		x = []float64{float64(c)}
	case pdfcolor.DeviceRGB:
		x = c[:]
	case pdfcolor.DeviceCMYK:
		x = c[:]
	default:
		x, _, _ = pdfcolor.Operator(c)
	}

	col := color.NRGBA{A: toByte(alpha)}
	switch len(x) {
	case 1:
		v := toByte(x[0])
		col.R, col.G, col.B = v, v, v
	case 3:
		col.R, col.G, col.B = toByte(x[0]), toByte(x[1]), toByte(x[2])
	case 4:
		k := 1 - clamp01(x[3])
		col.R = toByte((1 - clamp01(x[0])) * k)
		col.G = toByte((1 - clamp01(x[1])) * k)
		col.B = toByte((1 - clamp01(x[2])) * k)
	}
	return col
}

func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}

func toByte(x float64) uint8 {
	return uint8(clamp01(x)*255 + 0.5)
}
