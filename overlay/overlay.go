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

// Package overlay paints annotations on top of a rendered page and finds
// the annotation under a pointer.
//
// All drawing happens in display space.  The scale passed to the painting
// functions is the zoom for the interactive view, and the export scale
// when annotations are burned into exported pages.
package overlay

import (
	"fmt"
	"image/color"
	"math"

	"github.com/sirupsen/logrus"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/coords"
	"seehuhn.de/go/markup/logging"
	"seehuhn.de/go/markup/raster"
)

// Geometry of the decorations.  Lengths marked "px" are in display pixels
// and do not change with the zoom, all others are in document units.
const (
	LineWidth       = 2.0         // document units
	ArrowHeadLength = 12.0        // document units
	ArrowHeadAngle  = math.Pi / 6 // radians on either side of the shaft
	TextSize        = 14.0        // document units
	PinRadius       = 7.0         // px
	PinHeight       = 22.0        // px, from the tip to the centre of the head
	HitTolerance    = 5.0         // px
	selectionMargin = 3.0         // px
)

// Style holds the colours used for painting.
type Style struct {
	BoxStroke     color.NRGBA
	BoxFill       color.NRGBA
	HighlightFill color.NRGBA
	Arrow         color.NRGBA
	Text          color.NRGBA
	Pin           color.NRGBA
	PinOutline    color.NRGBA
	Selection     color.NRGBA
	DraftOutline  color.NRGBA
}

// DefaultStyle is used by renderers without an explicit style.
var DefaultStyle = Style{
	BoxStroke:     color.NRGBA{R: 220, G: 38, B: 38, A: 255},
	BoxFill:       color.NRGBA{R: 220, G: 38, B: 38, A: 48},
	HighlightFill: color.NRGBA{R: 250, G: 204, B: 21, A: 102},
	Arrow:         color.NRGBA{R: 220, G: 38, B: 38, A: 255},
	Text:          color.NRGBA{R: 17, G: 24, B: 39, A: 255},
	Pin:           color.NRGBA{R: 245, G: 158, B: 11, A: 255},
	PinOutline:    color.NRGBA{R: 120, G: 53, B: 15, A: 255},
	Selection:     color.NRGBA{R: 37, G: 99, B: 235, A: 255},
	DraftOutline:  color.NRGBA{R: 107, G: 114, B: 128, A: 255},
}

// Renderer paints annotations onto a canvas.
// The zero value paints with DefaultStyle and discards log messages.
type Renderer struct {
	Style  *Style
	Logger logrus.FieldLogger
}

// Paint draws anns, followed by the draft if one is given, onto c.
// Annotations whose ID equals selected get a dashed selection border.
// The caller is responsible for passing only the annotations and the
// draft of the page shown on c.
func (r *Renderer) Paint(c *raster.Canvas, anns []annotation.Annotation, draft *annotation.Draft, scale float64, selected string) error {
	for i := range anns {
		a := &anns[i]
		if err := r.paintShape(c, a.Shape, scale); err != nil {
			return fmt.Errorf("annotation %s: %w", a.ID, err)
		}
		if selected != "" && a.ID == selected {
			r.paintSelection(c, a.Shape, scale)
		}
	}
	if draft != nil {
		return r.paintDraft(c, draft, scale)
	}
	return nil
}

// PaintShape draws a single shape.
func (r *Renderer) PaintShape(c *raster.Canvas, s annotation.Shape, scale float64) error {
	return r.paintShape(c, s, scale)
}

func (r *Renderer) paintShape(c *raster.Canvas, s annotation.Shape, scale float64) error {
	st := r.style()
	switch s := s.(type) {
	case annotation.Box:
		p := rectPath(displayRect(s.P1, s.P2, scale))
		c.Fill(p, raster.NonZero, st.BoxFill, matrix.Identity)
		c.Stroke(p, raster.StrokeStyle{
			Width: LineWidth * scale,
			Join:  graphics.LineJoinMiter,
		}, st.BoxStroke, matrix.Identity)

	case annotation.Highlight:
		p := rectPath(displayRect(s.P1, s.P2, scale))
		c.Fill(p, raster.NonZero, st.HighlightFill, matrix.Identity)

	case annotation.Arrow:
		from := coords.ToDisplay(s.From, scale)
		to := coords.ToDisplay(s.To, scale)
		shaft := (&path.Data{}).MoveTo(from).LineTo(to)
		c.Stroke(shaft, raster.StrokeStyle{
			Width: LineWidth * scale,
			Cap:   graphics.LineCapRound,
		}, st.Arrow, matrix.Identity)
		if head, ok := arrowHead(from, to, ArrowHeadLength*scale); ok {
			p := (&path.Data{}).MoveTo(to).LineTo(head[0]).LineTo(head[1]).Close()
			c.Fill(p, raster.NonZero, st.Arrow, matrix.Identity)
		}

	case annotation.Text:
		at := coords.ToDisplay(s.At, scale)
		size := TextSize * scale
		if err := c.Text(s.Content, at.X, at.Y+size, size, st.Text); err != nil {
			return err
		}

	case annotation.Comment:
		at := coords.ToDisplay(s.At, scale)
		p := pinPath(at)
		c.Fill(p, raster.NonZero, st.Pin, matrix.Identity)
		c.Stroke(p, raster.StrokeStyle{Width: 1, Join: graphics.LineJoinRound}, st.PinOutline, matrix.Identity)
		dot := raster.AppendCircle(&path.Data{}, pinHead(at), PinRadius/3, false)
		c.Fill(dot, raster.NonZero, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, matrix.Identity)

	default:
		panic(fmt.Sprintf("overlay: unhandled shape %T", s))
	}
	return nil
}

func (r *Renderer) paintSelection(c *raster.Canvas, s annotation.Shape, scale float64) {
	b, err := DisplayBounds(s, scale)
	if err != nil {
		r.logger().WithError(err).Warn("cannot compute selection bounds")
		return
	}
	b.LLx -= selectionMargin
	b.LLy -= selectionMargin
	b.URx += selectionMargin
	b.URy += selectionMargin
	c.Stroke(rectPath(b), raster.StrokeStyle{
		Width: 1.5,
		Dash:  []float64{4, 3},
	}, r.style().Selection, matrix.Identity)
}

// paintDraft shows the shape being drawn.  A text draft has no content yet,
// so the dragged region is outlined instead.  Comments never have a draft.
func (r *Renderer) paintDraft(c *raster.Canvas, d *annotation.Draft, scale float64) error {
	switch d.Kind {
	case annotation.KindText:
		if d.Content == "" {
			c.Stroke(rectPath(displayRect(d.Start, d.End, scale)), raster.StrokeStyle{
				Width: 1,
				Dash:  []float64{3, 3},
			}, r.style().DraftOutline, matrix.Identity)
			return nil
		}
	case annotation.KindComment:
		return nil
	}
	s, err := d.Shape()
	if err != nil {
		return err
	}
	return r.paintShape(c, s, scale)
}

func (r *Renderer) style() *Style {
	if r.Style == nil {
		return &DefaultStyle
	}
	return r.Style
}

func (r *Renderer) logger() logrus.FieldLogger {
	return logging.OrDiscard(r.Logger)
}

// DisplayBounds returns the bounding box of s in display space at the
// given scale.
func DisplayBounds(s annotation.Shape, scale float64) (rect.Rect, error) {
	switch s := s.(type) {
	case annotation.Box:
		return displayRect(s.P1, s.P2, scale), nil
	case annotation.Highlight:
		return displayRect(s.P1, s.P2, scale), nil
	case annotation.Arrow:
		return displayRect(s.From, s.To, scale), nil
	case annotation.Text:
		b, err := textBounds(s)
		if err != nil {
			return rect.Rect{}, err
		}
		return displayRect(vec.Vec2{X: b.LLx, Y: b.LLy}, vec.Vec2{X: b.URx, Y: b.URy}, scale), nil
	case annotation.Comment:
		at := coords.ToDisplay(s.At, scale)
		head := pinHead(at)
		return rect.Rect{
			LLx: head.X - PinRadius,
			LLy: head.Y - PinRadius,
			URx: head.X + PinRadius,
			URy: at.Y,
		}, nil
	default:
		panic(fmt.Sprintf("overlay: unhandled shape %T", s))
	}
}

// HitTest returns the topmost annotation containing the document-space
// point p.  The zoom converts the pixel tolerances into document units.
func HitTest(anns []annotation.Annotation, p vec.Vec2, zoom float64) (annotation.Annotation, bool) {
	zoom = max(zoom, 1e-6)
	tol := HitTolerance / zoom
	for i := len(anns) - 1; i >= 0; i-- {
		if hit(anns[i].Shape, p, zoom, tol) {
			return anns[i], true
		}
	}
	return annotation.Annotation{}, false
}

func hit(s annotation.Shape, p vec.Vec2, zoom, tol float64) bool {
	switch s := s.(type) {
	case annotation.Box:
		return contains(annotation.Normalize(s.P1, s.P2), p, tol)
	case annotation.Highlight:
		return contains(annotation.Normalize(s.P1, s.P2), p, tol)
	case annotation.Arrow:
		return segmentDistance(p, s.From, s.To) <= tol
	case annotation.Text:
		b, err := textBounds(s)
		if err != nil {
			return false
		}
		return contains(b, p, 0)
	case annotation.Comment:
		// the pin is a disc on a stem, both of fixed pixel size
		head := s.At.Sub(vec.Vec2{Y: PinHeight / zoom})
		return segmentDistance(p, s.At, head) <= (PinRadius+HitTolerance)/zoom
	default:
		panic(fmt.Sprintf("overlay: unhandled shape %T", s))
	}
}

// textBounds returns the box covered by a text annotation, in document
// units.  The line height is 1.2 times the font size.
func textBounds(s annotation.Text) (rect.Rect, error) {
	w, err := raster.MeasureText(s.Content, TextSize)
	if err != nil {
		return rect.Rect{}, err
	}
	return rect.Rect{
		LLx: s.At.X,
		LLy: s.At.Y,
		URx: s.At.X + w,
		URy: s.At.Y + 1.2*TextSize,
	}, nil
}

func displayRect(p1, p2 vec.Vec2, scale float64) rect.Rect {
	return annotation.Normalize(coords.ToDisplay(p1, scale), coords.ToDisplay(p2, scale))
}

func rectPath(r rect.Rect) *path.Data {
	return (&path.Data{}).
		MoveTo(vec.Vec2{X: r.LLx, Y: r.LLy}).
		LineTo(vec.Vec2{X: r.URx, Y: r.LLy}).
		LineTo(vec.Vec2{X: r.URx, Y: r.URy}).
		LineTo(vec.Vec2{X: r.LLx, Y: r.URy}).
		Close()
}

// arrowHead returns the two back corners of the arrowhead at to.  The
// result is not defined for a zero-length arrow.
func arrowHead(from, to vec.Vec2, length float64) ([2]vec.Vec2, bool) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 && dy == 0 {
		return [2]vec.Vec2{}, false
	}
	angle := math.Atan2(dy, dx)
	var res [2]vec.Vec2
	for i, a := range []float64{angle - ArrowHeadAngle, angle + ArrowHeadAngle} {
		res[i] = vec.Vec2{
			X: to.X - length*math.Cos(a),
			Y: to.Y - length*math.Sin(a),
		}
	}
	return res, true
}

func pinHead(tip vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: tip.X, Y: tip.Y - PinHeight}
}

// pinPath returns the outline of a map pin whose tip is at tip: a circle
// with tangent lines meeting at the tip.
func pinPath(tip vec.Vec2) *path.Data {
	head := pinHead(tip)

	// angles of the tangent points, measured at the centre of the head
	alpha := math.Acos(PinRadius / PinHeight)
	a0 := math.Pi/2 - alpha
	a1 := math.Pi/2 + alpha - 2*math.Pi

	right := vec.Vec2{X: head.X + PinRadius*math.Cos(a0), Y: head.Y + PinRadius*math.Sin(a0)}
	p := (&path.Data{}).MoveTo(tip).LineTo(right)
	return raster.AppendArc(p, head, PinRadius, a0, a1).Close()
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b vec.Vec2) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Sub(a).Length()
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = max(0, min(1, t))
	return p.Sub(a.Add(ab.Mul(t))).Length()
}

func contains(r rect.Rect, p vec.Vec2, tol float64) bool {
	return p.X >= r.LLx-tol && p.X <= r.URx+tol && p.Y >= r.LLy-tol && p.Y <= r.URy+tol
}
