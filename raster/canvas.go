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

package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/pdf/graphics"
)

// StrokeStyle collects the parameters for stroking a path.
// Width and Dash are in user-space units.
type StrokeStyle struct {
	Width      float64
	Cap        graphics.LineCapStyle
	Join       graphics.LineJoinStyle
	MiterLimit float64
	Dash       []float64
	DashPhase  float64
}

// Canvas is a raster surface which paths and text can be painted onto.
// Device coordinates have the origin in the top-left corner, with y
// increasing downwards.
//
// A Canvas is not safe for concurrent use.
type Canvas struct {
	img   *image.RGBA
	r     *Rasteriser
	faces map[float64]font.Face
}

// NewCanvas allocates a transparent canvas of the given pixel size.
func NewCanvas(width, height int) *Canvas {
	width = max(width, 1)
	height = max(height, 1)
	clip := rect.Rect{LLx: 0, LLy: 0, URx: float64(width), URy: float64(height)}
	return &Canvas{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
		r:   NewRasteriser(clip),
	}
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// Image returns the backing image.  The image is shared with the canvas.
func (c *Canvas) Image() *image.RGBA { return c.img }

// Clone returns a copy of the canvas.
func (c *Canvas) Clone() *Canvas {
	d := NewCanvas(c.Width(), c.Height())
	copy(d.img.Pix, c.img.Pix)
	return d
}

// Clear paints the whole canvas with col, replacing the previous content.
func (c *Canvas) Clear(col color.Color) {
	draw.Draw(c.img, c.img.Rect, image.NewUniform(col), image.Point{}, draw.Src)
}

// Fill paints the interior of p, transformed by ctm, with col.
func (c *Canvas) Fill(p *path.Data, rule FillRule, col color.NRGBA, ctm matrix.Matrix) {
	c.r.Reset(c.r.Clip)
	c.r.CTM = ctm
	c.r.Fill(p, rule, c.blender(col))
}

// Stroke paints the outline of p, transformed by ctm, with col.
func (c *Canvas) Stroke(p *path.Data, st StrokeStyle, col color.NRGBA, ctm matrix.Matrix) {
	c.r.CTM = ctm
	c.r.Width = st.Width
	c.r.Cap = st.Cap
	c.r.Join = st.Join
	c.r.MiterLimit = st.MiterLimit
	if c.r.MiterLimit < 1 {
		c.r.MiterLimit = defaultMiterLimit
	}
	c.r.Dash = st.Dash
	c.r.DashPhase = st.DashPhase
	c.r.Stroke(p, c.blender(col))
}

// blender returns an emit callback which composites col onto the canvas
// using source-over, weighted by coverage.
func (c *Canvas) blender(col color.NRGBA) func(y, xMin int, coverage []float32) {
	alpha := float32(col.A) / 255
	sr := float32(col.R)
	sg := float32(col.G)
	sb := float32(col.B)
	return func(y, xMin int, coverage []float32) {
		off := c.img.PixOffset(xMin, y)
		pix := c.img.Pix[off : off+4*len(coverage)]
		for i, cov := range coverage {
			a := alpha * cov
			if a <= 0 {
				continue
			}
			inv := 1 - a
			px := pix[4*i : 4*i+4 : 4*i+4]
			px[0] = uint8(sr*a + float32(px[0])*inv + 0.5)
			px[1] = uint8(sg*a + float32(px[1])*inv + 0.5)
			px[2] = uint8(sb*a + float32(px[2])*inv + 0.5)
			px[3] = uint8(255*a + float32(px[3])*inv + 0.5)
		}
	}
}

// Text draws s with its baseline starting at (x, y) in device pixels.
// The font is the Go regular font at the given pixel size.
func (c *Canvas) Text(s string, x, y, size float64, col color.NRGBA) error {
	face, err := c.face(size)
	if err != nil {
		return err
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(x), Y: toFixed(y)},
	}
	d.DrawString(s)
	return nil
}

// TextWidth returns the advance width of s in pixels.
func (c *Canvas) TextWidth(s string, size float64) (float64, error) {
	face, err := c.face(size)
	if err != nil {
		return 0, err
	}
	adv := font.MeasureString(face, s)
	return float64(adv) / 64, nil
}

func toFixed(x float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(x * 64))
}

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error

	measureMu    sync.Mutex
	measureFaces = map[float64]font.Face{}
)

func newFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return opentype.NewFace(fontData, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// face returns a face of the Go regular font.  Faces keep per-glyph state,
// so every canvas holds its own.
func (c *Canvas) face(size float64) (font.Face, error) {
	size = math.Round(size*4) / 4
	if f, ok := c.faces[size]; ok {
		return f, nil
	}
	f, err := newFace(size)
	if err != nil {
		return nil, err
	}
	if c.faces == nil {
		c.faces = make(map[float64]font.Face)
	}
	c.faces[size] = f
	return f, nil
}

// MeasureText returns the advance width of s in the Go regular font at
// the given size.  It is safe for concurrent use.
func MeasureText(s string, size float64) (float64, error) {
	size = math.Round(size*4) / 4

	measureMu.Lock()
	defer measureMu.Unlock()
	f, ok := measureFaces[size]
	if !ok {
		var err error
		f, err = newFace(size)
		if err != nil {
			return 0, err
		}
		measureFaces[size] = f
	}
	return float64(font.MeasureString(f, s)) / 64, nil
}
