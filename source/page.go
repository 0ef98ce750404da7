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
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/markup/raster"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/reader"
)

type pdfPage struct {
	doc    *pdfDocument
	number int
	dict   pdf.Dict
	box    pdf.Rectangle
	rotate int
}

func (p *pdfPage) Number() int { return p.number }

// Viewport implements the [Page] interface.
func (p *pdfPage) Viewport(scale float64) Viewport {
	w := (p.box.URx - p.box.LLx) * scale
	h := (p.box.URy - p.box.LLy) * scale
	if p.rotate == 90 || p.rotate == 270 {
		w, h = h, w
	}
	return Viewport{Width: w, Height: h, Scale: scale}
}

// deviceMatrix maps PDF user space to canvas pixels, with the origin in
// the top left corner of the displayed page.
func (p *pdfPage) deviceMatrix(s float64) matrix.Matrix {
	b := p.box
	switch p.rotate {
	case 90:
		return matrix.Matrix{0, s, s, 0, -s * b.LLy, -s * b.LLx}
	case 180:
		return matrix.Matrix{-s, 0, 0, s, s * b.URx, -s * b.LLy}
	case 270:
		return matrix.Matrix{0, -s, -s, 0, s * b.URy, s * b.URx}
	default:
		return matrix.Matrix{s, 0, 0, -s, -s * b.LLx, s * b.URy}
	}
}

// Render implements the [Page] interface.
func (p *pdfPage) Render(ctx context.Context, c *raster.Canvas, scale float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	if p.doc.r == nil {
		return errors.New("document is closed")
	}

	c.Clear(color.White)

	r := reader.New(p.doc.r)
	newPainter(ctx, c).attach(r)
	err := r.ParsePage(p.dict, p.deviceMatrix(scale))
	if err != nil && ctx.Err() == nil {
		err = errors.Wrapf(err, "page %d", p.number)
	}
	return err
}
