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

// Package sourcetest provides an in-memory document for tests.
package sourcetest

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"slices"
	"sync"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/markup/raster"
	"seehuhn.de/go/markup/source"
)

// ErrInjected is returned when rendering the page selected by
// Document.FailPage.
var ErrInjected = errors.New("injected render failure")

// Size is the size of a page in document units.
type Size struct {
	Width, Height float64
}

// Document is a source.Document with blank pages.  Each page is painted
// white with a thin gray frame.
type Document struct {
	Name  string
	Sizes []Size

	// If Gate is not nil, Render blocks until Gate is closed or the
	// context is cancelled.
	Gate chan struct{}

	// FailPage, if positive, makes rendering this page fail.
	FailPage int

	mu        sync.Mutex
	started   []int
	completed []int
	closed    bool
}

// New returns a document with n pages of the given size.
func New(n int, width, height float64) *Document {
	sizes := make([]Size, n)
	for i := range sizes {
		sizes[i] = Size{Width: width, Height: height}
	}
	return &Document{Name: "test document", Sizes: sizes}
}

func (d *Document) NumPages() int { return len(d.Sizes) }

func (d *Document) Title() string { return d.Name }

func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Page implements the [source.Document] interface.
func (d *Document) Page(n int) (source.Page, error) {
	if n < 1 || n > len(d.Sizes) {
		return nil, fmt.Errorf("page %d: %w", n, source.ErrPageRange)
	}
	return &page{doc: d, n: n, size: d.Sizes[n-1]}, nil
}

// Started returns the pages for which Render was entered, in order.
func (d *Document) Started() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.started)
}

// Completed returns the pages which were rendered successfully, in order.
func (d *Document) Completed() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.completed)
}

type page struct {
	doc  *Document
	n    int
	size Size
}

func (p *page) Number() int { return p.n }

func (p *page) Viewport(scale float64) source.Viewport {
	return source.Viewport{
		Width:  p.size.Width * scale,
		Height: p.size.Height * scale,
		Scale:  scale,
	}
}

func (p *page) Render(ctx context.Context, c *raster.Canvas, scale float64) error {
	d := p.doc
	d.mu.Lock()
	d.started = append(d.started, p.n)
	gate := d.Gate
	fail := d.FailPage == p.n
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fail {
		return ErrInjected
	}

	c.Clear(color.White)
	frame := (&path.Data{}).
		MoveTo(vec.Vec2{X: 0, Y: 0}).
		LineTo(vec.Vec2{X: p.size.Width, Y: 0}).
		LineTo(vec.Vec2{X: p.size.Width, Y: p.size.Height}).
		LineTo(vec.Vec2{X: 0, Y: p.size.Height}).
		Close()
	c.Stroke(frame, raster.StrokeStyle{Width: 1}, color.NRGBA{R: 128, G: 128, B: 128, A: 255},
		matrix.Scale(scale, scale))

	d.mu.Lock()
	d.completed = append(d.completed, p.n)
	d.mu.Unlock()
	return nil
}
