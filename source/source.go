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

// Package source opens paginated vector documents and renders their pages
// onto raster canvases.
package source

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"seehuhn.de/go/markup/raster"
)

// Opener opens documents by URL.
type Opener interface {
	Open(ctx context.Context, url string) (Document, error)
}

// Document is an opened paginated document.
// Implementations must be safe for concurrent use.
type Document interface {
	// NumPages returns the number of pages.
	NumPages() int

	// Page returns the page with the given 1-based number.
	Page(n int) (Page, error)

	// Title returns the document title, or the empty string if the
	// document has none.
	Title() string

	// Close releases the resources held by the document.
	Close() error
}

// Page is a single page of a document.
type Page interface {
	// Number returns the 1-based page number.
	Number() int

	// Viewport returns the page size at the given scale.
	Viewport(scale float64) Viewport

	// Render paints the page onto c, which must have the size of the
	// viewport at the same scale.  Render checks ctx between drawing
	// operations and returns ctx.Err() if it is cancelled.
	Render(ctx context.Context, c *raster.Canvas, scale float64) error
}

// Viewport is the displayed size of a page at a given scale.
type Viewport struct {
	Width, Height float64 // in pixels
	Scale         float64
}

// Pixels returns the canvas size needed to hold the viewport.
func (v Viewport) Pixels() (width, height int) {
	return int(math.Ceil(v.Width - 1e-6)), int(math.Ceil(v.Height - 1e-6))
}

// Landscape reports whether the page is wider than it is high.
func (v Viewport) Landscape() bool {
	return v.Width > v.Height
}

// ErrPageRange is returned when a page number is outside the document.
var ErrPageRange = errors.New("page number out of range")

// LoadError indicates that a document could not be opened.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load %q: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
