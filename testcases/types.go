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

// Package testcases holds a catalogue of annotation scenarios.  Each
// scenario places a few annotations on a blank page and records where they
// must appear on screen.  The catalogue is used by the overlay tests and by
// the preview and export tools in the sub-directories.
package testcases

import (
	"fmt"
	"math"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/markup/annotation"
)

// Scenario is a blank page with annotations on it.
type Scenario struct {
	Name   string  // lowercase a-z, 0-9 and _ only
	Width  float64 // page width in document units
	Height float64 // page height in document units
	Zoom   float64

	Shapes []annotation.Shape

	// Bounds are the expected display bounds, one per shape.  Nil skips
	// the check, for shapes whose size depends on the font.
	Bounds []rect.Rect

	Probes []Probe
}

// Probe is a pixel which must, or must not, be touched when the scenario is
// painted onto a white canvas.
type Probe struct {
	X, Y    int
	Painted bool
}

// Pixels returns the canvas size of the page at the scenario's zoom.
func (s *Scenario) Pixels() (width, height int) {
	return int(math.Ceil(s.Width * s.Zoom)), int(math.Ceil(s.Height * s.Zoom))
}

// Annotations returns the shapes as annotations on page 1, in order.
func (s *Scenario) Annotations() []annotation.Annotation {
	res := make([]annotation.Annotation, len(s.Shapes))
	for i, shape := range s.Shapes {
		res[i] = annotation.Annotation{
			ID:         fmt.Sprintf("%s_%d", s.Name, i+1),
			DocumentID: "testcases",
			VersionID:  "1",
			Page:       1,
			Shape:      shape,
		}
	}
	return res
}

// pt is a helper to create a vec.Vec2 from x, y coordinates.
func pt(x, y float64) vec.Vec2 {
	return vec.Vec2{X: x, Y: y}
}

func bounds(llx, lly, urx, ury float64) rect.Rect {
	return rect.Rect{LLx: llx, LLy: lly, URx: urx, URy: ury}
}
