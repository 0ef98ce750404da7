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
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// AppendCircle adds a closed circle, made of four cubic Bézier segments, to
// p.  The circle starts at the point with the smallest y coordinate.
func AppendCircle(p *path.Data, c vec.Vec2, r float64, clockwise bool) *path.Data {
	a0 := -math.Pi / 2
	a1 := a0 + 2*math.Pi
	if clockwise {
		a1 = a0 - 2*math.Pi
	}
	p.MoveTo(vec.Vec2{X: c.X, Y: c.Y - r})
	return AppendArc(p, c, r, a0, a1).Close()
}

// AppendArc appends a circular arc around c from angle a0 to a1, using
// cubic Bézier segments of at most 90 degrees.  The arc runs
// counterclockwise if a1 > a0.  The current point of p must be the start
// of the arc.
func AppendArc(p *path.Data, c vec.Vec2, r, a0, a1 float64) *path.Data {
	n := int(math.Ceil(math.Abs(a1-a0) / (math.Pi / 2)))
	n = max(n, 1)
	step := (a1 - a0) / float64(n)
	k := 4.0 / 3.0 * math.Tan(step/4)
	for i := range n {
		s0 := a0 + float64(i)*step
		s1 := s0 + step
		p0 := vec.Vec2{X: c.X + r*math.Cos(s0), Y: c.Y + r*math.Sin(s0)}
		p3 := vec.Vec2{X: c.X + r*math.Cos(s1), Y: c.Y + r*math.Sin(s1)}
		p1 := vec.Vec2{X: p0.X - k*r*math.Sin(s0), Y: p0.Y + k*r*math.Cos(s0)}
		p2 := vec.Vec2{X: p3.X + k*r*math.Sin(s1), Y: p3.Y - k*r*math.Cos(s1)}
		p.CubeTo(p1, p2, p3)
	}
	return p
}
