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
	"slices"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// Stroke rasterises the outline of p using the stroke parameters stored in
// r.  The outline is built from one polygon per segment, join, and cap, all
// with the same orientation, and the union is filled with the nonzero rule.
func (r *Rasteriser) Stroke(p *path.Data, emit func(y, xMin int, coverage []float32)) {
	r.polys = r.polys[:0]
	r.polyStart = r.polyStart[:0]

	h := r.Width / 2
	if scale := r.deviceScale(); scale > 0 && h*scale < 0.5 {
		// Zero and hairline widths draw the thinnest visible line.
		h = 0.5 / scale
	}

	dashed := r.dashActive()
	hasSegments := false
	flush := func(closed bool) {
		if hasSegments {
			if dashed {
				r.dashLine(r.line, closed, h)
			} else {
				r.strokeLine(r.line, closed, h)
			}
		}
		r.line = r.line[:0]
		hasSegments = false
	}
	appendPoint := func(_, to vec.Vec2) {
		if len(r.line) == 0 || to != r.line[len(r.line)-1] {
			r.line = append(r.line, to)
		}
	}
	last := func() vec.Vec2 {
		if len(r.line) == 0 {
			return vec.Vec2{}
		}
		return r.line[len(r.line)-1]
	}

	r.line = r.line[:0]
	var start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			flush(false)
			start = p.Coords[k]
			r.line = append(r.line, start)
			k++
		case path.CmdLineTo:
			appendPoint(vec.Vec2{}, p.Coords[k])
			hasSegments = true
			k++
		case path.CmdQuadTo:
			r.flattenQuadratic(last(), p.Coords[k], p.Coords[k+1], appendPoint)
			hasSegments = true
			k += 2
		case path.CmdCubeTo:
			r.flattenCubic(last(), p.Coords[k], p.Coords[k+1], p.Coords[k+2], appendPoint)
			hasSegments = true
			k += 3
		case path.CmdClose:
			flush(true)
			r.line = append(r.line, start)
		}
	}
	flush(false)

	r.beginEdges()
	for i, lo := range r.polyStart {
		hi := len(r.polys)
		if i+1 < len(r.polyStart) {
			hi = r.polyStart[i+1]
		}
		poly := r.polys[lo:hi]
		for j := range poly {
			r.addEdge(poly[j], poly[(j+1)%len(poly)])
		}
	}
	r.fillEdges(NonZero, emit)
}

// deviceScale returns the geometric mean of the CTM's scale factors.
func (r *Rasteriser) deviceScale() float64 {
	return math.Sqrt(math.Abs(r.CTM[0]*r.CTM[3] - r.CTM[1]*r.CTM[2]))
}

// strokeLine adds the outline polygons for a polyline without repeated
// consecutive points.
func (r *Rasteriser) strokeLine(pts []vec.Vec2, closed bool, h float64) {
	if closed && len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) == 1 {
		r.strokeDot(pts[0], h)
		return
	}
	if len(pts) == 2 {
		closed = false
	}

	nSeg := len(pts) - 1
	if closed {
		nSeg = len(pts)
	}
	dir := func(i int) vec.Vec2 {
		return unit(pts[(i+1)%len(pts)].Sub(pts[i]))
	}

	for i := range nSeg {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		n := normal(dir(i)).Mul(h)
		r.addPoly(a.Add(n), b.Add(n), b.Sub(n), a.Sub(n))
	}

	if closed {
		for i := range pts {
			prev := (i + len(pts) - 1) % len(pts)
			r.join(pts[i], dir(prev), dir(i), h)
		}
		return
	}
	for i := 1; i < len(pts)-1; i++ {
		r.join(pts[i], dir(i-1), dir(i), h)
	}
	r.cap(pts[0], dir(0).Mul(-1), h)
	r.cap(pts[len(pts)-1], dir(nSeg-1), h)
}

// strokeDot handles a zero-length subpath, which is only visible with
// round or square caps.
func (r *Rasteriser) strokeDot(p vec.Vec2, h float64) {
	switch r.Cap {
	case graphics.LineCapRound:
		r.addCircle(p, h)
	case graphics.LineCapSquare:
		r.addPoly(
			vec.Vec2{X: p.X - h, Y: p.Y - h},
			vec.Vec2{X: p.X + h, Y: p.Y - h},
			vec.Vec2{X: p.X + h, Y: p.Y + h},
			vec.Vec2{X: p.X - h, Y: p.Y + h},
		)
	}
}

// cap adds the end cap at p, where d points away from the line.
func (r *Rasteriser) cap(p, d vec.Vec2, h float64) {
	switch r.Cap {
	case graphics.LineCapRound:
		r.addCircle(p, h)
	case graphics.LineCapSquare:
		n := normal(d).Mul(h)
		e := d.Mul(h)
		r.addPoly(p.Add(n), p.Add(n).Add(e), p.Sub(n).Add(e), p.Sub(n))
	}
}

// join adds the corner piece at p between a segment with direction t1 and
// the following segment with direction t2.
func (r *Rasteriser) join(p, t1, t2 vec.Vec2, h float64) {
	cross := t1.X*t2.Y - t1.Y*t2.X
	dot := t1.X*t2.X + t1.Y*t2.Y
	if math.Abs(cross) < zeroLengthThreshold {
		if dot > 0 {
			return
		}
		// The path reverses direction.  Only a round join adds anything.
		if r.Join == graphics.LineJoinRound {
			r.addCircle(p, h)
		}
		return
	}

	if r.Join == graphics.LineJoinRound {
		r.addCircle(p, h)
		return
	}

	// The outer side of the corner is on the right for left turns.
	s := h
	if cross > 0 {
		s = -h
	}
	n1 := normal(t1).Mul(s)
	n2 := normal(t2).Mul(s)

	if r.Join == graphics.LineJoinMiter {
		ratio := 1 / math.Sqrt((1+dot)/2)
		if ratio <= r.MiterLimit {
			tip := p.Add(n1.Add(n2).Mul(1 / (1 + dot)))
			r.addPoly(p, p.Add(n1), tip, p.Add(n2))
			return
		}
	}
	r.addPoly(p, p.Add(n1), p.Add(n2))
}

// addCircle adds a polygonal circle with enough vertices to stay within
// the flatness tolerance in device space.
func (r *Rasteriser) addCircle(c vec.Vec2, rad float64) {
	n := 16
	tol := r.Flatness / 4
	if rDev := rad * r.deviceScale(); rDev > tol {
		n = int(math.Ceil(math.Pi / math.Acos(1-tol/rDev)))
		n = min(max(n, 16), 512)
	}
	r.polyStart = append(r.polyStart, len(r.polys))
	for i := range n {
		phi := 2 * math.Pi * float64(i) / float64(n)
		r.polys = append(r.polys, vec.Vec2{
			X: c.X + rad*math.Cos(phi),
			Y: c.Y + rad*math.Sin(phi),
		})
	}
}

// addPoly records a polygon with positive orientation.
func (r *Rasteriser) addPoly(pts ...vec.Vec2) {
	start := len(r.polys)
	r.polyStart = append(r.polyStart, start)
	r.polys = append(r.polys, pts...)
	if signedArea(pts) < 0 {
		slices.Reverse(r.polys[start:])
	}
}

func (r *Rasteriser) dashActive() bool {
	if len(r.Dash) == 0 {
		return false
	}
	var total float64
	for _, d := range r.Dash {
		if d < 0 {
			return false
		}
		total += d
	}
	return total > 0
}

// dashLine splits a polyline into dashes and strokes each of them.
func (r *Rasteriser) dashLine(pts []vec.Vec2, closed bool, h float64) {
	pattern := r.Dash
	if len(pattern)%2 == 1 {
		pattern = append(slices.Clone(pattern), pattern...)
	}
	var period float64
	for _, d := range pattern {
		period += d
	}

	idx := 0
	phase := math.Mod(r.DashPhase, period)
	if phase < 0 {
		phase += period
	}
	for phase >= pattern[idx] {
		phase -= pattern[idx]
		idx = (idx + 1) % len(pattern)
	}
	left := pattern[idx] - phase
	on := idx%2 == 0

	if closed && pts[0] != pts[len(pts)-1] {
		pts = append(slices.Clone(pts), pts[0])
	}

	var dash []vec.Vec2
	if on {
		dash = append(dash, pts[0])
	}
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		segLen := b.Sub(a).Length()
		pos := 0.0
		for segLen-pos > left {
			pos += left
			q := a.Add(b.Sub(a).Mul(pos / segLen))
			if on {
				dash = append(dash, q)
				r.strokeLine(dash, false, h)
				dash = dash[:0]
			} else {
				dash = append(dash[:0], q)
			}
			on = !on
			idx = (idx + 1) % len(pattern)
			left = pattern[idx]
		}
		left -= segLen - pos
		if on && b != dash[len(dash)-1] {
			dash = append(dash, b)
		}
	}
	if on && len(dash) > 0 {
		r.strokeLine(dash, false, h)
	}
}

func unit(v vec.Vec2) vec.Vec2 {
	l := v.Length()
	if l == 0 {
		return vec.Vec2{}
	}
	return v.Mul(1 / l)
}

// normal returns the left-hand perpendicular of d.
func normal(d vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: -d.Y, Y: d.X}
}

func signedArea(pts []vec.Vec2) float64 {
	var a float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}
