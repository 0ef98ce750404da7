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

// Package coords converts between document space and display space.
//
// Document space is fixed to the page content, with the origin in the top
// left corner of the page and y increasing downwards.  Display space is
// measured in pixels of the current, zoomed view.
package coords

import "seehuhn.de/go/geom/vec"

// Zoom limits for interactive viewing.
const (
	MinZoom = 0.5
	MaxZoom = 4.0
)

// ToDocument maps a screen point to document space.  The origin is the
// screen position of the page's top left corner.  Zoom must be positive.
func ToDocument(screen, origin vec.Vec2, zoom float64) vec.Vec2 {
	return vec.Vec2{
		X: (screen.X - origin.X) / zoom,
		Y: (screen.Y - origin.Y) / zoom,
	}
}

// ToDisplay maps a document-space point to display space, relative to the
// page's top left corner.
func ToDisplay(p vec.Vec2, zoom float64) vec.Vec2 {
	return vec.Vec2{X: p.X * zoom, Y: p.Y * zoom}
}

// ClampZoom restricts z to the range [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	return min(max(z, MinZoom), MaxZoom)
}
