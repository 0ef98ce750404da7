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

package testcases

import (
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/markup/annotation"
)

// Text bounds depend on the font, so text scenarios only use probes.
var textScenarios = []Scenario{
	{
		Name:   "basic",
		Width:  120,
		Height: 60,
		Zoom:   1,
		Shapes: []annotation.Shape{
			annotation.Text{At: pt(10, 10), Content: "Hello"},
		},
		Probes: []Probe{
			{X: 5, Y: 5},
			{X: 100, Y: 50},
		},
	},
	{
		Name:   "zoom_200",
		Width:  120,
		Height: 60,
		Zoom:   2,
		Shapes: []annotation.Shape{
			annotation.Text{At: pt(10, 10), Content: "Check level 2"},
		},
		Probes: []Probe{
			{X: 10, Y: 10},
			{X: 20, Y: 100},
		},
	},
	{
		Name:   "unicode",
		Width:  120,
		Height: 60,
		Zoom:   1,
		Shapes: []annotation.Shape{
			annotation.Text{At: pt(20, 20), Content: "Größe ±5%"},
		},
	},
}

// The pin has a fixed size in pixels, independent of the zoom.
var commentScenarios = []Scenario{
	{
		Name:   "basic",
		Width:  100,
		Height: 80,
		Zoom:   1,
		Shapes: []annotation.Shape{
			annotation.Comment{At: pt(50, 60), Content: "note"},
		},
		Bounds: []rect.Rect{bounds(43, 31, 57, 60)},
		Probes: []Probe{
			{X: 50, Y: 50, Painted: true},
			{X: 50, Y: 62},
			{X: 65, Y: 38},
		},
	},
	{
		Name:   "zoom_200",
		Width:  60,
		Height: 60,
		Zoom:   2,
		Shapes: []annotation.Shape{
			annotation.Comment{At: pt(30, 40), Content: "pin size does not scale"},
		},
		Bounds: []rect.Rect{bounds(53, 51, 67, 80)},
		Probes: []Probe{
			{X: 60, Y: 70, Painted: true},
			{X: 60, Y: 85},
			{X: 45, Y: 58},
		},
	},
	{
		Name:   "near_top",
		Width:  60,
		Height: 60,
		Zoom:   1,
		Shapes: []annotation.Shape{
			annotation.Comment{At: pt(30, 5), Content: "clipped"},
		},
		Bounds: []rect.Rect{bounds(23, -24, 37, 5)},
		Probes: []Probe{
			{X: 30, Y: 2, Painted: true},
		},
	},
}
