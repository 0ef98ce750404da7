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

var boxScenarios = []Scenario{
	{
		Name:   "basic",
		Width:  100,
		Height: 80,
		Zoom:   1,
		Shapes: []annotation.Shape{
			annotation.Box{P1: pt(10, 10), P2: pt(50, 40)},
		},
		Bounds: []rect.Rect{bounds(10, 10, 50, 40)},
		Probes: []Probe{
			{X: 10, Y: 25, Painted: true},
			{X: 30, Y: 25, Painted: true},
			{X: 70, Y: 60},
		},
	},
	{
		Name:   "zoom_150",
		Width:  100,
		Height: 80,
		Zoom:   1.5,
		Shapes: []annotation.Shape{
			annotation.Box{P1: pt(50, 40), P2: pt(10, 10)},
		},
		Bounds: []rect.Rect{bounds(15, 15, 75, 60)},
		Probes: []Probe{
			{X: 15, Y: 37, Painted: true},
			{X: 45, Y: 59, Painted: true},
			{X: 90, Y: 70},
		},
	},
	{
		Name:   "zoom_50",
		Width:  200,
		Height: 160,
		Zoom:   0.5,
		Shapes: []annotation.Shape{
			annotation.Box{P1: pt(20, 20), P2: pt(180, 140)},
		},
		Bounds: []rect.Rect{bounds(10, 10, 90, 70)},
		Probes: []Probe{
			{X: 10, Y: 40, Painted: true},
			{X: 95, Y: 75},
		},
	},
}

var highlightScenarios = []Scenario{
	{
		Name:   "basic",
		Width:  100,
		Height: 80,
		Zoom:   1,
		Shapes: []annotation.Shape{
			annotation.Highlight{P1: pt(20, 30), P2: pt(80, 45)},
		},
		Bounds: []rect.Rect{bounds(20, 30, 80, 45)},
		Probes: []Probe{
			{X: 50, Y: 37, Painted: true},
			{X: 50, Y: 29}, // no border
			{X: 50, Y: 50},
		},
	},
	{
		Name:   "zoom_200",
		Width:  50,
		Height: 40,
		Zoom:   2,
		Shapes: []annotation.Shape{
			annotation.Highlight{P1: pt(40, 30), P2: pt(10, 20)},
		},
		Bounds: []rect.Rect{bounds(20, 40, 80, 60)},
		Probes: []Probe{
			{X: 50, Y: 50, Painted: true},
			{X: 10, Y: 50},
		},
	},
}

var arrowScenarios = []Scenario{
	{
		Name:   "horizontal",
		Width:  100,
		Height: 80,
		Zoom:   1,
		Shapes: []annotation.Shape{
			annotation.Arrow{From: pt(10, 40), To: pt(90, 40)},
		},
		Bounds: []rect.Rect{bounds(10, 40, 90, 40)},
		Probes: []Probe{
			{X: 50, Y: 40, Painted: true},
			{X: 84, Y: 42, Painted: true}, // head
			{X: 50, Y: 46},
			{X: 15, Y: 44},
		},
	},
	{
		Name:   "reverse",
		Width:  100,
		Height: 80,
		Zoom:   1,
		Shapes: []annotation.Shape{
			annotation.Arrow{From: pt(90, 40), To: pt(10, 40)},
		},
		Bounds: []rect.Rect{bounds(10, 40, 90, 40)},
		Probes: []Probe{
			{X: 15, Y: 42, Painted: true}, // head
			{X: 85, Y: 44},
		},
	},
	{
		Name:   "diagonal",
		Width:  50,
		Height: 50,
		Zoom:   2,
		Shapes: []annotation.Shape{
			annotation.Arrow{From: pt(10, 10), To: pt(40, 30)},
		},
		Bounds: []rect.Rect{bounds(20, 20, 80, 60)},
		Probes: []Probe{
			{X: 50, Y: 40, Painted: true},
			{X: 20, Y: 60},
			{X: 80, Y: 20},
		},
	},
}

var mixedScenarios = []Scenario{
	{
		Name:   "stacked",
		Width:  120,
		Height: 100,
		Zoom:   1,
		Shapes: []annotation.Shape{
			annotation.Highlight{P1: pt(10, 10), P2: pt(110, 30)},
			annotation.Box{P1: pt(20, 20), P2: pt(60, 70)},
			annotation.Arrow{From: pt(100, 90), To: pt(60, 70)},
			annotation.Comment{At: pt(90, 60), Content: "see above"},
		},
		Bounds: []rect.Rect{
			bounds(10, 10, 110, 30),
			bounds(20, 20, 60, 70),
			bounds(60, 70, 100, 90),
			bounds(83, 31, 97, 60),
		},
		Probes: []Probe{
			{X: 100, Y: 15, Painted: true},
			{X: 20, Y: 50, Painted: true},
			{X: 80, Y: 80, Painted: true},
			{X: 5, Y: 95},
		},
	},
}
