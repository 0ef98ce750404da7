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

// Command export writes the annotation scenarios, in the JSON wire format
// used by the persistence service, to testdata/scenarios.json.
package main

import (
	"encoding/json"
	"maps"
	"os"
	"slices"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/overlay"
	"seehuhn.de/go/markup/testcases"
)

func main() {
	var out struct {
		Scenarios []jsonScenario `json:"scenarios"`
	}

	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, sc := range testcases.All[category] {
			out.Scenarios = append(out.Scenarios, toJSON(category, &sc))
		}
	}

	if err := os.MkdirAll("testdata", 0o755); err != nil {
		panic(err)
	}
	f, err := os.Create("testdata/scenarios.json")
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		panic(err)
	}
}

type jsonScenario struct {
	Name        string                  `json:"name"`
	Width       float64                 `json:"width"`
	Height      float64                 `json:"height"`
	Zoom        float64                 `json:"zoom"`
	Annotations []annotation.Annotation `json:"annotations"`
	Bounds      [][4]float64            `json:"display_bounds"`
}

func toJSON(category string, sc *testcases.Scenario) jsonScenario {
	js := jsonScenario{
		Name:        category + "_" + sc.Name,
		Width:       sc.Width,
		Height:      sc.Height,
		Zoom:        sc.Zoom,
		Annotations: sc.Annotations(),
	}
	for _, shape := range sc.Shapes {
		b, err := overlay.DisplayBounds(shape, sc.Zoom)
		if err != nil {
			panic(err)
		}
		js.Bounds = append(js.Bounds, [4]float64{b.LLx, b.LLy, b.URx, b.URy})
	}
	return js
}
