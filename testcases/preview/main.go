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

// Command preview renders the annotation scenarios for visual inspection.
// It writes one PNG file per scenario to testdata/preview, and a PDF file
// with one page per scenario, produced by the export compositor.
package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/export"
	"seehuhn.de/go/markup/overlay"
	"seehuhn.de/go/markup/raster"
	"seehuhn.de/go/markup/source/sourcetest"
	"seehuhn.de/go/markup/testcases"
)

const outDir = "testdata/preview"

func main() {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		panic(err)
	}

	doc := &sourcetest.Document{Name: "annotation scenarios"}
	var anns []annotation.Annotation
	r := &overlay.Renderer{}
	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, sc := range testcases.All[category] {
			name := category + "_" + sc.Name
			if err := writePNG(r, &sc, filepath.Join(outDir, name+".png")); err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}

			doc.Sizes = append(doc.Sizes, sourcetest.Size{Width: sc.Width, Height: sc.Height})
			for _, a := range sc.Annotations() {
				a.Page = len(doc.Sizes)
				anns = append(anns, a)
			}
		}
	}

	if err := writePDF(doc, anns, filepath.Join(outDir, "scenarios.pdf")); err != nil {
		panic(err)
	}
}

func writePNG(r *overlay.Renderer, sc *testcases.Scenario, fname string) error {
	w, h := sc.Pixels()
	c := raster.NewCanvas(w, h)
	c.Clear(color.White)
	if err := r.Paint(c, sc.Annotations(), nil, sc.Zoom, ""); err != nil {
		return err
	}

	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := png.Encode(f, c.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writePDF(doc *sourcetest.Document, anns []annotation.Annotation, fname string) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	e := export.New(&export.Options{
		Tiers: []export.Tier{{MinPages: 0, Scale: 2}},
	})
	_, err = e.Export(context.Background(), doc, anns, f)
	if cerr := f.Close(); err == nil && cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}
