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

package source

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/markup/raster"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

type testPage struct {
	width, height float64
	content       string
	rotate        int

	// parts are further content streams, appended to content.
	parts []string

	// forms maps XObject names to the content of form XObjects.
	forms map[pdf.Name]string
}

func writeStream(t *testing.T, w *pdf.Writer, dict pdf.Dict, body string) pdf.Reference {
	t.Helper()
	ref := w.Alloc()
	stm, err := w.OpenStream(ref, dict)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stm.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := stm.Close(); err != nil {
		t.Fatal(err)
	}
	return ref
}

// makePDF writes a PDF file with one page per entry of pages.
func makePDF(t *testing.T, title string, pages ...testPage) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	w, err := pdf.NewWriter(buf, pdf.V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	if title != "" {
		w.GetMeta().Info = &pdf.Info{Title: pdf.TextString(title)}
	}
	rm := pdf.NewResourceManager(w)
	tree := pagetree.NewWriter(w, rm)

	for _, p := range pages {
		var contents pdf.Object = writeStream(t, w, nil, p.content)
		if len(p.parts) > 0 {
			a := pdf.Array{contents}
			for _, part := range p.parts {
				a = append(a, writeStream(t, w, nil, part))
			}
			contents = a
		}

		res := pdf.Dict{}
		if len(p.forms) > 0 {
			xobj := pdf.Dict{}
			for key, body := range p.forms {
				xobj[key] = writeStream(t, w, pdf.Dict{
					"Type":    pdf.Name("XObject"),
					"Subtype": pdf.Name("Form"),
					"BBox": pdf.Array{
						pdf.Integer(0), pdf.Integer(0), pdf.Number(p.width), pdf.Number(p.height),
					},
					"Resources": pdf.Dict{},
				}, body)
			}
			res["XObject"] = xobj
		}

		dict := pdf.Dict{
			"Type": pdf.Name("Page"),
			"MediaBox": pdf.Array{
				pdf.Integer(0), pdf.Integer(0), pdf.Number(p.width), pdf.Number(p.height),
			},
			"Resources": res,
			"Contents":  contents,
		}
		if p.rotate != 0 {
			dict["Rotate"] = pdf.Integer(p.rotate)
		}
		if err := tree.AppendPageDict(w.Alloc(), dict); err != nil {
			t.Fatal(err)
		}
	}

	ref, err := tree.Close()
	if err != nil {
		t.Fatal(err)
	}
	w.GetMeta().Catalog.Pages = ref
	if err := rm.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "plan.pdf")
	if err := os.WriteFile(fname, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return fname
}

func TestOpen(t *testing.T) {
	data := makePDF(t, "Ground Floor",
		testPage{width: 200, height: 100},
		testPage{width: 100, height: 200},
		testPage{width: 100, height: 200, rotate: 90},
	)
	doc, err := (&PDFOpener{}).Open(context.Background(), writeTemp(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	if doc.NumPages() != 3 {
		t.Errorf("expected 3 pages, got %d", doc.NumPages())
	}
	if doc.Title() != "Ground Floor" {
		t.Errorf("unexpected title %q", doc.Title())
	}

	var got []Viewport
	for n := 1; n <= 3; n++ {
		p, err := doc.Page(n)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, p.Viewport(1.5))
	}
	want := []Viewport{
		{Width: 300, Height: 150, Scale: 1.5},
		{Width: 150, Height: 300, Scale: 1.5},
		{Width: 300, Height: 150, Scale: 1.5},
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("viewports (-want +got):\n%s", d)
	}
	if !got[0].Landscape() || got[1].Landscape() {
		t.Error("wrong orientation")
	}

	if _, err := doc.Page(4); !errors.Is(err, ErrPageRange) {
		t.Errorf("page 4: expected ErrPageRange, got %v", err)
	}
}

func TestTitleFromFileName(t *testing.T) {
	data := makePDF(t, "", testPage{width: 100, height: 100})
	doc, err := (&PDFOpener{}).Open(context.Background(), "file://"+writeTemp(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	if doc.Title() != "plan" {
		t.Errorf("unexpected title %q", doc.Title())
	}
}

func TestRender(t *testing.T) {
	data := makePDF(t, "",
		testPage{width: 200, height: 100, content: "1 0 0 rg 10 10 50 30 re f\n0 0 1 RG 4 w 100 50 m 180 50 l S"},
	)
	doc, err := (&PDFOpener{}).Open(context.Background(), writeTemp(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	p, err := doc.Page(1)
	if err != nil {
		t.Fatal(err)
	}

	w, h := p.Viewport(1).Pixels()
	c := raster.NewCanvas(w, h)
	if err := p.Render(context.Background(), c, 1); err != nil {
		t.Fatal(err)
	}

	img := c.Image()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	cases := []struct {
		x, y int
		want color.RGBA
	}{
		{30, 75, color.RGBA{R: 255, A: 255}}, // inside the rectangle, y flipped
		{30, 20, white},
		{140, 49, color.RGBA{B: 255, A: 255}}, // on the line
		{140, 40, white},
	}
	for _, c := range cases {
		if got := img.RGBAAt(c.x, c.y); got != c.want {
			t.Errorf("pixel (%d,%d): got %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

// renderPage renders the first page of a single-page document at scale 1.
func renderPage(t *testing.T, page testPage) *image.RGBA {
	t.Helper()
	doc, err := (&PDFOpener{}).Open(context.Background(), writeTemp(t, makePDF(t, "", page)))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	p, err := doc.Page(1)
	if err != nil {
		t.Fatal(err)
	}
	w, h := p.Viewport(1).Pixels()
	c := raster.NewCanvas(w, h)
	if err := p.Render(context.Background(), c, 1); err != nil {
		t.Fatal(err)
	}
	return c.Image()
}

func TestRenderContentParts(t *testing.T) {
	// The first part ends without white space, so its last token must
	// not run into the first token of the second part.
	img := renderPage(t, testPage{
		width:   100,
		height:  100,
		content: "0 1 0 rg 10 10 30 30 re",
		parts:   []string{"f 60 60 30 30 re f"},
	})

	green := color.RGBA{G: 255, A: 255}
	black := color.RGBA{A: 255}
	if got := img.RGBAAt(25, 75); got != green {
		t.Errorf("first rectangle: got %v, want %v", got, green)
	}
	if got := img.RGBAAt(75, 25); got != green {
		t.Errorf("second rectangle: got %v, want %v", got, green)
	}
	if got := img.RGBAAt(50, 50); got == green || got == black {
		t.Errorf("gap between rectangles painted: %v", got)
	}
}

func TestRenderSaveRestore(t *testing.T) {
	img := renderPage(t, testPage{
		width:   100,
		height:  100,
		content: "q 1 0 0 rg 2 0 0 2 0 0 cm 5 5 10 10 re f Q 60 60 20 20 re f",
	})

	red := color.RGBA{R: 255, A: 255}
	black := color.RGBA{A: 255}
	cases := []struct {
		x, y int
		want color.RGBA
	}{
		{20, 80, red},   // scaled rectangle, user space (10,20)
		{70, 30, black}, // colour and matrix restored
	}
	for _, c := range cases {
		if got := img.RGBAAt(c.x, c.y); got != c.want {
			t.Errorf("pixel (%d,%d): got %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestRenderForm(t *testing.T) {
	img := renderPage(t, testPage{
		width:   100,
		height:  100,
		content: "0 0 1 rg q 1 0 0 1 50 0 cm /Fm0 Do Q",
		forms: map[pdf.Name]string{
			"Fm0": "10 10 20 20 re f",
		},
	})

	blue := color.RGBA{B: 255, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if got := img.RGBAAt(70, 80); got != blue {
		t.Errorf("form content: got %v, want %v", got, blue)
	}
	if got := img.RGBAAt(20, 80); got != white {
		t.Errorf("untranslated position: got %v, want %v", got, white)
	}
}

func TestRenderCancelled(t *testing.T) {
	data := makePDF(t, "", testPage{width: 100, height: 100, content: "0 0 100 100 re f"})
	doc, err := (&PDFOpener{}).Open(context.Background(), writeTemp(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	p, err := doc.Page(1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.Render(ctx, raster.NewCanvas(100, 100), 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOpenHTTP(t *testing.T) {
	data := makePDF(t, "Remote", testPage{width: 100, height: 100})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plan.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	doc, err := (&PDFOpener{Client: srv.Client()}).Open(context.Background(), srv.URL+"/plan.pdf")
	if err != nil {
		t.Fatal(err)
	}
	doc.Close()

	_, err = (&PDFOpener{Client: srv.Client()}).Open(context.Background(), srv.URL+"/missing.pdf")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected a LoadError, got %v", err)
	}
	if loadErr.URL != srv.URL+"/missing.pdf" {
		t.Errorf("unexpected URL %q", loadErr.URL)
	}
}

func TestLoadError(t *testing.T) {
	bad := []string{
		filepath.Join(t.TempDir(), "does-not-exist.pdf"),
		writeTemp(t, []byte("this is not a PDF file")),
	}
	for _, url := range bad {
		_, err := (&PDFOpener{}).Open(context.Background(), url)
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Errorf("%s: expected a LoadError, got %v", url, err)
		}
	}
}
