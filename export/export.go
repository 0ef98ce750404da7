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

// Package export writes a document, with its annotations burned in, to a
// new PDF file.
//
// Every source page is rendered into a raster image at an export scale
// which depends on the total page count, the annotations of the page are
// painted on top, and the result is stored as a JPEG image on a page of
// the same pixel size.
package export

import (
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"math"
	"runtime"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/logging"
	"seehuhn.de/go/markup/metrics"
	"seehuhn.de/go/markup/overlay"
	"seehuhn.de/go/markup/raster"
	"seehuhn.de/go/markup/source"
)

// DefaultJPEGQuality is used when Options.JPEGQuality is zero.
const DefaultJPEGQuality = 85

// Tier selects the export scale for documents with more than MinPages
// pages.
type Tier struct {
	MinPages int     `json:"minPages" yaml:"minPages"`
	Scale    float64 `json:"scale" yaml:"scale"`
}

// DefaultTiers trades resolution for bounded memory use and run time on
// long documents.
var DefaultTiers = []Tier{
	{MinPages: 30, Scale: 1.0},
	{MinPages: 10, Scale: 1.2},
	{MinPages: 0, Scale: 1.5},
}

// ScaleFor returns the export scale for a document with the given number
// of pages.  The tier with the largest MinPages below the page count is
// used.  If no tier applies, the scale of the tier with the smallest
// MinPages is returned.
func ScaleFor(tiers []Tier, pages int) float64 {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	sorted := slices.Clone(tiers)
	slices.SortFunc(sorted, func(a, b Tier) int { return b.MinPages - a.MinPages })
	for _, t := range sorted {
		if pages > t.MinPages {
			return t.Scale
		}
	}
	return sorted[len(sorted)-1].Scale
}

// ValidateTiers checks that tiers can be used for ScaleFor.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return errors.New("export: no scale tiers")
	}
	seen := make(map[int]bool, len(tiers))
	for _, t := range tiers {
		if t.MinPages < 0 {
			return errors.Errorf("export: negative page count %d in tier", t.MinPages)
		}
		if !(t.Scale > 0) || math.IsInf(t.Scale, 0) {
			return errors.Errorf("export: invalid scale %g in tier", t.Scale)
		}
		if seen[t.MinPages] {
			return errors.Errorf("export: duplicate tier for %d pages", t.MinPages)
		}
		seen[t.MinPages] = true
	}
	return nil
}

// ExportError reports a failure while exporting a page.
type ExportError struct {
	// Page is the 1-based page number, or 0 if the failure happened
	// before or after processing the pages.
	Page int
	Err  error
}

func (e *ExportError) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("export: %v", e.Err)
	}
	return fmt.Sprintf("export page %d: %v", e.Page, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Options control an Exporter.  The zero value is ready to use.
type Options struct {
	Tiers       []Tier
	JPEGQuality int

	// Progress, if set, is called with the percentage of pages done after
	// every page, and with 0 if the export fails.
	Progress func(percent int)

	// Yield is called before every page.  The default is runtime.Gosched.
	Yield func()

	Overlay *overlay.Renderer
	Logger  logrus.FieldLogger
	Metrics metrics.Metrics
}

// PageInfo describes one page of the output.
type PageInfo struct {
	Width, Height int
}

// Result summarises a successful export.
type Result struct {
	Scale float64
	Pages []PageInfo

	// Landscape gives the orientation of the first page.
	Landscape bool
}

// Exporter renders documents into new PDF files.
type Exporter struct {
	opts Options
}

// New returns an Exporter.  A nil opts uses the defaults.
func New(opts *Options) *Exporter {
	e := &Exporter{}
	if opts != nil {
		e.opts = *opts
	}
	if len(e.opts.Tiers) == 0 {
		e.opts.Tiers = DefaultTiers
	}
	if e.opts.JPEGQuality == 0 {
		e.opts.JPEGQuality = DefaultJPEGQuality
	}
	if e.opts.Yield == nil {
		e.opts.Yield = runtime.Gosched
	}
	if e.opts.Overlay == nil {
		e.opts.Overlay = &overlay.Renderer{Logger: e.opts.Logger}
	}
	e.opts.Logger = logging.OrDiscard(e.opts.Logger)
	if e.opts.Metrics == nil {
		e.opts.Metrics = metrics.Noop{}
	}
	return e
}

// Export writes doc as a PDF file to w, with the annotations of every page
// painted onto the page image.  Pages are processed in order on the
// calling goroutine.  ctx is passed to the page renderer, the export
// itself cannot be interrupted between pages.
//
// If an error is returned, w may have received an incomplete file;
// ExportFile never leaves one behind.
func (e *Exporter) Export(ctx context.Context, doc source.Document, anns []annotation.Annotation, w io.Writer) (*Result, error) {
	start := time.Now()
	res, err := e.export(ctx, doc, anns, w)
	if err != nil {
		e.progress(0)
		e.opts.Metrics.ObserveExport(false, 0, time.Since(start))
		e.opts.Logger.WithError(err).Error("export failed")
		return nil, err
	}
	e.opts.Metrics.ObserveExport(true, len(res.Pages), time.Since(start))
	e.opts.Logger.WithFields(logrus.Fields{
		"pages":   len(res.Pages),
		"scale":   res.Scale,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("export finished")
	return res, nil
}

func (e *Exporter) export(ctx context.Context, doc source.Document, anns []annotation.Annotation, w io.Writer) (*Result, error) {
	total := doc.NumPages()
	if total < 1 {
		return nil, &ExportError{Err: errors.New("document has no pages")}
	}
	scale := ScaleFor(e.opts.Tiers, total)
	log := e.opts.Logger.WithFields(logrus.Fields{"document": doc.Title(), "scale": scale})

	first, err := doc.Page(1)
	if err != nil {
		return nil, &ExportError{Page: 1, Err: err}
	}
	res := &Result{
		Scale:     scale,
		Landscape: first.Viewport(scale).Landscape(),
		Pages:     make([]PageInfo, 0, total),
	}
	log.WithField("landscape", res.Landscape).Debugf("exporting %d pages", total)

	out, err := pdf.NewWriter(w, pdf.V1_7, nil)
	if err != nil {
		return nil, &ExportError{Err: err}
	}
	if title := doc.Title(); title != "" {
		out.GetMeta().Info = &pdf.Info{
			Title:    pdf.TextString(title),
			Producer: "seehuhn.de/go/markup",
		}
	}
	rm := pdf.NewResourceManager(out)
	tree := pagetree.NewWriter(out, rm)

	for i := 1; i <= total; i++ {
		e.opts.Yield()

		info, err := e.page(ctx, out, tree, doc, i, scale, anns)
		if err != nil {
			return nil, &ExportError{Page: i, Err: err}
		}
		res.Pages = append(res.Pages, info)
		e.opts.Metrics.IncrementExportPages()
		e.progress(int(math.Round(float64(i) / float64(total) * 100)))
		log.WithField("page", i).Debug("page exported")
	}

	ref, err := tree.Close()
	if err != nil {
		return nil, &ExportError{Err: err}
	}
	out.GetMeta().Catalog.Pages = ref
	if err := rm.Close(); err != nil {
		return nil, &ExportError{Err: err}
	}
	if err := out.Close(); err != nil {
		return nil, &ExportError{Err: err}
	}
	return res, nil
}

// page renders page n with its annotations and appends it to the output.
// The canvas is dropped before returning.
func (e *Exporter) page(ctx context.Context, out *pdf.Writer, tree *pagetree.Writer, doc source.Document, n int, scale float64, anns []annotation.Annotation) (PageInfo, error) {
	c, err := e.Compose(ctx, doc, n, anns, scale)
	if err != nil {
		return PageInfo{}, err
	}
	width, height := c.Width(), c.Height()

	imgRef := out.Alloc()
	stm, err := out.OpenStream(imgRef, pdf.Dict{
		"Type":             pdf.Name("XObject"),
		"Subtype":          pdf.Name("Image"),
		"Width":            pdf.Integer(width),
		"Height":           pdf.Integer(height),
		"ColorSpace":       pdf.Name("DeviceRGB"),
		"BitsPerComponent": pdf.Integer(8),
		"Filter":           pdf.Name("DCTDecode"),
	})
	if err != nil {
		return PageInfo{}, err
	}
	err = jpeg.Encode(stm, c.Image(), &jpeg.Options{Quality: e.opts.JPEGQuality})
	if err != nil {
		stm.Close()
		return PageInfo{}, errors.Wrap(err, "encode page image")
	}
	if err := stm.Close(); err != nil {
		return PageInfo{}, err
	}

	contentRef := out.Alloc()
	stm, err = out.OpenStream(contentRef, nil, pdf.FilterCompress{})
	if err != nil {
		return PageInfo{}, err
	}
	_, err = fmt.Fprintf(stm, "q %d 0 0 %d 0 0 cm /Im0 Do Q\n", width, height)
	if err != nil {
		stm.Close()
		return PageInfo{}, err
	}
	if err := stm.Close(); err != nil {
		return PageInfo{}, err
	}

	dict := pdf.Dict{
		"Type": pdf.Name("Page"),
		"MediaBox": pdf.Array{
			pdf.Integer(0), pdf.Integer(0), pdf.Integer(width), pdf.Integer(height),
		},
		"Resources": pdf.Dict{
			"XObject": pdf.Dict{"Im0": imgRef},
		},
		"Contents": contentRef,
	}
	if err := tree.AppendPageDict(out.Alloc(), dict); err != nil {
		return PageInfo{}, err
	}
	return PageInfo{Width: width, Height: height}, nil
}

// Compose renders page n of doc into a new canvas and paints the
// annotations of that page on top, without selection marks.
func (e *Exporter) Compose(ctx context.Context, doc source.Document, n int, anns []annotation.Annotation, scale float64) (*raster.Canvas, error) {
	p, err := doc.Page(n)
	if err != nil {
		return nil, err
	}
	width, height := p.Viewport(scale).Pixels()
	c := raster.NewCanvas(width, height)
	if err := p.Render(ctx, c, scale); err != nil {
		return nil, err
	}
	if err := e.opts.Overlay.Paint(c, annotation.OnPage(anns, n), nil, scale, ""); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Exporter) progress(percent int) {
	if e.opts.Progress != nil {
		e.opts.Progress(percent)
	}
}
