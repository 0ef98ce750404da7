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

package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"seehuhn.de/go/markup"
	"seehuhn.de/go/markup/export"
	"seehuhn.de/go/markup/source"
)

// openSession opens url together with its annotations.  The returned
// function closes the session and the persistence backend.
func (a *app) openSession(ctx context.Context, url string, progress func(int)) (*markup.Session, func(), error) {
	svc, closeService, err := a.cfg.OpenService(ctx, a.logger)
	if err != nil {
		return nil, nil, err
	}
	s, err := markup.Open(ctx, url, a.document(url), a.versionID, markup.Options{
		Service: svc,
		Zoom:    a.cfg.Viewer.Zoom,
		Author:  a.cfg.Viewer.Author,
		Export: export.Options{
			Tiers:       a.cfg.Export.Tiers,
			JPEGQuality: a.cfg.Export.JPEGQuality,
			Progress:    progress,
		},
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	if err != nil {
		closeService()
		return nil, nil, err
	}
	done := func() {
		if err := s.Close(); err != nil {
			a.logger.WithError(err).Warn("cannot close document")
		}
		if err := closeService(); err != nil {
			a.logger.WithError(err).Warn("cannot close persistence backend")
		}
	}
	return s, done, nil
}

func (a *app) pagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages URL",
		Short: "Show the number and sizes of the pages of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opener := &source.PDFOpener{Logger: a.logger}
			doc, err := opener.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			out := cmd.OutOrStdout()
			if title := doc.Title(); title != "" {
				fmt.Fprintf(out, "title: %s\n", title)
			}
			fmt.Fprintf(out, "pages: %d\n", doc.NumPages())
			for i := 1; i <= doc.NumPages(); i++ {
				page, err := doc.Page(i)
				if err != nil {
					return err
				}
				vp := page.Viewport(1)
				orientation := "portrait"
				if vp.Landscape() {
					orientation = "landscape"
				}
				fmt.Fprintf(out, "%4d  %7.1f x %7.1f  %s\n", i, vp.Width, vp.Height, orientation)
			}
			return nil
		},
	}
}

func (a *app) renderCmd() *cobra.Command {
	var (
		page     int
		zoom     float64
		selected string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "render URL",
		Short: "Render one page with its annotations to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("zoom") {
				a.cfg.Viewer.Zoom = zoom
			}
			s, done, err := a.openSession(ctx, args[0], nil)
			if err != nil {
				return err
			}
			defer done()

			if page != 1 {
				if _, err := s.ShowPage(ctx, page); err != nil {
					return err
				}
			}
			if selected != "" {
				if err := s.Store().Select(selected); err != nil {
					return err
				}
			}
			c, err := s.Compose(ctx)
			if err != nil {
				return err
			}

			if output == "" {
				output = fmt.Sprintf("%s-%d.png", a.document(args[0]), page)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := png.Encode(f, c.Image()); err != nil {
				f.Close()
				return errors.Wrap(err, output)
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{
				"page": page,
				"file": output,
			}).Info("page rendered")
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().Float64VarP(&zoom, "zoom", "z", 1, "zoom factor")
	cmd.Flags().StringVar(&selected, "select", "", "id of an annotation to show as selected")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: DOCUMENT-PAGE.png)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var (
		pattern string
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "export [URL...]",
		Short: "Export documents with the annotations burned in",
		Long: `Export writes every page of a document, with its annotations painted on,
into a new PDF file named after the document title and the current time.
Large documents are exported at a lower resolution.`,
		Example: `  markup export plan.pdf
  markup export --glob 'drawings/**/*.pdf' --output-dir out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if pattern != "" {
				matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
				if err != nil {
					return errors.Wrapf(err, "pattern %q", pattern)
				}
				urls = append(urls, matches...)
			}
			if len(urls) == 0 {
				return errors.New("no documents given")
			}
			if outDir == "" {
				outDir = a.cfg.Export.OutputDir
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			var failed int
			for _, url := range urls {
				if err := a.exportOne(cmd.Context(), url, outDir); err != nil {
					a.logger.WithError(err).WithField("url", url).Error("export failed")
					failed++
				}
			}
			if failed > 0 {
				return errors.Errorf("%d of %d exports failed", failed, len(urls))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "glob", "", "export all files matching this pattern (** matches directories)")
	cmd.Flags().StringVarP(&outDir, "output-dir", "o", "", "output directory")
	return cmd
}

func (a *app) exportOne(ctx context.Context, url, outDir string) error {
	log := a.logger.WithField("url", url)
	last := -1
	progress := func(percent int) {
		if percent/10 != last/10 {
			log.WithField("progress", percent).Info("exporting")
		}
		last = percent
	}
	s, done, err := a.openSession(ctx, url, progress)
	if err != nil {
		return err
	}
	defer done()

	fname, res, err := s.Export(ctx, outDir)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"file":  filepath.Clean(fname),
		"pages": len(res.Pages),
		"scale": res.Scale,
	}).Info("export written")
	return nil
}
