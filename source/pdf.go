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
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"seehuhn.de/go/markup/logging"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// maxDocumentSize limits the size of documents fetched over HTTP.
const maxDocumentSize = 256 << 20

// PDFOpener opens PDF files from local paths, file:// URLs and
// http(s):// URLs.
type PDFOpener struct {
	// Client is used for http(s) URLs.  If nil, http.DefaultClient is used.
	Client *http.Client

	Logger logrus.FieldLogger
}

// Open implements the [Opener] interface.
func (o *PDFOpener) Open(ctx context.Context, url string) (Document, error) {
	data, err := o.fetch(ctx, url)
	if err != nil {
		return nil, &LoadError{URL: url, Err: err}
	}

	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, &LoadError{URL: url, Err: errors.Wrap(err, "parse PDF")}
	}
	n, err := pagetree.NumPages(r)
	if err != nil {
		r.Close()
		return nil, &LoadError{URL: url, Err: errors.Wrap(err, "read page tree")}
	}
	if n < 1 {
		r.Close()
		return nil, &LoadError{URL: url, Err: errors.New("document has no pages")}
	}

	title := ""
	if info := r.GetMeta().Info; info != nil {
		title = strings.TrimSpace(string(info.Title))
	}
	if title == "" {
		base := filepath.Base(strings.TrimPrefix(url, "file://"))
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	logger := logging.OrDiscard(o.Logger)
	logger.WithFields(logrus.Fields{
		"url":   url,
		"pages": n,
		"bytes": len(data),
	}).Debug("document opened")

	return &pdfDocument{
		r:      r,
		pages:  n,
		title:  title,
		logger: logger,
	}, nil
}

func (o *PDFOpener) fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
		return data, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GET %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if len(data) > maxDocumentSize {
		return nil, errors.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}

// pdfDocument is a PDF file held in memory.  The reader is not safe for
// concurrent use, so all access goes through mu.
type pdfDocument struct {
	mu     sync.Mutex
	r      *pdf.Reader
	pages  int
	title  string
	logger logrus.FieldLogger
}

func (d *pdfDocument) NumPages() int { return d.pages }

func (d *pdfDocument) Title() string { return d.title }

func (d *pdfDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.r == nil {
		return nil
	}
	err := d.r.Close()
	d.r = nil
	return err
}

// Page implements the [Document] interface.
func (d *pdfDocument) Page(n int) (Page, error) {
	if n < 1 || n > d.pages {
		return nil, errors.Wrapf(ErrPageRange, "page %d of %d", n, d.pages)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.r == nil {
		return nil, errors.New("document is closed")
	}

	_, dict, err := pagetree.GetPage(d.r, n-1)
	if err != nil {
		return nil, errors.Wrapf(err, "page %d", n)
	}

	box := pdf.Rectangle{LLx: 0, LLy: 0, URx: 612, URy: 792}
	if mb, err := pdf.GetRectangle(d.r, dict["MediaBox"]); err != nil {
		return nil, errors.Wrapf(err, "page %d: MediaBox", n)
	} else if mb != nil && mb.URx != mb.LLx && mb.URy != mb.LLy {
		box = pdf.Rectangle{
			LLx: min(mb.LLx, mb.URx), LLy: min(mb.LLy, mb.URy),
			URx: max(mb.LLx, mb.URx), URy: max(mb.LLy, mb.URy),
		}
	}

	rotate := 0
	if obj, err := pdf.Resolve(d.r, dict["Rotate"]); err == nil {
		if x, ok := obj.(pdf.Integer); ok {
			rotate = ((int(x)%360)+360)%360/90*90
		}
	}

	return &pdfPage{
		doc:    d,
		number: n,
		dict:   dict,
		box:    box,
		rotate: rotate,
	}, nil
}
