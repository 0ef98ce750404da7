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

package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/source"
)

const maxSlugLen = 64

// FileName returns the output file name for a document with the given
// title, exported at time t.
func FileName(title string, t time.Time) string {
	return slug(title) + "_" + t.Format("20060102-150405") + ".pdf"
}

// slug reduces a title to lower case ASCII letters, digits and dashes.
func slug(title string) string {
	strip := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(strip, title)
	if err != nil {
		s = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}

// ExportFile exports doc into the directory dir.  The file is first
// written under a temporary name and only renamed to its final name once
// the export has succeeded, so that a failed export leaves no file behind.
// The return value is the path of the new file.
func (e *Exporter) ExportFile(ctx context.Context, doc source.Document, anns []annotation.Annotation, dir string, now time.Time) (string, *Result, error) {
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, ".markup-*.pdf")
	if err != nil {
		return "", nil, &ExportError{Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	res, err := e.Export(ctx, doc, anns, tmp)
	// the PDF writer may already have closed the file
	if cerr := tmp.Close(); err == nil && cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = &ExportError{Err: cerr}
		e.progress(0)
	}
	if err != nil {
		return "", nil, err
	}

	target := filepath.Join(dir, FileName(doc.Title(), now))
	if err := os.Rename(tmpName, target); err != nil {
		e.progress(0)
		return "", nil, &ExportError{Err: errors.Wrap(err, "save output")}
	}
	tmpName = ""
	return target, res, nil
}
