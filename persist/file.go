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

package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"seehuhn.de/go/markup/annotation"
)

// File stores annotations of all documents in a single JSON file.  The
// file is rewritten after every change.
type File struct {
	path string

	mu  sync.Mutex
	mem *Memory
}

// OpenFile loads the annotations stored at path.  A missing file is
// treated as empty, and is created by the first change.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, mem: NewMemory()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	} else if err != nil {
		return nil, err
	}

	var items []annotation.Annotation
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, errors.Wrapf(err, "annotation file %q", path)
		}
	}
	f.mem.restore(items)
	return f, nil
}

// Path returns the location of the file.
func (f *File) Path() string {
	return f.path
}

// List implements the store.Service interface.
func (f *File) List(ctx context.Context, documentID, versionID string) ([]annotation.Annotation, error) {
	return f.mem.List(ctx, documentID, versionID)
}

// Create implements the store.Service interface.
func (f *File) Create(ctx context.Context, a annotation.Annotation) (annotation.Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	before := f.mem.snapshot()
	a, err := f.mem.Create(ctx, a)
	if err != nil {
		return annotation.Annotation{}, err
	}
	if err := f.save(); err != nil {
		f.mem.restore(before)
		return annotation.Annotation{}, err
	}
	return a, nil
}

// Delete implements the store.Service interface.
func (f *File) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	before := f.mem.snapshot()
	if err := f.mem.Delete(ctx, id); err != nil {
		return err
	}
	if err := f.save(); err != nil {
		f.mem.restore(before)
		return err
	}
	return nil
}

// save writes all annotations to a temporary file next to the target and
// renames it into place.
func (f *File) save() error {
	items := f.mem.snapshot()
	if items == nil {
		items = []annotation.Annotation{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+"-*")
	if err != nil {
		return errors.Wrap(err, "save annotations")
	}
	_, err = tmp.Write(append(data, '\n'))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), f.path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "save annotations")
	}
	return nil
}
