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
	"context"
	"slices"
	"sync"
	"time"

	"seehuhn.de/go/markup/annotation"
)

// Memory keeps annotations in memory.  It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	items []annotation.Annotation

	// Now returns the creation time for new annotations.
	Now func() time.Time
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{Now: time.Now}
}

// List implements the store.Service interface.
func (m *Memory) List(ctx context.Context, documentID, versionID string) ([]annotation.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	res := []annotation.Annotation{}
	for _, a := range m.items {
		if a.DocumentID == documentID && a.VersionID == versionID {
			res = append(res, a)
		}
	}
	return res, nil
}

// Create implements the store.Service interface.
func (m *Memory) Create(ctx context.Context, a annotation.Annotation) (annotation.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return annotation.Annotation{}, err
	}
	a, err := stamp(a, m.now())
	if err != nil {
		return annotation.Annotation{}, err
	}

	m.mu.Lock()
	m.items = append(m.items, a)
	m.mu.Unlock()
	return a, nil
}

// Delete implements the store.Service interface.
func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := slices.IndexFunc(m.items, func(a annotation.Annotation) bool { return a.ID == id })
	if idx < 0 {
		return ErrNotFound
	}
	m.items = slices.Delete(m.items, idx, idx+1)
	return nil
}

func (m *Memory) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Memory) snapshot() []annotation.Annotation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

func (m *Memory) restore(items []annotation.Annotation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}
