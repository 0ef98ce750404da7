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

// Package persist implements the annotation persistence service.
//
// Client talks to a remote service over REST.  Memory, File and SQL store
// annotations locally, and Handler serves any of them over HTTP with the
// same routes the Client uses.  All backends implement store.Service.
package persist

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/store"
)

var (
	// ErrNotFound is returned when deleting an unknown annotation.
	ErrNotFound = store.ErrNotFound

	// ErrInvalid is returned when creating an annotation which fails
	// validation.
	ErrInvalid = errors.New("invalid annotation")
)

var (
	_ store.Service = (*Client)(nil)
	_ store.Service = (*Memory)(nil)
	_ store.Service = (*File)(nil)
	_ store.Service = (*SQL)(nil)
)

// stamp validates a new annotation and fills in the fields assigned by the
// service.
func stamp(a annotation.Annotation, now time.Time) (annotation.Annotation, error) {
	a.ID = ""
	if err := a.Validate(); err != nil {
		return a, errors.WithMessage(ErrInvalid, err.Error())
	}
	a.ID = uuid.NewString()
	a.CreatedAt = now.UTC().Truncate(time.Millisecond)
	return a, nil
}
