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

// Package store keeps the annotations of the open document version in
// memory, in sync with a persistence service.
//
// Mutations are applied locally only after the service has acknowledged
// them, so the in-memory set never contains records the service does not
// know about.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/logging"
	"seehuhn.de/go/markup/metrics"
)

// Service is the persistence service for annotations.
type Service interface {
	// List returns all annotations of a document version.
	List(ctx context.Context, documentID, versionID string) ([]annotation.Annotation, error)

	// Create stores a new annotation and returns it with the id, creation
	// time and author filled in.
	Create(ctx context.Context, a annotation.Annotation) (annotation.Annotation, error)

	// Delete removes the annotation with the given id.
	Delete(ctx context.Context, id string) error
}

// Persistence operations, as reported in PersistenceError.Op.
const (
	OpList   = "list"
	OpCreate = "create"
	OpDelete = "delete"
)

// PersistenceError reports a failed call to the persistence service.  The
// in-memory set is left unchanged.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s annotation %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s annotation: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

var (
	// ErrNotLoaded is returned when adding before a version was loaded.
	ErrNotLoaded = errors.New("no document version loaded")

	// ErrNotFound is returned for ids which are not in the store.
	ErrNotFound = errors.New("annotation not found")
)

// Store is the in-memory annotation set of one document version.
type Store struct {
	service Service
	logger  logrus.FieldLogger
	metrics metrics.Metrics

	// mutate serialises calls which change the set, including the
	// service call.
	mutate sync.Mutex

	mu         sync.RWMutex
	author     string
	documentID string
	versionID  string
	items      []annotation.Annotation
	selected   string
}

// New returns an empty store backed by svc.  Logger and metrics may be nil.
func New(svc Service, logger logrus.FieldLogger, m metrics.Metrics) *Store {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Store{
		service: svc,
		logger:  logging.OrDiscard(logger),
		metrics: m,
	}
}

// Load replaces the in-memory set with the annotations of the given
// document version and clears the selection.
func (s *Store) Load(ctx context.Context, documentID, versionID string) ([]annotation.Annotation, error) {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	items, err := s.service.List(ctx, documentID, versionID)
	if err != nil {
		s.fail(OpList, "", err)
		return nil, &PersistenceError{Op: OpList, Err: err}
	}

	// Records from other versions would break the subset guarantee.
	kept := items[:0:0]
	for _, a := range items {
		if a.DocumentID == documentID && a.VersionID == versionID {
			kept = append(kept, a)
		}
	}

	s.mu.Lock()
	s.documentID = documentID
	s.versionID = versionID
	s.items = kept
	s.selected = ""
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"document":    documentID,
		"version":     versionID,
		"annotations": len(kept),
	}).Debug("annotations loaded")
	return slices.Clone(kept), nil
}

// Add persists a draft and appends the stored record to the set.
func (s *Store) Add(ctx context.Context, d annotation.Draft) (annotation.Annotation, error) {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	s.mu.RLock()
	documentID, versionID, author := s.documentID, s.versionID, s.author
	s.mu.RUnlock()
	if documentID == "" {
		return annotation.Annotation{}, ErrNotLoaded
	}

	shape, err := d.Shape()
	if err != nil {
		return annotation.Annotation{}, err
	}
	a := annotation.Annotation{
		DocumentID: documentID,
		VersionID:  versionID,
		Page:       d.Page,
		Shape:      shape,
		Author:     author,
	}
	if err := a.Validate(); err != nil {
		return annotation.Annotation{}, err
	}

	created, err := s.service.Create(ctx, a)
	if err == nil && created.ID == "" {
		err = errors.New("service returned no id")
	}
	if err != nil {
		s.fail(OpCreate, "", err)
		return annotation.Annotation{}, &PersistenceError{Op: OpCreate, Err: err}
	}

	s.mu.Lock()
	s.items = append(s.items, created)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"annotation": created.ID,
		"type":       created.Kind(),
		"page":       created.Page,
	}).Info("annotation created")
	return created, nil
}

// Remove deletes an annotation from the service and then from the set.
// If the annotation was selected, the selection is cleared.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	if _, ok := s.Get(id); !ok {
		return errors.Wrapf(ErrNotFound, "id %q", id)
	}

	if err := s.service.Delete(ctx, id); err != nil {
		s.fail(OpDelete, id, err)
		return &PersistenceError{Op: OpDelete, ID: id, Err: err}
	}

	s.mu.Lock()
	s.items = slices.DeleteFunc(s.items, func(a annotation.Annotation) bool {
		return a.ID == id
	})
	if s.selected == id {
		s.selected = ""
	}
	s.mu.Unlock()

	s.logger.WithField("annotation", id).Info("annotation deleted")
	return nil
}

func (s *Store) fail(op, id string, err error) {
	s.metrics.IncrementPersistenceErrors(op)
	entry := s.logger.WithError(err).WithField("op", op)
	if id != "" {
		entry = entry.WithField("annotation", id)
	}
	entry.Warn("persistence call failed")
}

// ForPage returns the annotations on the given page in creation order.
func (s *Store) ForPage(page int) []annotation.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return annotation.OnPage(s.items, page)
}

// All returns a copy of the whole set.
func (s *Store) All() []annotation.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len returns the number of annotations in the set.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the annotation with the given id.
func (s *Store) Get(id string) (annotation.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		if a.ID == id {
			return a, true
		}
	}
	return annotation.Annotation{}, false
}

// SetAuthor sets the author recorded for new annotations.  The service
// may override it.
func (s *Store) SetAuthor(author string) {
	s.mu.Lock()
	s.author = author
	s.mu.Unlock()
}

// Version returns the ids of the loaded document version.
func (s *Store) Version() (documentID, versionID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documentID, s.versionID
}

// Select marks an annotation as selected.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.items {
		if a.ID == id {
			s.selected = id
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "id %q", id)
}

// Selected returns the id of the selected annotation, or the empty string.
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// ClearSelection removes the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}
