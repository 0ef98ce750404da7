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

// Package markup implements an annotation engine for paged documents.
//
// A Session shows one page of a document at a time, lets the user draw
// boxes, highlights, arrows, text and comments on it, keeps the
// annotations in sync with a persistence service, and exports the whole
// document with the annotations burned in.
//
// Pointer positions passed to a Session are in display space: pixels
// relative to the screen position of the page's top-left corner (see
// SetOrigin).  They are converted to document space, which does not depend
// on the zoom, before they reach the tool state machine.
package markup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/coords"
	"seehuhn.de/go/markup/export"
	"seehuhn.de/go/markup/logging"
	"seehuhn.de/go/markup/metrics"
	"seehuhn.de/go/markup/overlay"
	"seehuhn.de/go/markup/pipeline"
	"seehuhn.de/go/markup/raster"
	"seehuhn.de/go/markup/source"
	"seehuhn.de/go/markup/store"
	"seehuhn.de/go/markup/tool"
)

// ErrClosed is returned by the methods of a closed session.
var ErrClosed = errors.New("session closed")

// Options configure a Session.
type Options struct {
	// Opener loads documents.  The default opens PDF files and URLs.
	Opener source.Opener

	// Service persists the annotations.  It is required.
	Service store.Service

	// Prompt asks the user for the content of text and comment
	// annotations.  Without a prompt these annotations are not created.
	Prompt tool.ContentPrompt

	// Zoom is the initial zoom.  Zero means 1.
	Zoom float64

	// Author is recorded in new annotations.
	Author string

	// Export configures the export compositor.  Logger and Metrics are
	// filled in from the session if unset.
	Export export.Options

	Logger  logrus.FieldLogger
	Metrics metrics.Metrics
}

// Session is an open document together with its annotations, the current
// page and zoom, and the state of the drawing tools.
// It is safe for concurrent use.
type Session struct {
	doc        source.Document
	documentID string
	versionID  string

	logger   logrus.FieldLogger
	surface  *pipeline.Surface
	store    *store.Store
	tools    *tool.Machine
	overlay  *overlay.Renderer
	exporter *export.Exporter

	mu      sync.Mutex
	closed  bool
	page    int
	zoom    float64
	origin  vec.Vec2
	pending *pipeline.Pending
}

// Open loads the document at url and the annotations of the given document
// version, and starts rendering the first page.  Errors opening the
// document are of type *source.LoadError, errors loading the annotations
// are of type *store.PersistenceError.
func Open(ctx context.Context, url, documentID, versionID string, opts Options) (*Session, error) {
	if opts.Service == nil {
		return nil, errors.New("markup: no persistence service")
	}
	logger := logging.OrDiscard(opts.Logger).WithFields(logrus.Fields{
		"document": documentID,
		"version":  versionID,
	})
	m := opts.Metrics
	if m == nil {
		m = metrics.Noop{}
	}
	opener := opts.Opener
	if opener == nil {
		opener = &source.PDFOpener{Logger: logger}
	}

	doc, err := opener.Open(ctx, url)
	if err != nil {
		logger.WithError(err).Error("cannot open document")
		return nil, err
	}

	st := store.New(opts.Service, logger, m)
	st.SetAuthor(opts.Author)
	if _, err := st.Load(ctx, documentID, versionID); err != nil {
		doc.Close()
		return nil, err
	}

	renderer := &overlay.Renderer{Logger: logger}
	exportOpts := opts.Export
	if exportOpts.Logger == nil {
		exportOpts.Logger = logger
	}
	if exportOpts.Metrics == nil {
		exportOpts.Metrics = m
	}
	if exportOpts.Overlay == nil {
		exportOpts.Overlay = renderer
	}

	zoom := opts.Zoom
	if zoom == 0 {
		zoom = 1
	}

	s := &Session{
		doc:        doc,
		documentID: documentID,
		versionID:  versionID,
		logger:     logger,
		surface:    pipeline.NewSurface(logger, m),
		store:      st,
		tools:      tool.New(st, opts.Prompt, logger),
		overlay:    renderer,
		exporter:   export.New(&exportOpts),
		page:       1,
		zoom:       coords.ClampZoom(zoom),
	}
	s.mu.Lock()
	s.requestLocked(context.WithoutCancel(ctx))
	s.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"pages":       doc.NumPages(),
		"annotations": st.Len(),
	}).Info("document opened")
	return s, nil
}

// Document returns the open document.
func (s *Session) Document() source.Document { return s.doc }

// Store returns the annotation store of the session.
func (s *Session) Store() *store.Store { return s.store }

// Tools returns the tool state machine of the session.
func (s *Session) Tools() *tool.Machine { return s.tools }

// Page returns the current 1-based page number.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Zoom returns the current zoom.
func (s *Session) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// SetOrigin sets the screen position of the page's top-left corner.
func (s *Session) SetOrigin(origin vec.Vec2) {
	s.mu.Lock()
	s.origin = origin
	s.mu.Unlock()
}

// ShowPage switches to page n.  The drawing tool is reset, any draft is
// dropped and the selection is cleared.  The returned request finishes
// once the page is rendered.
func (s *Session) ShowPage(ctx context.Context, n int) (*pipeline.Pending, error) {
	if n < 1 || n > s.doc.NumPages() {
		return nil, fmt.Errorf("page %d: %w", n, source.ErrPageRange)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.tools.Reset()
	s.store.ClearSelection()
	s.page = n
	return s.requestLocked(ctx), nil
}

// SetZoom changes the zoom, clamped to the supported range, and renders
// the current page again.  The tool state is kept.
func (s *Session) SetZoom(ctx context.Context, zoom float64) (*pipeline.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.zoom = coords.ClampZoom(zoom)
	return s.requestLocked(ctx), nil
}

func (s *Session) requestLocked(ctx context.Context) *pipeline.Pending {
	s.pending = s.surface.Request(ctx, s.doc, s.page, s.zoom)
	return s.pending
}

// Frame waits for the most recent render of the current page.  Renders
// which were superseded while waiting are skipped.
func (s *Session) Frame(ctx context.Context) (*pipeline.Frame, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		p := s.pending
		s.mu.Unlock()

		select {
		case <-p.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		frame, err := p.Wait()
		if errors.Is(err, pipeline.ErrCancelled) {
			s.mu.Lock()
			retry := s.pending != p && !s.closed
			s.mu.Unlock()
			if retry {
				continue
			}
		}
		return frame, err
	}
}

// SelectTool arms the given tool, or disarms it if it is already armed.
func (s *Session) SelectTool(kind annotation.Kind) error {
	return s.tools.Select(kind)
}

func (s *Session) toDocument(screen vec.Vec2) (vec.Vec2, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return coords.ToDocument(screen, s.origin, s.zoom), s.page
}

// PointerDown starts a drag at the given screen position.
func (s *Session) PointerDown(screen vec.Vec2) {
	p, page := s.toDocument(screen)
	s.tools.PointerDown(page, p)
}

// PointerMove updates the draft while dragging.
func (s *Session) PointerMove(screen vec.Vec2) {
	p, _ := s.toDocument(screen)
	s.tools.PointerMove(p)
}

// PointerUp ends a drag at the given screen position.  If no annotation
// is created by the gesture, it selects the topmost annotation under the
// pointer, or clears the selection if there is none.  With the comment
// tool armed, a click on an existing annotation selects it; a click on
// empty space places a comment.
func (s *Session) PointerUp(ctx context.Context, screen vec.Vec2) (tool.Outcome, *annotation.Annotation, error) {
	p, page := s.toDocument(screen)

	out, a, err := s.tools.PointerUp(ctx, p)
	if out == tool.Ignored && s.tools.State() == tool.Armed && s.tools.Tool() == annotation.KindComment {
		if s.selectAt(page, p) {
			return tool.Ignored, nil, nil
		}
		out, a, err = s.tools.Click(ctx, page, p)
	}
	if out == tool.Ignored || out == tool.Discarded {
		s.selectAt(page, p)
	}
	return out, a, err
}

// Click is a pointer-down immediately followed by a pointer-up at the same
// position.
func (s *Session) Click(ctx context.Context, screen vec.Vec2) (tool.Outcome, *annotation.Annotation, error) {
	s.PointerDown(screen)
	return s.PointerUp(ctx, screen)
}

// selectAt selects the topmost annotation at p and reports whether there
// was one.  On a miss the selection is cleared.
func (s *Session) selectAt(page int, p vec.Vec2) bool {
	hit, ok := overlay.HitTest(s.store.ForPage(page), p, s.Zoom())
	if !ok {
		s.store.ClearSelection()
		return false
	}
	if err := s.store.Select(hit.ID); err != nil {
		// deleted concurrently
		s.store.ClearSelection()
		return false
	}
	s.logger.WithField("annotation", hit.ID).Debug("annotation selected")
	return true
}

// Delete removes an annotation.  If it was selected, the selection is
// cleared.
func (s *Session) Delete(ctx context.Context, id string) error {
	return s.store.Remove(ctx, id)
}

// DeleteSelected removes the selected annotation, if any.
func (s *Session) DeleteSelected(ctx context.Context) error {
	id := s.store.Selected()
	if id == "" {
		return nil
	}
	return s.Delete(ctx, id)
}

// Compose returns the current page with the annotations, the draft and
// the selection painted on top.  The frame itself is not modified.
func (s *Session) Compose(ctx context.Context) (*raster.Canvas, error) {
	frame, err := s.Frame(ctx)
	if err != nil {
		return nil, err
	}
	c := frame.Canvas.Clone()

	var draft *annotation.Draft
	if d, ok := s.tools.Draft(); ok && d.Page == frame.Page {
		draft = &d
	}
	err = s.overlay.Paint(c, s.store.ForPage(frame.Page), draft, frame.Viewport.Scale, s.store.Selected())
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Export writes the document with all annotations burned in to a new PDF
// file in dir, and returns the file name.
func (s *Session) Export(ctx context.Context, dir string) (string, *export.Result, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", nil, ErrClosed
	}
	return s.exporter.ExportFile(ctx, s.doc, s.store.All(), dir, time.Now())
}

// Close stops rendering, resets the tools and closes the document.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.surface.Cancel()
	s.tools.Reset()
	s.store.ClearSelection()
	s.logger.Debug("session closed")
	return s.doc.Close()
}
