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

// Package pipeline renders document pages into raster frames.
//
// A Surface runs at most one render at a time.  A new request cancels the
// previous one before it starts, so the last request always wins.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"seehuhn.de/go/markup/logging"
	"seehuhn.de/go/markup/metrics"
	"seehuhn.de/go/markup/raster"
	"seehuhn.de/go/markup/source"
)

// ErrCancelled is returned for renders which were superseded by a newer
// request or whose context was cancelled.  It is not a failure.
var ErrCancelled = errors.New("render cancelled")

// RenderError reports that a page could not be rasterised.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("page %d: render failed: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Frame is a rendered page.
type Frame struct {
	Page     int
	Viewport source.Viewport
	Canvas   *raster.Canvas
}

// Release drops the pixel buffer of the frame.
func (f *Frame) Release() {
	f.Canvas = nil
}

// Pending is a render request which may still be in progress.
type Pending struct {
	Page  int
	Scale float64

	done  chan struct{}
	frame *Frame
	err   error
}

// Done returns a channel which is closed once the request has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request has finished.  A superseded request
// returns ErrCancelled.
func (p *Pending) Wait() (*Frame, error) {
	<-p.done
	return p.frame, p.err
}

// Surface renders pages for one display area.
type Surface struct {
	Logger  logrus.FieldLogger
	Metrics metrics.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	last   chan struct{} // done channel of the most recent request
}

// NewSurface returns a surface which logs to logger and records metrics in
// m.  Both may be nil.
func NewSurface(logger logrus.FieldLogger, m metrics.Metrics) *Surface {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Surface{
		Logger:  logging.OrDiscard(logger),
		Metrics: m,
	}
}

// Request starts rendering a page at the given scale.  Any render still in
// flight on s is cancelled first; the new render only starts once the
// cancelled one has returned.
func (s *Surface) Request(ctx context.Context, doc source.Document, page int, scale float64) *Pending {
	p := &Pending{
		Page:  page,
		Scale: scale,
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	prev := s.last
	rctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.last = p.done
	s.mu.Unlock()

	go s.run(rctx, cancel, prev, doc, p)
	return p
}

// Render requests a page and waits for the result.
func (s *Surface) Render(ctx context.Context, doc source.Document, page int, scale float64) (*Frame, error) {
	return s.Request(ctx, doc, page, scale).Wait()
}

// Cancel stops the render in flight, if any, and waits for it to return.
func (s *Surface) Cancel() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	last := s.last
	s.mu.Unlock()

	if last != nil {
		<-last
	}
}

func (s *Surface) run(ctx context.Context, cancel context.CancelFunc, prev <-chan struct{}, doc source.Document, p *Pending) {
	defer close(p.done)
	defer cancel()

	if prev != nil {
		<-prev
	}

	logger := s.logger().WithFields(logrus.Fields{
		"page":  p.Page,
		"scale": p.Scale,
	})

	start := time.Now()
	frame, err := s.render(ctx, doc, p.Page, p.Scale)
	elapsed := time.Since(start)

	// A render which finished after being superseded is discarded, so
	// that only the most recent request produces a frame.
	if ctx.Err() != nil {
		s.metrics().ObserveRender(metrics.OutcomeCancelled, elapsed)
		logger.Debug("render cancelled")
		p.err = ErrCancelled
		return
	}
	if err != nil {
		s.metrics().ObserveRender(metrics.OutcomeFailed, elapsed)
		logger.WithError(err).Error("render failed")
		p.err = &RenderError{Page: p.Page, Err: err}
		return
	}

	s.metrics().ObserveRender(metrics.OutcomeOK, elapsed)
	logger.WithField("elapsed", elapsed).Debug("page rendered")
	p.frame = frame
}

// render rasterises a page into a fresh canvas sized to its viewport.
func (s *Surface) render(ctx context.Context, doc source.Document, n int, scale float64) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := doc.Page(n)
	if err != nil {
		return nil, err
	}
	vp := page.Viewport(scale)
	w, h := vp.Pixels()
	c := raster.NewCanvas(w, h)
	if err := page.Render(ctx, c, scale); err != nil {
		return nil, err
	}
	return &Frame{Page: n, Viewport: vp, Canvas: c}, nil
}

func (s *Surface) logger() logrus.FieldLogger {
	return logging.OrDiscard(s.Logger)
}

func (s *Surface) metrics() metrics.Metrics {
	if s.Metrics == nil {
		return metrics.Noop{}
	}
	return s.Metrics
}
