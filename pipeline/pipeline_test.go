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

package pipeline

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/markup/source/sourcetest"
)

func TestCancellationOrdering(t *testing.T) {
	doc := sourcetest.New(3, 100, 100)
	doc.Gate = make(chan struct{})
	s := NewSurface(nil, nil)

	var pending []*Pending
	for page := 1; page <= 3; page++ {
		pending = append(pending, s.Request(context.Background(), doc, page, 1))
	}
	close(doc.Gate)

	for i, p := range pending {
		frame, err := p.Wait()
		if i < 2 {
			if !errors.Is(err, ErrCancelled) || frame != nil {
				t.Errorf("page %d: expected cancellation, got frame=%v err=%v", p.Page, frame, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("page %d: %v", p.Page, err)
		}
		if frame.Page != 3 {
			t.Errorf("expected frame for page 3, got page %d", frame.Page)
		}
	}

	if d := cmp.Diff([]int{3}, doc.Completed()); d != "" {
		t.Errorf("completed renders (-want +got):\n%s", d)
	}
}

// A new render must not start while the cancelled one is still running.
func TestOneInFlight(t *testing.T) {
	doc := sourcetest.New(2, 100, 100)
	doc.Gate = make(chan struct{})
	s := NewSurface(nil, nil)

	first := s.Request(context.Background(), doc, 1, 1)
	for len(doc.Started()) == 0 {
		// wait until page 1 is inside Render
		select {
		case <-first.Done():
			t.Fatal("first request finished early")
		default:
			runtime.Gosched()
		}
	}
	second := s.Request(context.Background(), doc, 2, 1)

	if _, err := first.Wait(); !errors.Is(err, ErrCancelled) {
		t.Fatalf("first request: expected cancellation, got %v", err)
	}
	close(doc.Gate)
	frame, err := second.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if frame.Page != 2 {
		t.Errorf("expected page 2, got %d", frame.Page)
	}
	if d := cmp.Diff([]int{1, 2}, doc.Started()); d != "" {
		t.Errorf("started renders (-want +got):\n%s", d)
	}
}

func TestFrameSize(t *testing.T) {
	doc := sourcetest.New(1, 100, 200)
	frame, err := NewSurface(nil, nil).Render(context.Background(), doc, 1, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	got := []int{frame.Canvas.Width(), frame.Canvas.Height()}
	if d := cmp.Diff([]int{150, 300}, got); d != "" {
		t.Errorf("canvas size (-want +got):\n%s", d)
	}
	if frame.Viewport.Scale != 1.5 {
		t.Errorf("unexpected viewport %v", frame.Viewport)
	}

	frame.Release()
	if frame.Canvas != nil {
		t.Error("canvas was not released")
	}
}

func TestRenderError(t *testing.T) {
	doc := sourcetest.New(3, 100, 100)
	doc.FailPage = 2
	s := NewSurface(nil, nil)

	_, err := s.Render(context.Background(), doc, 2, 1)
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected a RenderError, got %v", err)
	}
	if renderErr.Page != 2 || !errors.Is(err, sourcetest.ErrInjected) {
		t.Errorf("unexpected error %v", err)
	}
	if errors.Is(err, ErrCancelled) {
		t.Error("failure reported as cancellation")
	}

	// other pages are not affected
	if _, err := s.Render(context.Background(), doc, 3, 1); err != nil {
		t.Errorf("page 3: %v", err)
	}

	_, err = s.Render(context.Background(), doc, 7, 1)
	if !errors.As(err, &renderErr) || renderErr.Page != 7 {
		t.Errorf("page 7: expected a RenderError, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	doc := sourcetest.New(1, 100, 100)
	doc.Gate = make(chan struct{})
	defer close(doc.Gate)
	s := NewSurface(nil, nil)

	p := s.Request(context.Background(), doc, 1, 1)
	s.Cancel()
	select {
	case <-p.Done():
	default:
		t.Fatal("Cancel returned before the render finished")
	}
	if _, err := p.Wait(); !errors.Is(err, ErrCancelled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestParentContext(t *testing.T) {
	doc := sourcetest.New(1, 100, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSurface(nil, nil).Render(ctx, doc, 1, 1)
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected cancellation, got %v", err)
	}
	if len(doc.Completed()) != 0 {
		t.Error("cancelled render completed")
	}
}
