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

package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/markup/annotation"
)

type recordingAdder struct {
	drafts []annotation.Draft
	err    error
}

func (r *recordingAdder) Add(_ context.Context, d annotation.Draft) (annotation.Annotation, error) {
	if r.err != nil {
		return annotation.Annotation{}, r.err
	}
	r.drafts = append(r.drafts, d)
	shape, err := d.Shape()
	if err != nil {
		return annotation.Annotation{}, err
	}
	return annotation.Annotation{
		ID:    fmt.Sprintf("a%d", len(r.drafts)),
		Page:  d.Page,
		Shape: shape,
	}, nil
}

func answer(content string, ok bool) PromptFunc {
	return func(context.Context, annotation.Kind) (string, bool, error) {
		return content, ok, nil
	}
}

func pt(x, y float64) vec.Vec2 { return vec.Vec2{X: x, Y: y} }

func TestSelectToggle(t *testing.T) {
	m := New(nil, nil, nil)
	if m.State() != Idle {
		t.Fatalf("initial state %s", m.State())
	}
	if err := m.Select(annotation.KindBox); err != nil {
		t.Fatal(err)
	}
	if m.State() != Armed || m.Tool() != annotation.KindBox {
		t.Errorf("after select: %s %q", m.State(), m.Tool())
	}
	if err := m.Select(annotation.KindArrow); err != nil {
		t.Fatal(err)
	}
	if m.State() != Armed || m.Tool() != annotation.KindArrow {
		t.Errorf("after switching: %s %q", m.State(), m.Tool())
	}
	if err := m.Select(annotation.KindArrow); err != nil {
		t.Fatal(err)
	}
	if m.State() != Idle || m.Tool() != "" {
		t.Errorf("after toggle: %s %q", m.State(), m.Tool())
	}
	if err := m.Select("lasso"); err == nil {
		t.Error("unknown tool accepted")
	}
}

func TestThresholdDiscard(t *testing.T) {
	for _, kind := range []annotation.Kind{annotation.KindBox, annotation.KindHighlight, annotation.KindArrow} {
		for _, end := range []vec.Vec2{pt(10, 10), pt(11.5, 8.5), pt(8.1, 11.9)} {
			adder := &recordingAdder{}
			m := New(adder, nil, nil)
			m.Select(kind)
			m.PointerDown(1, pt(10, 10))
			m.PointerMove(pt(30, 30))
			outcome, a, err := m.PointerUp(context.Background(), end)
			if outcome != Discarded || a != nil || err != nil {
				t.Errorf("%s to %v: got %s %v %v", kind, end, outcome, a, err)
			}
			if len(adder.drafts) != 0 {
				t.Errorf("%s to %v: Add was called", kind, end)
			}
			if m.State() != Armed {
				t.Errorf("%s: state %s after discard", kind, m.State())
			}
		}
	}
}

func TestDrawBox(t *testing.T) {
	adder := &recordingAdder{}
	m := New(adder, nil, nil)
	m.Select(annotation.KindBox)

	if !m.PointerDown(2, pt(10, 10)) {
		t.Fatal("drag did not start")
	}
	d, ok := m.Draft()
	if !ok || d.Start != d.End {
		t.Errorf("new draft %v", d)
	}
	m.PointerMove(pt(30, 20))
	if d, _ := m.Draft(); d.End != pt(30, 20) {
		t.Errorf("draft not updated: %v", d)
	}

	outcome, a, err := m.PointerUp(context.Background(), pt(50, 40))
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Committed || a == nil {
		t.Fatalf("got %s %v", outcome, a)
	}
	want := []annotation.Draft{{Kind: annotation.KindBox, Page: 2, Start: pt(10, 10), End: pt(50, 40)}}
	if d := cmp.Diff(want, adder.drafts); d != "" {
		t.Errorf("stored drafts (-want +got):\n%s", d)
	}
	if m.State() != Armed {
		t.Errorf("state %s after commit", m.State())
	}
	if _, ok := m.Draft(); ok {
		t.Error("draft survived commit")
	}
}

func TestTextPrompt(t *testing.T) {
	type testCase struct {
		name    string
		prompt  ContentPrompt
		outcome Outcome
		stored  int
	}
	cases := []testCase{
		{"content", answer("north wall", true), Committed, 1},
		{"empty", answer("", true), Dismissed, 0},
		{"blank", answer(" \t\n ", true), Dismissed, 0},
		{"cancelled", answer("ignored", false), Dismissed, 0},
		{"no prompt", nil, Dismissed, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adder := &recordingAdder{}
			m := New(adder, tc.prompt, nil)
			m.Select(annotation.KindText)
			m.PointerDown(1, pt(0, 0))
			outcome, _, err := m.PointerUp(context.Background(), pt(20, 5))
			if err != nil {
				t.Fatal(err)
			}
			if outcome != tc.outcome || len(adder.drafts) != tc.stored {
				t.Errorf("got %s with %d stored", outcome, len(adder.drafts))
			}
			if tc.stored > 0 && adder.drafts[0].Content != "north wall" {
				t.Errorf("stored content %q", adder.drafts[0].Content)
			}
			if m.State() != Armed {
				t.Errorf("state %s", m.State())
			}
		})
	}
}

func TestAwaitingContent(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	prompt := PromptFunc(func(context.Context, annotation.Kind) (string, bool, error) {
		close(entered)
		<-release
		return "note", true, nil
	})
	adder := &recordingAdder{}
	m := New(adder, prompt, nil)
	m.Select(annotation.KindText)
	m.PointerDown(1, pt(0, 0))

	done := make(chan Outcome)
	go func() {
		outcome, _, _ := m.PointerUp(context.Background(), pt(20, 20))
		done <- outcome
	}()
	<-entered

	if m.State() != AwaitingContent {
		t.Errorf("state %s while prompting", m.State())
	}
	if err := m.Select(annotation.KindBox); !errors.Is(err, ErrBusy) {
		t.Errorf("tool change while prompting: %v", err)
	}
	if m.PointerDown(1, pt(5, 5)) {
		t.Error("drag started while prompting")
	}

	close(release)
	if outcome := <-done; outcome != Committed {
		t.Errorf("outcome %s", outcome)
	}
	if m.State() != Armed {
		t.Errorf("state %s after prompt", m.State())
	}
}

func TestResetDuringPrompt(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	prompt := PromptFunc(func(context.Context, annotation.Kind) (string, bool, error) {
		close(entered)
		<-release
		return "late", true, nil
	})
	adder := &recordingAdder{}
	m := New(adder, prompt, nil)
	m.Select(annotation.KindComment)

	done := make(chan Outcome)
	go func() {
		outcome, _, _ := m.Click(context.Background(), 1, pt(5, 5))
		done <- outcome
	}()
	<-entered
	m.Reset()
	close(release)

	if outcome := <-done; outcome != Dismissed {
		t.Errorf("outcome %s", outcome)
	}
	if len(adder.drafts) != 0 {
		t.Error("stale answer was stored")
	}
	if m.State() != Idle {
		t.Errorf("state %s", m.State())
	}
}

func TestComment(t *testing.T) {
	adder := &recordingAdder{}
	m := New(adder, answer("check dimension", true), nil)
	m.Select(annotation.KindComment)

	if m.PointerDown(1, pt(10, 10)) {
		t.Error("comment tool started a drag")
	}
	if outcome, _, _ := m.PointerUp(context.Background(), pt(40, 40)); outcome != Ignored {
		t.Errorf("pointer up: %s", outcome)
	}

	outcome, a, err := m.Click(context.Background(), 3, pt(12, 34))
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Committed {
		t.Fatalf("outcome %s", outcome)
	}
	want := annotation.Comment{At: pt(12, 34), Content: "check dimension"}
	if d := cmp.Diff(annotation.Shape(want), a.Shape); d != "" {
		t.Errorf("shape (-want +got):\n%s", d)
	}
	if a.Page != 3 {
		t.Errorf("page %d", a.Page)
	}
}

func TestClickIgnored(t *testing.T) {
	m := New(&recordingAdder{}, answer("x", true), nil)
	if outcome, _, _ := m.Click(context.Background(), 1, pt(0, 0)); outcome != Ignored {
		t.Errorf("idle click: %s", outcome)
	}
	m.Select(annotation.KindBox)
	if outcome, _, _ := m.Click(context.Background(), 1, pt(0, 0)); outcome != Ignored {
		t.Errorf("box click: %s", outcome)
	}
}

func TestAddFailure(t *testing.T) {
	failure := errors.New("offline")
	m := New(&recordingAdder{err: failure}, nil, nil)
	m.Select(annotation.KindArrow)
	m.PointerDown(1, pt(0, 0))
	outcome, a, err := m.PointerUp(context.Background(), pt(50, 0))
	if outcome != Failed || a != nil || !errors.Is(err, failure) {
		t.Errorf("got %s %v %v", outcome, a, err)
	}
	if m.State() != Armed {
		t.Errorf("state %s", m.State())
	}
	if _, ok := m.Draft(); ok {
		t.Error("draft kept after failure")
	}
}

func TestReset(t *testing.T) {
	m := New(&recordingAdder{}, nil, nil)
	m.Select(annotation.KindHighlight)
	m.PointerDown(1, pt(0, 0))
	m.Reset()
	if m.State() != Idle {
		t.Errorf("state %s", m.State())
	}
	if _, ok := m.Draft(); ok {
		t.Error("draft survived reset")
	}
	if outcome, _, _ := m.PointerUp(context.Background(), pt(50, 50)); outcome != Ignored {
		t.Errorf("pointer up after reset: %s", outcome)
	}
}
