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

// Package tool implements the annotation tool state machine.
//
// The machine moves between four states:
//
//	Idle ──select──▶ Armed ──pointer down──▶ Drawing ──pointer up──▶ Armed
//	                   │                        │
//	                   └──click (comment)──┐    └──(text)──▶ AwaitingContent
//	                                       ▼                        │
//	                                AwaitingContent ──prompt done──▶ Armed
//
// Selecting the armed tool again returns to Idle.  At most one draft
// exists at any time.
package tool

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/logging"
)

// State is the state of a Machine.
type State int

// These are the machine states.
const (
	Idle State = iota
	Armed
	Drawing
	AwaitingContent
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Drawing:
		return "drawing"
	case AwaitingContent:
		return "awaiting content"
	}
	return "invalid"
}

// Outcome describes how a pointer-up or click event ended.
type Outcome int

const (
	// Ignored means the event did not apply to the current state.
	Ignored Outcome = iota

	// Committed means an annotation was stored.
	Committed

	// Discarded means the drag was shorter than annotation.MinDrag.
	Discarded

	// Dismissed means the content prompt was cancelled or left empty.
	Dismissed

	// Failed means storing the annotation failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Committed:
		return "committed"
	case Discarded:
		return "discarded"
	case Dismissed:
		return "dismissed"
	case Failed:
		return "failed"
	}
	return "invalid"
}

// ContentPrompt asks the user for the text of a text or comment
// annotation.  Prompt blocks until the user has answered.  It returns
// ok=false if the user cancelled.
type ContentPrompt interface {
	Prompt(ctx context.Context, kind annotation.Kind) (content string, ok bool, err error)
}

// PromptFunc adapts a function to the ContentPrompt interface.
type PromptFunc func(ctx context.Context, kind annotation.Kind) (string, bool, error)

// Prompt implements the [ContentPrompt] interface.
func (f PromptFunc) Prompt(ctx context.Context, kind annotation.Kind) (string, bool, error) {
	return f(ctx, kind)
}

// Adder stores completed drafts.  *store.Store implements this interface.
type Adder interface {
	Add(ctx context.Context, d annotation.Draft) (annotation.Annotation, error)
}

// ErrBusy is returned when the tool is changed while a content prompt is
// open.
var ErrBusy = errors.New("waiting for annotation content")

// Machine tracks the active tool and the draft being drawn.
// It is safe for concurrent use.
type Machine struct {
	adder  Adder
	prompt ContentPrompt
	logger logrus.FieldLogger

	mu    sync.Mutex
	state State
	kind  annotation.Kind
	draft *annotation.Draft
	gen   uint64 // incremented by Reset, to detect stale prompts
}

// New returns a machine in the Idle state.  The prompt may be nil, in
// which case text and comment annotations are always dismissed.
func New(adder Adder, prompt ContentPrompt, logger logrus.FieldLogger) *Machine {
	return &Machine{
		adder:  adder,
		prompt: prompt,
		logger: logging.OrDiscard(logger),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Tool returns the armed tool, or the empty kind in the Idle state.
func (m *Machine) Tool() annotation.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kind
}

// Draft returns a copy of the current draft.
func (m *Machine) Draft() (annotation.Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draft == nil {
		return annotation.Draft{}, false
	}
	return *m.draft, true
}

// Select arms the given tool.  Selecting the armed tool again disarms it.
// A draft in progress is dropped.
func (m *Machine) Select(kind annotation.Kind) error {
	if !kind.Valid() {
		return errors.Errorf("unknown tool %q", kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == AwaitingContent {
		return ErrBusy
	}
	m.draft = nil
	if m.state != Idle && m.kind == kind {
		m.state = Idle
		m.kind = ""
		return nil
	}
	m.state = Armed
	m.kind = kind
	return nil
}

// PointerDown starts a draft at p, given in document space.  It reports
// whether a draft was started.  The comment tool does not use drags.
func (m *Machine) PointerDown(page int, p vec.Vec2) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Armed || m.kind == annotation.KindComment {
		return false
	}
	m.state = Drawing
	m.draft = &annotation.Draft{
		Kind:  m.kind,
		Page:  page,
		Start: p,
		End:   p,
	}
	return true
}

// PointerMove moves the second corner of the draft.
func (m *Machine) PointerMove(p vec.Vec2) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Drawing {
		m.draft.End = p
	}
}

// PointerUp ends the drag at p.  Short drags are discarded.  Text drafts
// go through the content prompt; the other kinds are stored directly.
func (m *Machine) PointerUp(ctx context.Context, p vec.Vec2) (Outcome, *annotation.Annotation, error) {
	m.mu.Lock()
	if m.state != Drawing {
		m.mu.Unlock()
		return Ignored, nil, nil
	}
	d := *m.draft
	d.End = p
	m.draft = nil

	if d.BelowThreshold() {
		m.state = Armed
		m.mu.Unlock()
		return Discarded, nil, nil
	}

	if d.Kind.NeedsContent() {
		m.state = AwaitingContent
		m.draft = &d
		gen := m.gen
		m.mu.Unlock()
		return m.complete(ctx, d, gen)
	}

	m.state = Armed
	m.mu.Unlock()
	return m.add(ctx, d)
}

// Click places a comment at p.  Clicks are ignored unless the comment tool
// is armed.
func (m *Machine) Click(ctx context.Context, page int, p vec.Vec2) (Outcome, *annotation.Annotation, error) {
	m.mu.Lock()
	if m.state != Armed || m.kind != annotation.KindComment {
		m.mu.Unlock()
		return Ignored, nil, nil
	}
	d := annotation.Draft{
		Kind:  annotation.KindComment,
		Page:  page,
		Start: p,
		End:   p,
	}
	m.state = AwaitingContent
	m.draft = &d
	gen := m.gen
	m.mu.Unlock()

	return m.complete(ctx, d, gen)
}

// complete runs the content prompt for d and stores the result.
func (m *Machine) complete(ctx context.Context, d annotation.Draft, gen uint64) (Outcome, *annotation.Annotation, error) {
	var content string
	var ok bool
	var err error
	if m.prompt != nil {
		content, ok, err = m.prompt.Prompt(ctx, d.Kind)
	}

	m.mu.Lock()
	if m.gen != gen {
		// The machine was reset while the prompt was open.
		m.mu.Unlock()
		return Dismissed, nil, nil
	}
	m.state = Armed
	m.draft = nil
	m.mu.Unlock()

	if err != nil {
		m.logger.WithError(err).WithField("type", d.Kind).Warn("content prompt failed")
		return Dismissed, nil, err
	}
	if !ok || strings.TrimSpace(content) == "" {
		return Dismissed, nil, nil
	}
	d.Content = content
	return m.add(ctx, d)
}

func (m *Machine) add(ctx context.Context, d annotation.Draft) (Outcome, *annotation.Annotation, error) {
	if m.adder == nil {
		return Failed, nil, errors.New("no annotation store")
	}
	a, err := m.adder.Add(ctx, d)
	if err != nil {
		return Failed, nil, err
	}
	return Committed, &a, nil
}

// Reset returns to Idle and drops any draft.  An open content prompt is
// not interrupted, but its answer is ignored.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Idle
	m.kind = ""
	m.draft = nil
	m.gen++
}
