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

// Package annotation defines the annotation records shared by all parts of
// the markup engine.
//
// All coordinates are stored in document space, which does not depend on
// the current zoom.  Display coordinates are derived when painting and are
// never stored.
package annotation

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Kind identifies an annotation tool and the shape it produces.
type Kind string

// These are the supported annotation kinds.
const (
	KindBox       Kind = "box"
	KindHighlight Kind = "highlight"
	KindArrow     Kind = "arrow"
	KindText      Kind = "text"
	KindComment   Kind = "comment"
)

// Kinds lists all annotation kinds in tool bar order.
var Kinds = []Kind{KindBox, KindHighlight, KindArrow, KindText, KindComment}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBox, KindHighlight, KindArrow, KindText, KindComment:
		return true
	}
	return false
}

// NeedsContent reports whether the kind carries user-supplied text.
func (k Kind) NeedsContent() bool {
	return k == KindText || k == KindComment
}

// Shape is the geometry of an annotation.  The set of implementations is
// closed: Box, Highlight, Arrow, Text and Comment.
type Shape interface {
	Kind() Kind
	isShape()
}

// Box is a rectangle given by two opposite corners.
type Box struct {
	P1, P2 vec.Vec2
}

// Highlight is a translucent rectangle given by two opposite corners.
type Highlight struct {
	P1, P2 vec.Vec2
}

// Arrow is a line from From to To, with the head at To.
type Arrow struct {
	From, To vec.Vec2
}

// Text is a string placed with its first line at At.
type Text struct {
	At      vec.Vec2
	Content string
}

// Comment is a pinned note.  The tip of the pin touches At.
type Comment struct {
	At      vec.Vec2
	Content string
}

func (Box) Kind() Kind       { return KindBox }
func (Highlight) Kind() Kind { return KindHighlight }
func (Arrow) Kind() Kind     { return KindArrow }
func (Text) Kind() Kind      { return KindText }
func (Comment) Kind() Kind   { return KindComment }

func (Box) isShape()       {}
func (Highlight) isShape() {}
func (Arrow) isShape()     {}
func (Text) isShape()      {}
func (Comment) isShape()   {}

// Annotation is a persisted annotation record.
type Annotation struct {
	// ID is assigned by the persistence service.  It is empty for records
	// which have not been saved.
	ID string

	DocumentID string
	VersionID  string

	// Page is the 1-based page number.  It does not change after creation.
	Page int

	Shape Shape

	CreatedAt time.Time
	Author    string
}

// Kind returns the kind of the annotation's shape.
func (a *Annotation) Kind() Kind {
	if a.Shape == nil {
		return ""
	}
	return a.Shape.Kind()
}

// Content returns the text of text and comment annotations.
func (a *Annotation) Content() string {
	switch s := a.Shape.(type) {
	case Text:
		return s.Content
	case Comment:
		return s.Content
	}
	return ""
}

// Validate checks the fields needed to store a new annotation.
func (a *Annotation) Validate() error {
	if a.DocumentID == "" || a.VersionID == "" {
		return errors.New("annotation: missing document or version id")
	}
	if a.Page < 1 {
		return errors.Errorf("annotation: invalid page number %d", a.Page)
	}
	if a.Shape == nil {
		return errors.New("annotation: missing shape")
	}
	if !a.Kind().Valid() {
		return errors.Errorf("annotation: unknown type %q", a.Kind())
	}
	if a.Kind().NeedsContent() && a.Content() == "" {
		return errors.Errorf("annotation: %s without content", a.Kind())
	}
	return nil
}

// MinDrag is the smallest drag, in document units along either axis, that
// creates a box, highlight, arrow or text annotation.
const MinDrag = 2.0

// Draft is an annotation which is being drawn.  Drafts have no id.
type Draft struct {
	Kind    Kind
	Page    int
	Start   vec.Vec2
	End     vec.Vec2
	Content string
}

// BelowThreshold reports whether the drag is too short along both axes to
// be kept.
func (d *Draft) BelowThreshold() bool {
	return math.Abs(d.End.X-d.Start.X) < MinDrag && math.Abs(d.End.Y-d.Start.Y) < MinDrag
}

// Shape converts the draft geometry into a shape.  Text and comments are
// anchored at the start point.
func (d *Draft) Shape() (Shape, error) {
	switch d.Kind {
	case KindBox:
		return Box{P1: d.Start, P2: d.End}, nil
	case KindHighlight:
		return Highlight{P1: d.Start, P2: d.End}, nil
	case KindArrow:
		return Arrow{From: d.Start, To: d.End}, nil
	case KindText:
		return Text{At: d.Start, Content: d.Content}, nil
	case KindComment:
		return Comment{At: d.Start, Content: d.Content}, nil
	}
	return nil, errors.Errorf("annotation: unknown type %q", d.Kind)
}

// Normalize returns the rectangle spanned by two opposite corners.
func Normalize(p1, p2 vec.Vec2) rect.Rect {
	return rect.Rect{
		LLx: min(p1.X, p2.X),
		LLy: min(p1.Y, p2.Y),
		URx: max(p1.X, p2.X),
		URy: max(p1.Y, p2.Y),
	}
}

// OnPage returns the annotations on the given page, in their original order.
func OnPage(all []Annotation, page int) []Annotation {
	var res []Annotation
	for _, a := range all {
		if a.Page == page {
			res = append(res, a)
		}
	}
	return res
}
