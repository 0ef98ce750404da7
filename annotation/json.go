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

package annotation

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"seehuhn.de/go/geom/vec"
)

// record is the wire representation of an annotation.
type record struct {
	ID          string          `json:"id,omitempty"`
	DocumentID  string          `json:"documentId"`
	VersionID   string          `json:"versionId"`
	Type        Kind            `json:"type"`
	PageNumber  int             `json:"pageNumber"`
	Coordinates json.RawMessage `json:"coordinates"`
	Content     string          `json:"content,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	Author      string          `json:"author,omitempty"`
}

// twoPoints holds the coordinates of boxes, highlights and arrows.
type twoPoints struct {
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
	X2 *float64 `json:"x2"`
	Y2 *float64 `json:"y2"`
}

// textPoint holds the coordinates of text annotations.
type textPoint struct {
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
}

// anchor holds the coordinates of comments.
type anchor struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// MarshalJSON implements the json.Marshaler interface.
func (a Annotation) MarshalJSON() ([]byte, error) {
	r := record{
		ID:         a.ID,
		DocumentID: a.DocumentID,
		VersionID:  a.VersionID,
		PageNumber: a.Page,
		Author:     a.Author,
	}
	if !a.CreatedAt.IsZero() {
		r.CreatedAt = &a.CreatedAt
	}

	var coords any
	switch s := a.Shape.(type) {
	case Box:
		coords = pair(s.P1, s.P2)
	case Highlight:
		coords = pair(s.P1, s.P2)
	case Arrow:
		coords = pair(s.From, s.To)
	case Text:
		coords = textPoint{X1: &s.At.X, Y1: &s.At.Y}
		r.Content = s.Content
	case Comment:
		coords = anchor{X: &s.At.X, Y: &s.At.Y}
		r.Content = s.Content
	case nil:
		return nil, errors.New("annotation: missing shape")
	default:
		panic("unreachable")
	}
	r.Type = a.Shape.Kind()

	var err error
	r.Coordinates, err = json.Marshal(coords)
	if err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

func pair(p1, p2 vec.Vec2) twoPoints {
	return twoPoints{X1: &p1.X, Y1: &p1.Y, X2: &p2.X, Y2: &p2.Y}
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if len(r.Coordinates) == 0 || string(r.Coordinates) == "null" {
		return errors.Errorf("annotation %q: missing coordinates", r.ID)
	}

	var shape Shape
	switch r.Type {
	case KindBox, KindHighlight, KindArrow:
		var c twoPoints
		if err := json.Unmarshal(r.Coordinates, &c); err != nil {
			return errors.Wrapf(err, "annotation %q: coordinates", r.ID)
		}
		if c.X1 == nil || c.Y1 == nil || c.X2 == nil || c.Y2 == nil {
			return errors.Errorf("annotation %q: incomplete %s coordinates", r.ID, r.Type)
		}
		p1 := vec.Vec2{X: *c.X1, Y: *c.Y1}
		p2 := vec.Vec2{X: *c.X2, Y: *c.Y2}
		switch r.Type {
		case KindBox:
			shape = Box{P1: p1, P2: p2}
		case KindHighlight:
			shape = Highlight{P1: p1, P2: p2}
		default:
			shape = Arrow{From: p1, To: p2}
		}
	case KindText:
		var c textPoint
		if err := json.Unmarshal(r.Coordinates, &c); err != nil {
			return errors.Wrapf(err, "annotation %q: coordinates", r.ID)
		}
		if c.X1 == nil || c.Y1 == nil {
			return errors.Errorf("annotation %q: incomplete text coordinates", r.ID)
		}
		shape = Text{At: vec.Vec2{X: *c.X1, Y: *c.Y1}, Content: r.Content}
	case KindComment:
		var c anchor
		if err := json.Unmarshal(r.Coordinates, &c); err != nil {
			return errors.Wrapf(err, "annotation %q: coordinates", r.ID)
		}
		if c.X == nil || c.Y == nil {
			return errors.Errorf("annotation %q: incomplete comment coordinates", r.ID)
		}
		shape = Comment{At: vec.Vec2{X: *c.X, Y: *c.Y}, Content: r.Content}
	default:
		return errors.Errorf("annotation %q: unknown type %q", r.ID, r.Type)
	}

	*a = Annotation{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		VersionID:  r.VersionID,
		Page:       r.PageNumber,
		Shape:      shape,
		Author:     r.Author,
	}
	if r.CreatedAt != nil {
		a.CreatedAt = *r.CreatedAt
	}
	return nil
}
