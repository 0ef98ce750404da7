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

package markup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/export"
	"seehuhn.de/go/markup/persist"
	"seehuhn.de/go/markup/source"
	"seehuhn.de/go/markup/source/sourcetest"
	"seehuhn.de/go/markup/store"
	"seehuhn.de/go/markup/tool"
)

type docOpener struct {
	doc source.Document
	err error
}

func (o docOpener) Open(ctx context.Context, url string) (source.Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

type failingService struct {
	store.Service
}

func (failingService) List(ctx context.Context, documentID, versionID string) ([]annotation.Annotation, error) {
	return nil, errors.New("service unavailable")
}

func answer(content string) tool.PromptFunc {
	return func(ctx context.Context, kind annotation.Kind) (string, bool, error) {
		return content, true, nil
	}
}

func openTest(t *testing.T, doc *sourcetest.Document, opts Options) *Session {
	t.Helper()
	opts.Opener = docOpener{doc: doc}
	if opts.Service == nil {
		opts.Service = persist.NewMemory()
	}
	s, err := Open(context.Background(), "test.pdf", "doc-1", "v1", opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	doc := sourcetest.New(3, 100, 80)
	s := openTest(t, doc, Options{Zoom: 10})

	assert.Equal(t, 1, s.Page())
	assert.Equal(t, 4.0, s.Zoom())

	frame, err := s.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Page)
	assert.Equal(t, 400, frame.Canvas.Width())
	assert.Equal(t, 320, frame.Canvas.Height())

	require.NoError(t, s.Close())
	assert.True(t, doc.Closed())
	_, err = s.Frame(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenLoadError(t *testing.T) {
	loadErr := &source.LoadError{URL: "missing.pdf", Err: os.ErrNotExist}
	_, err := Open(context.Background(), "missing.pdf", "doc-1", "v1", Options{
		Opener:  docOpener{err: loadErr},
		Service: persist.NewMemory(),
	})
	var target *source.LoadError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "missing.pdf", target.URL)
}

func TestOpenPersistenceError(t *testing.T) {
	doc := sourcetest.New(1, 100, 100)
	_, err := Open(context.Background(), "test.pdf", "doc-1", "v1", Options{
		Opener:  docOpener{doc: doc},
		Service: failingService{},
	})
	var target *store.PersistenceError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, store.OpList, target.Op)
	assert.True(t, doc.Closed())
}

func TestDrawBox(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, sourcetest.New(2, 100, 100), Options{Zoom: 1.5, Author: "alice"})
	require.NoError(t, s.SelectTool(annotation.KindBox))

	s.PointerDown(vec.Vec2{X: 15, Y: 15})
	s.PointerMove(vec.Vec2{X: 40, Y: 40})
	out, a, err := s.PointerUp(ctx, vec.Vec2{X: 75, Y: 60})
	require.NoError(t, err)
	require.Equal(t, tool.Committed, out)
	require.NotNil(t, a)

	assert.Equal(t, annotation.Box{P1: vec.Vec2{X: 10, Y: 10}, P2: vec.Vec2{X: 50, Y: 40}}, a.Shape)
	assert.Equal(t, 1, a.Page)
	assert.Equal(t, "alice", a.Author)
	assert.Equal(t, tool.Armed, s.Tools().State())

	c, err := s.Compose(ctx)
	require.NoError(t, err)
	edge := c.Image().RGBAAt(15, 37)
	assert.Greater(t, edge.R, uint8(180))
	assert.Less(t, edge.G, uint8(120))

	// the frame itself stays clean
	frame, err := s.Frame(ctx)
	require.NoError(t, err)
	plain := frame.Canvas.Image().RGBAAt(15, 37)
	assert.Equal(t, uint8(255), plain.G)
}

func TestOriginAndZoom(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, sourcetest.New(1, 100, 100), Options{})
	s.SetOrigin(vec.Vec2{X: 100, Y: 50})
	_, err := s.SetZoom(ctx, 2)
	require.NoError(t, err)

	frame, err := s.Frame(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, frame.Viewport.Scale)

	require.NoError(t, s.SelectTool(annotation.KindArrow))
	s.PointerDown(vec.Vec2{X: 120, Y: 70})
	out, a, err := s.PointerUp(ctx, vec.Vec2{X: 180, Y: 130})
	require.NoError(t, err)
	require.Equal(t, tool.Committed, out)
	assert.Equal(t, annotation.Arrow{From: vec.Vec2{X: 10, Y: 10}, To: vec.Vec2{X: 40, Y: 40}}, a.Shape)
}

func TestShowPageResetsTools(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, sourcetest.New(3, 50, 50), Options{})
	require.NoError(t, s.SelectTool(annotation.KindHighlight))
	s.PointerDown(vec.Vec2{X: 5, Y: 5})
	s.PointerMove(vec.Vec2{X: 20, Y: 20})
	_, ok := s.Tools().Draft()
	require.True(t, ok)

	_, err := s.ShowPage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Page())
	assert.Equal(t, tool.Idle, s.Tools().State())
	_, ok = s.Tools().Draft()
	assert.False(t, ok)

	frame, err := s.Frame(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Page)

	_, err = s.ShowPage(ctx, 4)
	assert.ErrorIs(t, err, source.ErrPageRange)
	_, err = s.ShowPage(ctx, 0)
	assert.ErrorIs(t, err, source.ErrPageRange)
	assert.Equal(t, 2, s.Page())
}

func TestSelectAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, sourcetest.New(2, 100, 100), Options{})
	require.NoError(t, s.SelectTool(annotation.KindBox))
	s.PointerDown(vec.Vec2{X: 10, Y: 10})
	_, box, err := s.PointerUp(ctx, vec.Vec2{X: 50, Y: 40})
	require.NoError(t, err)

	out, _, err := s.Click(ctx, vec.Vec2{X: 30, Y: 30})
	require.NoError(t, err)
	assert.Equal(t, tool.Discarded, out)
	assert.Equal(t, box.ID, s.Store().Selected())

	c, err := s.Compose(ctx)
	require.NoError(t, err)
	sel := c.Image().RGBAAt(9, 7)
	assert.Greater(t, sel.B, sel.R)

	// a click on empty space clears the selection
	_, _, err = s.Click(ctx, vec.Vec2{X: 90, Y: 90})
	require.NoError(t, err)
	assert.Empty(t, s.Store().Selected())

	_, _, err = s.Click(ctx, vec.Vec2{X: 50, Y: 25})
	require.NoError(t, err)
	require.Equal(t, box.ID, s.Store().Selected())

	require.NoError(t, s.DeleteSelected(ctx))
	assert.Zero(t, s.Store().Len())
	assert.Empty(t, s.Store().Selected())
	require.NoError(t, s.DeleteSelected(ctx))

	err = s.Delete(ctx, box.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestComment(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, sourcetest.New(1, 100, 100), Options{Prompt: answer("check this")})
	require.NoError(t, s.SelectTool(annotation.KindComment))

	out, a, err := s.Click(ctx, vec.Vec2{X: 30, Y: 60})
	require.NoError(t, err)
	require.Equal(t, tool.Committed, out)
	assert.Equal(t, annotation.Comment{At: vec.Vec2{X: 30, Y: 60}, Content: "check this"}, a.Shape)
	assert.Equal(t, tool.Armed, s.Tools().State())
}

func TestCommentOnExistingAnnotation(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, sourcetest.New(1, 100, 100), Options{Prompt: answer("check this")})
	require.NoError(t, s.SelectTool(annotation.KindBox))
	s.PointerDown(vec.Vec2{X: 10, Y: 10})
	_, box, err := s.PointerUp(ctx, vec.Vec2{X: 50, Y: 40})
	require.NoError(t, err)
	require.NotNil(t, box)

	require.NoError(t, s.SelectTool(annotation.KindComment))
	out, a, err := s.Click(ctx, vec.Vec2{X: 30, Y: 30})
	require.NoError(t, err)
	assert.Equal(t, tool.Ignored, out)
	assert.Nil(t, a)
	assert.Equal(t, box.ID, s.Store().Selected())
	assert.Equal(t, 1, s.Store().Len())
	assert.Equal(t, tool.Armed, s.Tools().State())

	// empty space still takes a comment
	out, _, err = s.Click(ctx, vec.Vec2{X: 80, Y: 80})
	require.NoError(t, err)
	assert.Equal(t, tool.Committed, out)
	assert.Equal(t, 2, s.Store().Len())
	assert.Empty(t, s.Store().Selected())
}

func TestTextWithoutPrompt(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, sourcetest.New(1, 100, 100), Options{})
	require.NoError(t, s.SelectTool(annotation.KindText))

	s.PointerDown(vec.Vec2{X: 10, Y: 10})
	out, a, err := s.PointerUp(ctx, vec.Vec2{X: 60, Y: 30})
	require.NoError(t, err)
	assert.Equal(t, tool.Dismissed, out)
	assert.Nil(t, a)
	assert.Zero(t, s.Store().Len())
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	doc := sourcetest.New(31, 40, 30)
	doc.Name = "Site Plan"

	var progress []int
	s := openTest(t, doc, Options{
		Export: export.Options{
			Progress: func(p int) { progress = append(progress, p) },
		},
	})
	require.NoError(t, s.SelectTool(annotation.KindBox))
	s.PointerDown(vec.Vec2{X: 5, Y: 5})
	_, _, err := s.PointerUp(ctx, vec.Vec2{X: 30, Y: 20})
	require.NoError(t, err)

	dir := t.TempDir()
	fname, res, err := s.Export(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Scale)
	assert.Len(t, res.Pages, 31)
	assert.True(t, res.Landscape)
	assert.Equal(t, dir, filepath.Dir(fname))
	assert.Regexp(t, `^site-plan_\d{8}-\d{6}\.pdf$`, filepath.Base(fname))
	require.Len(t, progress, 31)
	assert.Equal(t, 100, progress[30])

	out, err := (&source.PDFOpener{}).Open(ctx, fname)
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, 31, out.NumPages())
}
