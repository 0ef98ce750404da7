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

package persist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/store"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func box(doc, ver string, page int) annotation.Annotation {
	return annotation.Annotation{
		DocumentID: doc,
		VersionID:  ver,
		Page:       page,
		Shape:      annotation.Box{P1: vec.Vec2{X: 10, Y: 10}, P2: vec.Vec2{X: 50, Y: 40}},
	}
}

// exercise runs the same checks against every backend.
func exercise(t *testing.T, svc store.Service) {
	ctx := context.Background()

	a, err := svc.Create(ctx, box("doc", "v1", 2))
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, 2, a.Page)

	c, err := svc.Create(ctx, annotation.Annotation{
		DocumentID: "doc",
		VersionID:  "v1",
		Page:       1,
		Shape:      annotation.Comment{At: vec.Vec2{X: 5, Y: 6}, Content: "check this"},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, box("doc", "v2", 1))
	require.NoError(t, err)

	list, err := svc.List(ctx, "doc", "v1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, c.ID}, ids)
	for _, got := range list {
		if got.ID == c.ID {
			assert.Equal(t, annotation.Comment{At: vec.Vec2{X: 5, Y: 6}, Content: "check this"}, got.Shape)
		}
	}

	empty, err := svc.List(ctx, "other", "v1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, svc.Delete(ctx, a.ID))
	err = svc.Delete(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err = svc.List(ctx, "doc", "v1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)

	_, err = svc.Create(ctx, annotation.Annotation{
		DocumentID: "doc",
		VersionID:  "v1",
		Page:       1,
		Shape:      annotation.Text{At: vec.Vec2{X: 1, Y: 1}},
	})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestMemoryCreatedAt(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 789123456, time.FixedZone("X", 3600))
	m := NewMemory()
	m.Now = func() time.Time { return at }
	a, err := m.Create(context.Background(), box("d", "v", 1))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 3, 3, 5, 6, 789000000, time.UTC), a.CreatedAt)
}

func TestFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "annotations.json")
	f, err := OpenFile(fname)
	require.NoError(t, err)
	exercise(t, f)

	// the remaining annotations are read back
	g, err := OpenFile(fname)
	require.NoError(t, err)
	list, err := g.List(context.Background(), "doc", "v1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, annotation.KindComment, list[0].Kind())

	list, err = g.List(context.Background(), "doc", "v2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFileSaveFailure(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "missing", "annotations.json")
	f, err := OpenFile(fname)
	require.NoError(t, err)

	_, err = f.Create(context.Background(), box("doc", "v1", 1))
	require.Error(t, err)

	list, err := f.List(context.Background(), "doc", "v1")
	require.NoError(t, err)
	assert.Empty(t, list, "failed save must not keep the annotation")
}

func TestFileCorrupt(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "annotations.json")
	require.NoError(t, os.WriteFile(fname, []byte("{not json"), 0o644))
	_, err := OpenFile(fname)
	assert.Error(t, err)
}

func TestClient(t *testing.T) {
	srv := httptest.NewServer(NewHandler(NewMemory(), HandlerOptions{}))
	defer srv.Close()

	exercise(t, NewClient(srv.URL, "", srv.Client(), nil))
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", srv.Client(), nil)
	_, err := c.List(context.Background(), "doc", "v1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "maintenance", se.Message)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClientRoutes(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.EscapedPath())
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[]`))
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"x1","documentId":"d 1","versionId":"v/2","type":"arrow","pageNumber":1,` +
				`"coordinates":{"x1":0,"y1":0,"x2":3,"y2":4},"createdAt":"2026-01-01T00:00:00Z"}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.URL+"/", "", srv.Client(), nil)
	_, err := c.List(ctx, "d 1", "v/2")
	require.NoError(t, err)
	a := annotation.Annotation{DocumentID: "d 1", VersionID: "v/2", Page: 1,
		Shape: annotation.Arrow{To: vec.Vec2{X: 3, Y: 4}}}
	created, err := c.Create(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "x1", created.ID)
	require.NoError(t, c.Delete(ctx, "x1"))

	assert.Equal(t, []string{
		"GET /documents/d%201/versions/v%2F2/annotations",
		"POST /documents/d%201/versions/v%2F2/annotations",
		"DELETE /annotations/x1",
	}, seen)
}

func TestHandlerAuth(t *testing.T) {
	secret := []byte("test secret")
	srv := httptest.NewServer(NewHandler(NewMemory(), HandlerOptions{Secret: secret}))
	defer srv.Close()
	ctx := context.Background()

	anon := NewClient(srv.URL, "", srv.Client(), nil)
	_, err := anon.List(ctx, "doc", "v1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)

	bad, err := IssueToken([]byte("other secret"), "mallory", time.Hour)
	require.NoError(t, err)
	_, err = NewClient(srv.URL, bad, srv.Client(), nil).List(ctx, "doc", "v1")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)

	token, err := IssueToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	c := NewClient(srv.URL, token, srv.Client(), nil)
	a, err := c.Create(ctx, box("doc", "v1", 1))
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Author)

	// health checks need no token
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlerPathMismatch(t *testing.T) {
	h := NewHandler(NewMemory(), HandlerOptions{})
	body := `{"documentId":"a","versionId":"v1","type":"box","pageNumber":1,` +
		`"coordinates":{"x1":0,"y1":0,"x2":5,"y2":5}}`
	req := httptest.NewRequest(http.MethodPost, "/documents/b/versions/v1/annotations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreWithClient(t *testing.T) {
	srv := httptest.NewServer(NewHandler(NewMemory(), HandlerOptions{}))
	defer srv.Close()
	ctx := context.Background()

	s := store.New(NewClient(srv.URL, "", srv.Client(), nil), nil, nil)
	_, err := s.Load(ctx, "doc", "v1")
	require.NoError(t, err)

	a, err := s.Add(ctx, annotation.Draft{
		Kind:  annotation.KindBox,
		Page:  2,
		Start: vec.Vec2{X: 10, Y: 10},
		End:   vec.Vec2{X: 50, Y: 40},
	})
	require.NoError(t, err)
	require.NoError(t, s.Select(a.ID))
	require.NoError(t, s.Remove(ctx, a.ID))
	assert.Equal(t, "", s.Selected())
	assert.Equal(t, 0, s.Len())

	err = s.Remove(ctx, a.ID)
	assert.Error(t, err)
}
