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
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	// register the "postgres" driver
	_ "github.com/lib/pq"

	"seehuhn.de/go/markup/annotation"
)

// Schema creates the annotations table used by SQL.
const Schema = `
CREATE TABLE IF NOT EXISTS annotations (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	version_id  TEXT NOT NULL,
	type        TEXT NOT NULL,
	page_number INTEGER NOT NULL,
	coordinates JSONB NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	author      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS annotations_version_idx
	ON annotations (document_id, version_id);
`

var columns = []string{
	"id", "document_id", "version_id", "type", "page_number",
	"coordinates", "content", "created_at", "author",
}

// row is an annotation as stored in the database.
type row struct {
	ID          string    `db:"id" json:"id"`
	DocumentID  string    `db:"document_id" json:"documentId"`
	VersionID   string    `db:"version_id" json:"versionId"`
	Type        string    `db:"type" json:"type"`
	PageNumber  int       `db:"page_number" json:"pageNumber"`
	Coordinates string    `db:"coordinates" json:"-"`
	Content     string    `db:"content" json:"content,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	Author      string    `db:"author" json:"author,omitempty"`
}

// SQL stores annotations in a PostgreSQL database.
type SQL struct {
	db  *sqlx.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

// NewSQL returns a backend using db.  The annotations table must exist,
// see Migrate.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now: time.Now,
	}
}

// OpenSQL connects to the PostgreSQL database given by dsn and creates the
// annotations table if needed.
func OpenSQL(ctx context.Context, dsn string) (*SQL, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	s := NewSQL(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the annotations table if it does not exist.
func (s *SQL) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return errors.Wrap(err, "create annotations table")
}

// Close closes the database connection.
func (s *SQL) Close() error {
	return s.db.Close()
}

// List implements the store.Service interface.
func (s *SQL) List(ctx context.Context, documentID, versionID string) ([]annotation.Annotation, error) {
	query, args, err := s.listQuery(documentID, versionID).ToSql()
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list annotations")
	}

	res := make([]annotation.Annotation, 0, len(rows))
	for _, r := range rows {
		a, err := r.annotation()
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

func (s *SQL) listQuery(documentID, versionID string) sq.SelectBuilder {
	return s.sb.Select(columns...).
		From("annotations").
		Where(sq.Eq{"document_id": documentID, "version_id": versionID}).
		OrderBy("created_at", "id")
}

// Create implements the store.Service interface.
func (s *SQL) Create(ctx context.Context, a annotation.Annotation) (annotation.Annotation, error) {
	a, err := stamp(a, s.now())
	if err != nil {
		return annotation.Annotation{}, err
	}
	query, args, err := s.insertQuery(a)
	if err != nil {
		return annotation.Annotation{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return annotation.Annotation{}, errors.Wrap(err, "insert annotation")
	}
	return a, nil
}

func (s *SQL) insertQuery(a annotation.Annotation) (string, []any, error) {
	r, err := toRow(a)
	if err != nil {
		return "", nil, err
	}
	return s.sb.Insert("annotations").
		Columns(columns...).
		Values(r.ID, r.DocumentID, r.VersionID, r.Type, r.PageNumber,
			r.Coordinates, r.Content, r.CreatedAt, r.Author).
		ToSql()
}

// Delete implements the store.Service interface.
func (s *SQL) Delete(ctx context.Context, id string) error {
	query, args, err := s.sb.Delete("annotations").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "delete annotation")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// toRow converts an annotation to its database form, using the JSON wire
// encoding for the coordinates.
func toRow(a annotation.Annotation) (row, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return row{}, err
	}
	var wire struct {
		row
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return row{}, err
	}
	r := wire.row
	r.Coordinates = string(wire.Coordinates)
	return r, nil
}

func (r *row) annotation() (annotation.Annotation, error) {
	wire := struct {
		row
		Coordinates json.RawMessage `json:"coordinates"`
	}{row: *r, Coordinates: json.RawMessage(r.Coordinates)}
	data, err := json.Marshal(wire)
	if err != nil {
		return annotation.Annotation{}, errors.Wrapf(err, "annotation %s", r.ID)
	}
	var a annotation.Annotation
	if err := json.Unmarshal(data, &a); err != nil {
		return annotation.Annotation{}, err
	}
	return a, nil
}
