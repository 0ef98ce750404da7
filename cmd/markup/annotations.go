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

package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/store"
)

func (a *app) annotationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "annotations",
		Aliases: []string{"ann"},
		Short:   "List, add and remove stored annotations",
	}
	cmd.AddCommand(a.listCmd(), a.addCmd(), a.removeCmd())
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "list DOCUMENT",
		Short: "List the annotations of a document version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeService, err := a.cfg.OpenService(ctx, a.logger)
			if err != nil {
				return err
			}
			defer closeService()

			st := store.New(svc, a.logger, a.metrics)
			all, err := st.Load(ctx, a.document(args[0]), a.versionID)
			if err != nil {
				return err
			}
			if page > 0 {
				all = annotation.OnPage(all, page)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPAGE\tTYPE\tAUTHOR\tCREATED\tCONTENT")
			for _, ann := range all {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
					ann.ID, ann.Page, ann.Kind(), ann.Author,
					ann.CreatedAt.Local().Format("2006-01-02 15:04"), ann.Content())
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 0, "only list annotations on this page")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var (
		kind    string
		page    int
		at      string
		content string
	)
	cmd := &cobra.Command{
		Use:   "add DOCUMENT",
		Short: "Add an annotation to a document version",
		Example: `  markup annotations add plan --type box --page 2 --at 10,10,50,40
  markup annotations add plan --type comment --at 120,80 --content "check level"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := parseDraft(annotation.Kind(kind), page, at, content)
			if err != nil {
				return err
			}

			svc, closeService, err := a.cfg.OpenService(ctx, a.logger)
			if err != nil {
				return err
			}
			defer closeService()

			st := store.New(svc, a.logger, a.metrics)
			st.SetAuthor(a.cfg.Viewer.Author)
			if _, err := st.Load(ctx, a.document(args[0]), a.versionID); err != nil {
				return err
			}
			created, err := st.Add(ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", string(annotation.KindBox), "annotation type: box, highlight, arrow, text or comment")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().StringVar(&at, "at", "", "coordinates x1,y1[,x2,y2] in document units")
	cmd.Flags().StringVar(&content, "content", "", "text of text and comment annotations")
	return cmd
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID...",
		Aliases: []string{"remove"},
		Short:   "Remove annotations",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeService, err := a.cfg.OpenService(ctx, a.logger)
			if err != nil {
				return err
			}
			defer closeService()

			for _, id := range args {
				if err := svc.Delete(ctx, id); err != nil {
					return errors.Wrapf(err, "annotation %s", id)
				}
				a.logger.WithField("annotation", id).Info("annotation deleted")
			}
			return nil
		},
	}
}

// parseDraft builds a draft from the command line arguments.  Shapes given
// by a single point use it as both corners.
func parseDraft(kind annotation.Kind, page int, at, content string) (annotation.Draft, error) {
	if !kind.Valid() {
		return annotation.Draft{}, errors.Errorf("unknown annotation type %q", kind)
	}
	var xy []float64
	for _, field := range strings.Split(at, ",") {
		x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return annotation.Draft{}, errors.Wrapf(err, "coordinates %q", at)
		}
		xy = append(xy, x)
	}

	d := annotation.Draft{Kind: kind, Page: page, Content: content}
	switch {
	case len(xy) == 4:
		d.Start = vec.Vec2{X: xy[0], Y: xy[1]}
		d.End = vec.Vec2{X: xy[2], Y: xy[3]}
	case len(xy) == 2 && kind.NeedsContent():
		d.Start = vec.Vec2{X: xy[0], Y: xy[1]}
		d.End = d.Start
	default:
		want := "x1,y1,x2,y2"
		if kind.NeedsContent() {
			want = "x,y"
		}
		return annotation.Draft{}, errors.Errorf("%s needs coordinates %s, got %q", kind, want, at)
	}
	if kind.NeedsContent() && content == "" {
		return annotation.Draft{}, errors.Errorf("%s needs --content", kind)
	}
	if !kind.NeedsContent() && d.BelowThreshold() {
		return annotation.Draft{}, errors.Errorf("%s is smaller than %g units", kind, annotation.MinDrag)
	}
	return d, nil
}
