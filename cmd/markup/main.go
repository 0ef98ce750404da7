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

// Command markup annotates documents and exports them with the annotations
// burned in.  It can also host the annotation persistence service.
package main

import (
	"os"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"seehuhn.de/go/markup/config"
	"seehuhn.de/go/markup/logging"
	"seehuhn.de/go/markup/metrics"
)

const version = "0.1.0"

// app holds the state shared by all sub-commands.
type app struct {
	configPath string
	backend    string
	logLevel   string
	logFormat  string
	author     string
	documentID string
	versionID  string

	cfg     *config.Config
	logger  *logrus.Logger
	metrics metrics.Metrics
}

func main() {
	a := &app{metrics: metrics.Noop{}}

	rootCmd := &cobra.Command{
		Use:   "markup",
		Short: "Annotate documents and export them with the annotations burned in",
		Long: `markup draws boxes, highlights, arrows, text and comments on the pages of
PDF documents, stores them with a persistence service, and exports the
documents as new PDF files with the annotations painted onto every page.

Settings are read from the file given by --config (JSON or YAML), then from
MARKUP_* environment variables, then from the command line.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "configuration file (.json, .yaml)")
	flags.StringVar(&a.backend, "backend", "", "persistence backend: http, file, postgres or memory")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (text or json)")
	flags.StringVar(&a.author, "author", "", "author recorded in new annotations")
	flags.StringVar(&a.documentID, "document", "", "document id (default: the file name)")
	flags.StringVar(&a.versionID, "doc-version", "1", "document version id")

	rootCmd.AddCommand(
		a.pagesCmd(),
		a.renderCmd(),
		a.exportCmd(),
		a.annotationsCmd(),
		a.serveCmd(),
		a.tokenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and applies the command line overrides.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Persistence.Backend = a.backend
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.author != "" {
		cfg.Viewer.Author = a.author
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// document returns the document id for the given URL.
func (a *app) document(url string) string {
	if a.documentID != "" {
		return a.documentID
	}
	name := path.Base(strings.ReplaceAll(url, "\\", "/"))
	return strings.TrimSuffix(name, path.Ext(name))
}
