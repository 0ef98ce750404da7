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

// Package config holds the settings of the markup commands.
//
// Settings are taken from the defaults, then from an optional JSON or YAML
// file, then from MARKUP_* environment variables.  Command line flags are
// applied by the caller on top of the result.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"seehuhn.de/go/markup/coords"
	"seehuhn.de/go/markup/export"
	"seehuhn.de/go/markup/logging"
	"seehuhn.de/go/markup/persist"
	"seehuhn.de/go/markup/store"
)

// Persistence backends.
const (
	BackendHTTP     = "http"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the complete configuration.
type Config struct {
	Persistence Persistence `json:"persistence" yaml:"persistence"`
	Viewer      Viewer      `json:"viewer" yaml:"viewer"`
	Export      Export      `json:"export" yaml:"export"`
	Log         Log         `json:"log" yaml:"log"`
	Server      Server      `json:"server" yaml:"server"`
}

// Persistence selects where annotations are stored.
type Persistence struct {
	Backend string `json:"backend" yaml:"backend"`

	// URL and Token are used by the http backend.
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// TimeoutSeconds limits each request of the http backend.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`

	DSN  string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Viewer holds the settings of interactive sessions.
type Viewer struct {
	Zoom   float64 `json:"zoom" yaml:"zoom"`
	Author string  `json:"author,omitempty" yaml:"author,omitempty"`
}

// Export holds the settings of the export compositor.
type Export struct {
	Tiers       []export.Tier `json:"tiers" yaml:"tiers"`
	JPEGQuality int           `json:"jpegQuality" yaml:"jpegQuality"`
	OutputDir   string        `json:"outputDir" yaml:"outputDir"`
}

// Log configures the logger.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Server configures the serve command.
type Server struct {
	Addr        string `json:"addr" yaml:"addr"`
	TokenSecret string `json:"tokenSecret,omitempty" yaml:"tokenSecret,omitempty"`
	Metrics     bool   `json:"metrics" yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Persistence: Persistence{
			Backend:        BackendFile,
			File:           "annotations.json",
			TimeoutSeconds: 30,
		},
		Viewer: Viewer{Zoom: 1},
		Export: Export{
			Tiers:       append([]export.Tier(nil), export.DefaultTiers...),
			JPEGQuality: export.DefaultJPEGQuality,
			OutputDir:   ".",
		},
		Log: Log{
			Level:  "info",
			Format: logging.FormatText,
		},
		Server: Server{
			Addr:    "localhost:8080",
			Metrics: true,
		},
	}
}

// Load reads the configuration file at path, which may be empty, and
// applies the environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is like Load, but reads environment variables via lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(c)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(c)
	}
	if err != nil {
		return errors.Wrapf(err, "config file %q", path)
	}
	return nil
}

// applyEnv overrides settings from MARKUP_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"MARKUP_BACKEND":      &c.Persistence.Backend,
		"MARKUP_API_URL":      &c.Persistence.URL,
		"MARKUP_API_TOKEN":    &c.Persistence.Token,
		"MARKUP_DSN":          &c.Persistence.DSN,
		"MARKUP_STORE_FILE":   &c.Persistence.File,
		"MARKUP_AUTHOR":       &c.Viewer.Author,
		"MARKUP_OUTPUT_DIR":   &c.Export.OutputDir,
		"MARKUP_LOG_LEVEL":    &c.Log.Level,
		"MARKUP_LOG_FORMAT":   &c.Log.Format,
		"MARKUP_LISTEN":       &c.Server.Addr,
		"MARKUP_TOKEN_SECRET": &c.Server.TokenSecret,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("MARKUP_ZOOM"); ok {
		z, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "MARKUP_ZOOM")
		}
		c.Viewer.Zoom = z
	}
	if v, ok := lookup("MARKUP_JPEG_QUALITY"); ok {
		q, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "MARKUP_JPEG_QUALITY")
		}
		c.Export.JPEGQuality = q
	}
	if v, ok := lookup("MARKUP_EXPORT_TIERS"); ok {
		tiers, err := ParseTiers(v)
		if err != nil {
			return errors.Wrap(err, "MARKUP_EXPORT_TIERS")
		}
		c.Export.Tiers = tiers
	}
	return nil
}

// ParseTiers parses export tiers written as comma-separated
// "minPages:scale" pairs, for example "30:1.0,10:1.2,0:1.5".
func ParseTiers(s string) ([]export.Tier, error) {
	var res []export.Tier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pages, scale, ok := strings.Cut(part, ":")
		if !ok {
			return nil, errors.Errorf("malformed tier %q", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(pages))
		if err != nil {
			return nil, errors.Wrapf(err, "tier %q", part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(scale), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "tier %q", part)
		}
		res = append(res, export.Tier{MinPages: n, Scale: x})
	}
	if err := export.ValidateTiers(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	p := &c.Persistence
	switch p.Backend {
	case BackendHTTP:
		if p.URL == "" {
			return errors.New("config: http backend needs a URL")
		}
	case BackendFile:
		if p.File == "" {
			return errors.New("config: file backend needs a file name")
		}
	case BackendPostgres:
		if p.DSN == "" {
			return errors.New("config: postgres backend needs a DSN")
		}
	case BackendMemory:
	default:
		return errors.Errorf("config: unknown persistence backend %q", p.Backend)
	}
	if p.TimeoutSeconds < 0 {
		return errors.New("config: negative timeout")
	}

	if z := c.Viewer.Zoom; z < coords.MinZoom || z > coords.MaxZoom {
		return errors.Errorf("config: zoom %g outside [%g, %g]", z, coords.MinZoom, coords.MaxZoom)
	}
	if q := c.Export.JPEGQuality; q < 1 || q > 100 {
		return errors.Errorf("config: JPEG quality %d outside [1, 100]", q)
	}
	if err := export.ValidateTiers(c.Export.Tiers); err != nil {
		return errors.Wrap(err, "config")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "config")
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return errors.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// OpenService returns the configured persistence backend.  The returned
// function releases its resources.
func (c *Config) OpenService(ctx context.Context, logger logrus.FieldLogger) (store.Service, func() error, error) {
	noop := func() error { return nil }
	p := &c.Persistence
	switch p.Backend {
	case BackendHTTP:
		timeout := time.Duration(p.TimeoutSeconds) * time.Second
		client := persist.NewClient(p.URL, p.Token, &http.Client{Timeout: timeout}, logger)
		return client, noop, nil
	case BackendFile:
		f, err := persist.OpenFile(p.File)
		if err != nil {
			return nil, nil, err
		}
		return f, noop, nil
	case BackendPostgres:
		s, err := persist.OpenSQL(ctx, p.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case BackendMemory:
		return persist.NewMemory(), noop, nil
	}
	return nil, nil, errors.Errorf("unknown persistence backend %q", p.Backend)
}
