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

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewWithWriter(buf, "debug", FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	logger.WithField("page", 3).Debug("rendered")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "rendered" || entry["page"] != 3.0 || entry["level"] != "debug" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewWithWriter(buf, "warn", FormatText)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestErrors(t *testing.T) {
	if _, err := New("loud", FormatText); err == nil {
		t.Error("invalid level accepted")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Error("invalid format accepted")
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Error("nil logger was not replaced")
	}
	l := logrus.New()
	if OrDiscard(l) != logrus.FieldLogger(l) {
		t.Error("logger was replaced")
	}
}
