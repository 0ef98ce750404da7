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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/logging"
)

// maxResponseSize limits the size of response bodies read by the client.
const maxResponseSize = 32 << 20

// StatusError is returned by the client for unsuccessful HTTP responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("persistence service: %s", http.StatusText(e.Code))
	}
	return fmt.Sprintf("persistence service: %s: %s", http.StatusText(e.Code), e.Message)
}

// Is makes a 404 response match ErrNotFound and a 400 response match
// ErrInvalid.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrInvalid:
		return e.Code == http.StatusBadRequest
	}
	return false
}

// errorBody is the JSON body of error responses.
type errorBody struct {
	Error string `json:"error"`
}

// Client is a REST client for the annotation persistence service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  logrus.FieldLogger
}

// NewClient returns a client for the service at baseURL.  If token is not
// empty, it is sent as a bearer token.  A nil httpClient uses a client with
// a 30 second timeout.
func NewClient(baseURL, token string, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		logger:  logging.OrDiscard(logger),
	}
}

// List implements the store.Service interface.
func (c *Client) List(ctx context.Context, documentID, versionID string) ([]annotation.Annotation, error) {
	var res []annotation.Annotation
	err := c.do(ctx, http.MethodGet, annotationsPath(documentID, versionID), nil, &res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Create implements the store.Service interface.
func (c *Client) Create(ctx context.Context, a annotation.Annotation) (annotation.Annotation, error) {
	var res annotation.Annotation
	err := c.do(ctx, http.MethodPost, annotationsPath(a.DocumentID, a.VersionID), a, &res)
	if err != nil {
		return annotation.Annotation{}, err
	}
	if res.ID == "" {
		return annotation.Annotation{}, errors.New("persistence service: created annotation has no id")
	}
	return res, nil
}

// Delete implements the store.Service interface.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/annotations/"+url.PathEscape(id), nil, nil)
}

func annotationsPath(documentID, versionID string) string {
	return "/documents/" + url.PathEscape(documentID) +
		"/versions/" + url.PathEscape(versionID) + "/annotations"
}

// do sends a request with an optional JSON body and decodes the JSON
// response into out, unless out is nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("persistence request")

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			se.Message = eb.Error
		}
		return se
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode response of %s %s", method, path)
	}
	return nil
}
