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
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"seehuhn.de/go/markup/annotation"
	"seehuhn.de/go/markup/logging"
	"seehuhn.de/go/markup/store"
)

const authorKey = "author"

// HandlerOptions configure a Handler.
type HandlerOptions struct {
	Logger logrus.FieldLogger

	// Secret, if not empty, is the HMAC key for bearer tokens.  Requests
	// without a valid token are rejected, and the token subject becomes
	// the author of new annotations.
	Secret []byte
}

// Handler serves a persistence backend over HTTP.
type Handler struct {
	svc    store.Service
	logger logrus.FieldLogger
	secret []byte
	engine *gin.Engine
}

// NewHandler returns a handler which serves svc.
func NewHandler(svc store.Service, opts HandlerOptions) *Handler {
	h := &Handler{
		svc:    svc,
		logger: logging.OrDiscard(opts.Logger),
		secret: opts.Secret,
	}

	router := gin.New()
	router.Use(gin.Recovery(), h.logRequests)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/")
	if len(h.secret) > 0 {
		api.Use(h.authenticate)
	}
	api.GET("/documents/:doc/versions/:ver/annotations", h.handleList)
	api.POST("/documents/:doc/versions/:ver/annotations", h.handleCreate)
	api.DELETE("/annotations/:id", h.handleDelete)

	h.engine = router
	return h
}

// Engine returns the router, so that more routes can be added.
func (h *Handler) Engine() *gin.Engine {
	return h.engine
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

func (h *Handler) handleList(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), c.Param("doc"), c.Param("ver"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if res == nil {
		res = []annotation.Annotation{}
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) handleCreate(c *gin.Context) {
	var a annotation.Annotation
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	doc, ver := c.Param("doc"), c.Param("ver")
	if (a.DocumentID != "" && a.DocumentID != doc) || (a.VersionID != "" && a.VersionID != ver) {
		c.JSON(http.StatusBadRequest, errorBody{Error: "document or version does not match the request path"})
		return
	}
	a.DocumentID = doc
	a.VersionID = ver
	if author := c.GetString(authorKey); author != "" {
		a.Author = author
	}

	res, err := h.svc.Create(c.Request.Context(), a)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) handleDelete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("persistence request failed")
	}
	c.AbortWithStatusJSON(code, errorBody{Error: err.Error()})
}

func (h *Handler) authenticate(c *gin.Context) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
		return
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "invalid token"})
		return
	}
	c.Set(authorKey, claims.Subject)
	c.Next()
}

func (h *Handler) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.WithFields(logrus.Fields{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"elapsed": time.Since(start).Round(time.Microsecond),
	}).Debug("request")
}

// IssueToken returns a bearer token for author, signed with secret and
// valid for ttl.
func IssueToken(secret []byte, author string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty token secret")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   author,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
