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
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"seehuhn.de/go/markup/config"
	"seehuhn.de/go/markup/metrics"
	"seehuhn.de/go/markup/persist"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured persistence backend over HTTP",
		Long: `Serve runs the annotation REST service on top of the configured file,
postgres or memory backend.  If a token secret is configured, requests
must carry a bearer token issued by "markup token".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Persistence.Backend == config.BackendHTTP {
				return errors.New("serve needs a local persistence backend")
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, closeService, err := a.cfg.OpenService(ctx, a.logger)
			if err != nil {
				return err
			}
			defer closeService()

			if a.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			h := persist.NewHandler(svc, persist.HandlerOptions{
				Logger: a.logger,
				Secret: []byte(a.cfg.Server.TokenSecret),
			})
			if a.cfg.Server.Metrics {
				m := metrics.NewPrometheus()
				a.metrics = m
				h.Engine().GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.GetRegistry(), promhttp.HandlerOpts{})))
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           h,
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				a.logger.WithField("addr", addr).Info("serving annotations")
				errc <- server.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "listen", "", "listen address (default from configuration)")
	return cmd
}

func (a *app) tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the annotation service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			author := a.cfg.Viewer.Author
			if author == "" {
				return errors.New("no author given, use --author")
			}
			token, err := persist.IssueToken([]byte(a.cfg.Server.TokenSecret), author, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "validity of the token")
	return cmd
}
