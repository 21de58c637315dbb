package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kenneth/zffcore/internal/metrics"
	"github.com/kenneth/zffcore/internal/middleware"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a debug/status HTTP surface (health, readiness, metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := metrics.NewMetrics()

			router := mux.NewRouter()
			router.Handle("/metrics", m.Handler())
			router.HandleFunc("/healthz", metrics.HealthHandler())
			router.HandleFunc("/livez", metrics.LivenessHandler())
			router.HandleFunc("/readyz", metrics.ReadinessHandler(func(ctx context.Context) error {
				return nil
			}))

			logger := logrus.New()
			handler := middleware.LoggingMiddleware(logger)(router)

			fmt.Fprintf(cmd.OutOrStdout(), "serving debug surface on %s\n", addr)
			return http.ListenAndServe(addr, handler)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9595", "listen address for the debug/status HTTP surface")
	return cmd
}
