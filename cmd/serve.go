package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := buildRouter(env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the HTTP API. Split out so handler behavior is
// testable without binding a port.
func buildRouter(env *scoutEnv) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/discover", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ProfileID string `json:"profile_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.ProfileID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "profile_id is required"})
			return
		}

		run, err := env.Discovery.Start(req.Context(), body.ProfileID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		// Run asynchronously; progress is persisted after every step and
		// can be polled via GET /api/runs/{id}.
		go func() {
			if err := env.Discovery.Run(context.WithoutCancel(req.Context()), run); err != nil {
				zap.L().Error("discovery run failed",
					zap.String("run_id", run.ID),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("discovery run finished",
				zap.String("run_id", run.ID),
				zap.String("phase", string(run.Phase)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"run_id": run.ID,
		})
	})

	r.Post("/api/research", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ProfileID string `json:"profile_id"`
			Company   string `json:"company"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.ProfileID == "" || body.Company == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "profile_id and company are required"})
			return
		}

		run, err := env.Research.Start(req.Context(), body.ProfileID, body.Company)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		go func() {
			if err := env.Research.Run(context.WithoutCancel(req.Context()), run); err != nil {
				zap.L().Error("research run failed",
					zap.String("run_id", run.ID),
					zap.String("company", run.CompanyName),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("research run finished",
				zap.String("run_id", run.ID),
				zap.String("company", run.CompanyName),
				zap.Int("score", run.Score),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"run_id":  run.ID,
			"company": body.Company,
		})
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		runs, err := env.Store.ListDiscoveryRuns(req.Context(), 0)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/api/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := env.Store.GetDiscoveryRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
