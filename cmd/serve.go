package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/store"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a read-only status API over the run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newAPIRouter(st),
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return runServer(ctx, srv)
	},
}

// runServer serves until ctx is canceled, then drains in-flight requests.
// ctx is already canceled when the shutdown fires, so the drain runs under
// its own deadline.
func runServer(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// newAPIRouter builds the read-only status API. Every endpoint is a GET over
// the run log; nothing here mutates workspace data.
func newAPIRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()

		limit := 50
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			limit = n
		}

		filter := store.RunFilter{
			Pass:        q.Get("pass"),
			WorkspaceID: q.Get("workspace"),
			Status:      model.PassStatus(q.Get("status")),
			Limit:       limit,
		}

		runs, err := st.ListPassRuns(req.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		if runs == nil {
			runs = []model.PassRun{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/api/runs/{runID}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetPassRun(req.Context(), chi.URLParam(req, "runID"))
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
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
