package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/sells-group/scriptura/internal/catalog"
	"github.com/sells-group/scriptura/internal/model"
	"github.com/sells-group/scriptura/internal/resolver"
)

var servePort int

// chapterResolver is the slice of the resolver the HTTP layer needs.
type chapterResolver interface {
	Resolve(ctx context.Context, workCode string, chapterNumber int, editionCode string) (*model.Chapter, error)
	UnavailableReason(editionCode string) string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chapter read API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Resolver),
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the read API.
func newRouter(res chapterResolver) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/editions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, catalog.Editions())
	})

	r.Get("/v1/chapters/{work}/{chapter}", func(w http.ResponseWriter, req *http.Request) {
		work := chi.URLParam(req, "work")
		chapterNumber, err := strconv.Atoi(chi.URLParam(req, "chapter"))
		if err != nil || chapterNumber < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chapter must be a positive integer"})
			return
		}
		edition := req.URL.Query().Get("edition")
		if edition == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "edition query parameter is required"})
			return
		}

		chapter, err := res.Resolve(req.Context(), work, chapterNumber, edition)
		if err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, resolver.ErrUnsupportedEdition) ||
				errors.Is(err, resolver.ErrUnknownWork) ||
				errors.Is(err, resolver.ErrChapterOutOfRange) {
				status = http.StatusNotFound
			}
			zap.L().Info("chapter resolution failed",
				zap.String("work", work),
				zap.Int("chapter", chapterNumber),
				zap.String("edition", edition),
				zap.Error(err),
			)
			writeJSON(w, status, map[string]string{
				"error":  "chapter unavailable",
				"reason": res.UnavailableReason(edition),
			})
			return
		}

		writeJSON(w, http.StatusOK, chapter)
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
