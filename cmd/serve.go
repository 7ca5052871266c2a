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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/perseis-platform/ebisu/internal/db"
	"github.com/perseis-platform/ebisu/internal/ingest"
	"github.com/perseis-platform/ebisu/internal/source"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only intelligence API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "serve"))

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
		}))
		r.Use(rateLimit(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RateBurst))

		r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/api/sources", handleSources(pool))
		r.Get("/api/batches", handleBatches(pool))
		r.Get("/api/vessels", handleVessels(pool))
		r.Get("/api/confirmations/summary", handleConfirmationSummary(pool))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("listening", zap.Int("port", cfg.Server.Port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "serve: shutdown")
			}
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return eris.Wrap(err, "serve: listen")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// rateLimit applies one shared token bucket across all clients. The API is
// read-only and internal; per-client fairness is not a concern yet.
func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func handleSources(pool db.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := source.NewStore(pool).List(r.Context())
		if err != nil {
			zap.L().Error("list sources", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sources)
	}
}

func handleBatches(pool db.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batches, err := ingest.NewLedger(pool).List(r.Context(), r.URL.Query().Get("source"))
		if err != nil {
			zap.L().Error("list batches", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, batches)
	}
}

type vesselResponse struct {
	ID           int64   `json:"id"`
	Source       string  `json:"source"`
	Name         string  `json:"name"`
	Flag         *string `json:"flag,omitempty"`
	Registration *string `json:"registration,omitempty"`
	IMO          *string `json:"imo,omitempty"`
	Completeness float64 `json:"completeness"`
	Authority    string  `json:"authority"`
}

func handleVessels(pool db.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}

		query := `SELECT id, source_shortname, vessel_name, flag_code,
		                 registration_number, imo, completeness, authority_level
		          FROM vessel_data.vessel_intelligence
		          WHERE is_current`
		args := []any{}
		if flag := r.URL.Query().Get("flag"); flag != "" {
			args = append(args, flag)
			query += fmt.Sprintf(" AND flag_code = $%d", len(args))
		}
		if name := r.URL.Query().Get("name"); name != "" {
			args = append(args, "%"+name+"%")
			query += fmt.Sprintf(" AND vessel_name ILIKE $%d", len(args))
		}
		args = append(args, limit)
		query += fmt.Sprintf(" ORDER BY vessel_name LIMIT $%d", len(args))

		rows, err := pool.Query(r.Context(), query, args...)
		if err != nil {
			zap.L().Error("list vessels", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		out := []vesselResponse{}
		for rows.Next() {
			var v vesselResponse
			if err := rows.Scan(&v.ID, &v.Source, &v.Name, &v.Flag,
				&v.Registration, &v.IMO, &v.Completeness, &v.Authority); err != nil {
				zap.L().Error("scan vessel", zap.Error(err))
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			out = append(out, v)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleConfirmationSummary(pool db.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := pool.Query(r.Context(),
			`SELECT status, COUNT(*) FROM vessel_data.vessel_confirmations GROUP BY status`)
		if err != nil {
			zap.L().Error("confirmation summary", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		summary := map[string]int64{}
		for rows.Next() {
			var status string
			var count int64
			if err := rows.Scan(&status, &count); err != nil {
				zap.L().Error("scan summary", zap.Error(err))
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			summary[status] = count
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
