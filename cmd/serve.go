package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/tax"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve computed scenarios over a read-only JSON API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		csvPath, _ := cmd.Flags().GetString("csv")
		parcels, err := loadInputParcels(ctx, csvPath)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(parcels),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Int("parcels", len(parcels)))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(parcels []model.Parcel) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/scenario", func(w http.ResponseWriter, req *http.Request) {
		res, ok := runRequestedScenario(w, req, parcels)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"scenario": res.Scenario,
			"warning":  res.Warning,
		})
	})

	r.Get("/api/impact", func(w http.ResponseWriter, req *http.Request) {
		res, ok := runRequestedScenario(w, req, parcels)
		if !ok {
			return
		}
		sheets, err := buildImpactTables(parcels, res.Parcels)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"scenario": res.Scenario,
			"tables":   sheets,
		})
	})

	return r
}

// runRequestedScenario parses the ratio query parameter and runs the
// scenario, writing the error response itself on failure.
func runRequestedScenario(w http.ResponseWriter, req *http.Request, parcels []model.Parcel) (*tax.ScenarioResult, bool) {
	ratio := cfg.Scenario.Ratio
	if raw := req.URL.Query().Get("ratio"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ratio must be a number"})
			return nil, false
		}
		ratio = parsed
	}

	res, err := tax.RunScenario(parcels, cfg.Scenario.CurrentMillage, ratio)
	if err != nil {
		status := http.StatusInternalServerError
		if eris.Is(err, tax.ErrInvalidRatio) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return nil, false
	}
	return res, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().String("csv", "", "parcel roll CSV (default: latest cached snapshot)")
	rootCmd.AddCommand(serveCmd)
}
