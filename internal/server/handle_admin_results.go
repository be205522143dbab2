package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/mayorkiosk/internal/kiosk"
	"github.com/playperu/mayorkiosk/internal/mayor"
	"github.com/playperu/mayorkiosk/internal/results"
)

// AdminStatsResponse is the response for GET /api/admin/stats.
type AdminStatsResponse struct {
	TotemID    string        `json:"totemId"`
	Statistics results.Stats `json:"statistics"`
}

type TotemRequest struct {
	TotemID string `json:"totemId"`
}

type TotemResponse struct {
	TotemID string `json:"totemId"`
	Locked  bool   `json:"locked"`
}

// ConfirmRequest guards destructive admin operations.
type ConfirmRequest struct {
	Confirm string `json:"confirm"`
}

const totemResetPhrase = "RESET"

func handleAdminStats(logger *slog.Logger, store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			logger.Error("reading stats", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		totem, err := store.TotemID(r.Context())
		if err != nil {
			logger.Error("reading totem id", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, AdminStatsResponse{TotemID: totem, Statistics: stats})
	}
}

func handleAdminListResults(logger *slog.Logger, store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := store.List(r.Context())
		if err != nil {
			logger.Error("listing results", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func handleAdminClearResults(logger *slog.Logger, store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Clear(r.Context()); err != nil {
			logger.Error("clearing results", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Warn("results cleared", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleAdminExportJSON(logger *slog.Logger, store results.Store, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := exportDoc(r, store, now())
		if err != nil {
			logger.Error("building export", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment(results.ExportFilename(doc.TotemID, "json", doc.ExportDate)))
		if err := results.WriteJSON(w, doc); err != nil {
			logger.Error("writing json export", "error", err)
		}
	}
}

func handleAdminExportCSV(logger *slog.Logger, store results.Store, cats []mayor.Category, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := exportDoc(r, store, now())
		if err != nil {
			logger.Error("building export", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment(results.ExportFilename(doc.TotemID, "csv", doc.ExportDate)))
		if err := results.WriteCSV(w, cats, doc.Results); err != nil {
			logger.Error("writing csv export", "error", err)
		}
	}
}

func exportDoc(r *http.Request, store results.Store, now time.Time) (results.Export, error) {
	ctx := r.Context()
	recs, err := store.List(ctx)
	if err != nil {
		return results.Export{}, err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return results.Export{}, err
	}
	totem, err := store.TotemID(ctx)
	if err != nil {
		return results.Export{}, err
	}
	return results.Export{TotemID: totem, ExportDate: now.UTC(), Statistics: stats, Results: recs}, nil
}

func attachment(name string) string {
	return `attachment; filename="` + name + `"`
}

func handleAdminGetTotem(logger *slog.Logger, store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := store.TotemID(r.Context())
		if err != nil {
			logger.Error("reading totem id", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, TotemResponse{TotemID: id, Locked: id != results.DefaultTotemID})
	}
}

// handleAdminSetTotem assigns the totem id once; changing it requires a reset.
func handleAdminSetTotem(logger *slog.Logger, store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TotemRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.TotemID = strings.TrimSpace(req.TotemID)
		if req.TotemID == "" || req.TotemID == results.DefaultTotemID || len(req.TotemID) > 32 {
			writeError(w, http.StatusBadRequest, "totemId must be 1-32 characters and not \"0\"")
			return
		}

		err := store.SetTotemID(r.Context(), req.TotemID)
		if errors.Is(err, results.ErrTotemLocked) {
			writeError(w, http.StatusConflict, "totem id already set; reset it first")
			return
		}
		if err != nil {
			logger.Error("setting totem id", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Info("totem id set", "totem", req.TotemID)
		writeJSON(w, http.StatusOK, TotemResponse{TotemID: req.TotemID, Locked: true})
	}
}

func handleAdminResetTotem(logger *slog.Logger, store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConfirmRequest
		if err := readJSON(r, &req); err != nil || req.Confirm != totemResetPhrase {
			writeError(w, http.StatusBadRequest, `confirm must be "RESET"`)
			return
		}
		if err := store.ResetTotemID(r.Context()); err != nil {
			logger.Error("resetting totem id", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Warn("totem id reset")
		writeJSON(w, http.StatusOK, TotemResponse{TotemID: results.DefaultTotemID})
	}
}

var demos = map[string]func() mayor.Demo{
	"game":    mayor.DemoGame,
	"won":     mayor.DemoWon,
	"timeout": mayor.DemoTimeout,
}

// handleAdminDemo jumps the kiosk to a prepared screen for presentations.
// "start" simply resets the session.
func handleAdminDemo(k *kiosk.Kiosk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		screen := chi.URLParam(r, "screen")
		if screen == "start" {
			writeJSON(w, http.StatusOK, sessionView(k, k.Reset()))
			return
		}

		demo, ok := demos[screen]
		if !ok {
			writeError(w, http.StatusNotFound, "unknown demo screen")
			return
		}
		st, ok := k.Stage(demo())
		if !ok {
			writeRejected(w, "demo does not fit the configured catalog", st)
			return
		}
		writeJSON(w, http.StatusOK, sessionView(k, st))
	}
}
