package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/mayorkiosk/internal/handler/health"
	"github.com/playperu/mayorkiosk/internal/handler/live"
)

func addRoutes(r chi.Router, d Deps) {
	k, store, logger := d.Kiosk, d.Results, d.Logger

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Mayor Kiosk API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, d.Checks).Routes())
	r.Handle("/metrics", d.Metrics.Handler())
	r.Mount("/ws", live.NewHandler(logger, d.Broker, k.Snapshot).Routes())

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", handleCatalog(k.Engine()))
		r.Get("/results/percentile", handlePercentile(store))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", handleSession(k))
			r.Get("/events", handleEvents(k, d.Broker))
			r.Post("/player", handleSetPlayer(k))
			r.Post("/start", handleStart(k))
			r.Post("/select", handleSelect(k))
			r.Post("/undo", handleUndo(k))
			r.Post("/finish", handleFinish(k))
			r.Post("/phone-call", handlePhoneCall(k))
			r.Post("/reset", handleReset(k))
		})

		r.Post("/admin/login", handleAdminLogin(logger, d.AdminSessions, d.AdminPasswordHash))
		r.Post("/admin/logout", handleAdminLogout(logger, d.AdminSessions))
		r.Get("/admin/me", handleAdminMe(d.AdminSessions))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(d.AdminSessions))

			r.Get("/admin/stats", handleAdminStats(logger, store))
			r.Get("/admin/results", handleAdminListResults(logger, store))
			r.Delete("/admin/results", handleAdminClearResults(logger, store))
			r.Get("/admin/export.json", handleAdminExportJSON(logger, store, d.Now))
			r.Get("/admin/export.csv", handleAdminExportCSV(logger, store, k.Engine().Catalog.Categories(), d.Now))
			r.Get("/admin/totem", handleAdminGetTotem(logger, store))
			r.Put("/admin/totem", handleAdminSetTotem(logger, store))
			r.Delete("/admin/totem", handleAdminResetTotem(logger, store))
			r.Post("/admin/demo/{screen}", handleAdminDemo(k))
		})
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
