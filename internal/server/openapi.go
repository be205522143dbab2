package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/mayorkiosk/internal/results"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthCheck is one entry of the /healthz report.
type HealthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type percentileQuery struct {
	Score int `query:"score" minimum:"0" required:"true"`
}

type demoPath struct {
	Screen string `path:"screen" enum:"start,game,won,timeout"`
}

type op struct {
	method, path, summary, description string
	req                                any
	resp                               map[int]any
	contentType                        string
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Mayor Kiosk API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the mayor budget kiosk game.")

	const cookie = " Requires admin_session cookie."
	rejected := RejectedResponse{}
	unauthorized := map[int]any{http.StatusUnauthorized: ErrorResponse{}}
	withAuth := func(m map[int]any) map[int]any {
		for k, v := range unauthorized {
			m[k] = v
		}
		return m
	}

	ops := []op{
		{
			method: http.MethodGet, path: "/healthz",
			summary:     "Health check",
			description: "Returns the health status of backend dependencies.",
			resp: map[int]any{
				http.StatusOK:                 map[string]HealthCheck{},
				http.StatusServiceUnavailable: map[string]HealthCheck{},
			},
		},
		{
			method: http.MethodGet, path: "/ws/live",
			summary:     "Live feed",
			description: "Upgrades to a WebSocket that sends the current state, then every kiosk update.",
			resp:        map[int]any{http.StatusSwitchingProtocols: nil},
			contentType: "text/plain",
		},
		{
			method: http.MethodGet, path: "/api/catalog",
			summary:     "Get catalog",
			description: "Categories, challenges and game rules.",
			resp:        map[int]any{http.StatusOK: CatalogResponse{}},
		},
		{
			method: http.MethodGet, path: "/api/session",
			summary:     "Get session",
			description: "Current session with per-challenge affordability and the finish shortfall.",
			resp:        map[int]any{http.StatusOK: SessionResponse{}},
		},
		{
			method: http.MethodGet, path: "/api/session/events",
			summary:     "SSE event stream",
			description: "Server-Sent Events stream of kiosk updates. The event name is the update type.",
			resp:        map[int]any{http.StatusOK: nil},
			contentType: "text/event-stream",
		},
		{
			method: http.MethodPost, path: "/api/session/player",
			summary:     "Set player",
			description: "Stores the player's name and role before the game starts.",
			req:         PlayerRequest{},
			resp: map[int]any{
				http.StatusOK:         SessionResponse{},
				http.StatusBadRequest: ErrorResponse{},
				http.StatusConflict:   rejected,
			},
		},
		{
			method: http.MethodPost, path: "/api/session/start",
			summary:     "Start game",
			description: "Starts the countdown.",
			resp:        map[int]any{http.StatusOK: SessionResponse{}, http.StatusConflict: rejected},
		},
		{
			method: http.MethodPost, path: "/api/session/select",
			summary:     "Select challenge",
			description: "Funds a challenge. Rejections say why and, for insufficient budget, how much is missing.",
			req:         SelectRequest{},
			resp: map[int]any{
				http.StatusOK:         SessionResponse{},
				http.StatusBadRequest: ErrorResponse{},
				http.StatusConflict:   rejected,
			},
		},
		{
			method: http.MethodPost, path: "/api/session/undo",
			summary:     "Undo selection",
			description: "Restores the state before the last selection.",
			resp:        map[int]any{http.StatusOK: SessionResponse{}, http.StatusConflict: rejected},
		},
		{
			method: http.MethodPost, path: "/api/session/finish",
			summary:     "Finish game",
			description: "Wins the game if the win conditions hold; otherwise returns the shortfall.",
			resp:        map[int]any{http.StatusOK: SessionResponse{}, http.StatusConflict: rejected},
		},
		{
			method: http.MethodPost, path: "/api/session/phone-call",
			summary:     "Answer phone call",
			description: "Answers or declines the pending call. The second call cannot be declined.",
			req:         PhoneCallRequest{},
			resp: map[int]any{
				http.StatusOK:         SessionResponse{},
				http.StatusBadRequest: ErrorResponse{},
				http.StatusConflict:   rejected,
			},
		},
		{
			method: http.MethodPost, path: "/api/session/reset",
			summary:     "Reset session",
			description: "Returns the kiosk to the start screen.",
			resp:        map[int]any{http.StatusOK: SessionResponse{}},
		},
		{
			method: http.MethodGet, path: "/api/results/percentile",
			summary:     "Score percentile",
			description: "Share of stored games that scored strictly lower. 204 when there are none.",
			req:         percentileQuery{},
			resp: map[int]any{
				http.StatusOK:         PercentileResponse{},
				http.StatusNoContent:  nil,
				http.StatusBadRequest: ErrorResponse{},
			},
		},
		{
			method: http.MethodPost, path: "/api/admin/login",
			summary:     "Admin login",
			description: "Authenticate with the operator password. Sets admin_session cookie.",
			req:         AdminLoginRequest{},
			resp: map[int]any{
				http.StatusOK:                 AdminMeResponse{},
				http.StatusUnauthorized:       ErrorResponse{},
				http.StatusServiceUnavailable: ErrorResponse{},
			},
		},
		{
			method: http.MethodPost, path: "/api/admin/logout",
			summary:     "Admin logout",
			description: "Clears admin session and cookie.",
			resp:        map[int]any{http.StatusOK: nil},
		},
		{
			method: http.MethodGet, path: "/api/admin/me",
			summary:     "Current admin",
			description: "Reports whether the admin_session cookie is valid.",
			resp:        withAuth(map[int]any{http.StatusOK: AdminMeResponse{}}),
		},
		{
			method: http.MethodGet, path: "/api/admin/stats",
			summary:     "Statistics",
			description: "Game counts and the totem id." + cookie,
			resp:        withAuth(map[int]any{http.StatusOK: AdminStatsResponse{}}),
		},
		{
			method: http.MethodGet, path: "/api/admin/results",
			summary:     "List results",
			description: "All stored game results in play order." + cookie,
			resp:        withAuth(map[int]any{http.StatusOK: []results.Record{}}),
		},
		{
			method: http.MethodDelete, path: "/api/admin/results",
			summary:     "Clear results",
			description: "Deletes every stored game result." + cookie,
			resp:        withAuth(map[int]any{http.StatusOK: nil}),
		},
		{
			method: http.MethodGet, path: "/api/admin/export.json",
			summary:     "Export JSON",
			description: "Download of all results with statistics." + cookie,
			resp:        withAuth(map[int]any{http.StatusOK: results.Export{}}),
		},
		{
			method: http.MethodGet, path: "/api/admin/export.csv",
			summary:     "Export CSV",
			description: "Download of all results, one row per game." + cookie,
			resp:        withAuth(map[int]any{http.StatusOK: nil}),
			contentType: "text/csv",
		},
		{
			method: http.MethodGet, path: "/api/admin/totem",
			summary:     "Get totem id",
			description: "The id stamped on results from this kiosk." + cookie,
			resp:        withAuth(map[int]any{http.StatusOK: TotemResponse{}}),
		},
		{
			method: http.MethodPut, path: "/api/admin/totem",
			summary:     "Set totem id",
			description: "Sets the totem id once. 409 when already set." + cookie,
			req:         TotemRequest{},
			resp: withAuth(map[int]any{
				http.StatusOK:         TotemResponse{},
				http.StatusBadRequest: ErrorResponse{},
				http.StatusConflict:   ErrorResponse{},
			}),
		},
		{
			method: http.MethodDelete, path: "/api/admin/totem",
			summary:     "Reset totem id",
			description: `Unlocks the totem id. Body must be {"confirm":"RESET"}.` + cookie,
			req:         ConfirmRequest{},
			resp: withAuth(map[int]any{
				http.StatusOK:         TotemResponse{},
				http.StatusBadRequest: ErrorResponse{},
			}),
		},
		{
			method: http.MethodPost, path: "/api/admin/demo/{screen}",
			summary:     "Demo jump",
			description: "Jumps the kiosk to a prepared screen." + cookie,
			req:         demoPath{},
			resp: withAuth(map[int]any{
				http.StatusOK:       SessionResponse{},
				http.StatusNotFound: ErrorResponse{},
				http.StatusConflict: rejected,
			}),
		},
	}

	for _, o := range ops {
		oc, _ := r.NewOperationContext(o.method, o.path)
		oc.SetSummary(o.summary)
		oc.SetDescription(o.description)
		if o.req != nil {
			oc.AddReqStructure(o.req)
		}
		for status, body := range o.resp {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(status)}
			if body == nil && o.contentType != "" {
				opts = append(opts, openapi.WithContentType(o.contentType))
			}
			oc.AddRespStructure(body, opts...)
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
