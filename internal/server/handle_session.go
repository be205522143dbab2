package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/playperu/mayorkiosk/internal/kiosk"
	"github.com/playperu/mayorkiosk/internal/mayor"
	"github.com/playperu/mayorkiosk/internal/results"
)

// CatalogResponse is the response for GET /api/catalog.
type CatalogResponse struct {
	Categories []mayor.Category  `json:"categories"`
	Challenges []mayor.Challenge `json:"challenges"`
	Rules      mayor.Rules       `json:"rules"`
}

// ChallengeStatus tells the kiosk how to draw one challenge card.
type ChallengeStatus struct {
	ID         string `json:"id"`
	Selected   bool   `json:"selected"`
	Affordable bool   `json:"affordable"`
}

// SessionResponse is the current session with what the screen derives from it.
type SessionResponse struct {
	mayor.State
	Challenges  []ChallengeStatus     `json:"challenges"`
	Bands       map[string]mayor.Band `json:"bands"`
	CanFinish   bool                  `json:"canFinish"`
	Shortfall   *mayor.Shortfall      `json:"shortfall,omitempty"`
	PendingCall int                   `json:"pendingCall"`
	Outcome     *kiosk.Outcome        `json:"outcome,omitempty"`
}

// RejectedResponse is returned with 409 when an operation does not apply.
type RejectedResponse struct {
	Error     string           `json:"error"`
	Missing   int              `json:"missing,omitempty"`
	Shortfall *mayor.Shortfall `json:"shortfall,omitempty"`
	State     mayor.State      `json:"state"`
}

type PlayerRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type SelectRequest struct {
	ChallengeID string `json:"challengeId"`
}

type PhoneCallRequest struct {
	Answered bool `json:"answered"`
}

type PercentileResponse struct {
	Score      int `json:"score"`
	Percentile int `json:"percentile"`
	SampleSize int `json:"sampleSize"`
}

func sessionView(k *kiosk.Kiosk, st mayor.State) SessionResponse {
	e := k.Engine()
	resp := SessionResponse{
		State:       st,
		Bands:       make(map[string]mayor.Band, len(st.Percentages)),
		PendingCall: k.PendingCall(),
	}
	for _, ch := range e.Catalog.Challenges() {
		resp.Challenges = append(resp.Challenges, ChallengeStatus{
			ID:         ch.ID,
			Selected:   slices.Contains(st.Selected, ch.ID),
			Affordable: e.CanSelect(ch, st.Budget),
		})
	}
	for id, pct := range st.Percentages {
		resp.Bands[id] = mayor.BandFor(pct)
	}
	if st.Status == mayor.StatusPlaying {
		sf := e.Shortfall(st.Budget, st.Percentages)
		resp.CanFinish = sf.Empty()
		if !resp.CanFinish {
			resp.Shortfall = &sf
		}
	}
	if st.Status.Terminal() {
		if out, ok := k.Outcome(); ok {
			resp.Outcome = &out
		}
	}
	return resp
}

func handleCatalog(e *mayor.Engine) http.HandlerFunc {
	resp := CatalogResponse{
		Categories: e.Catalog.Categories(),
		Challenges: e.Catalog.Challenges(),
		Rules:      e.Rules,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleSession(k *kiosk.Kiosk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionView(k, k.Snapshot()))
	}
}

func handleSetPlayer(k *kiosk.Kiosk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Role = strings.TrimSpace(req.Role)
		if req.Name == "" || req.Role == "" {
			writeError(w, http.StatusBadRequest, "name and role are required")
			return
		}

		st, ok := k.SetPlayer(req.Name, req.Role)
		if !ok {
			writeRejected(w, "player can only be set before the game starts", st)
			return
		}
		writeJSON(w, http.StatusOK, sessionView(k, st))
	}
}

func handleStart(k *kiosk.Kiosk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := k.Start()
		if !ok {
			writeRejected(w, "game already started", st)
			return
		}
		writeJSON(w, http.StatusOK, sessionView(k, st))
	}
}

func handleSelect(k *kiosk.Kiosk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRequest
		if err := readJSON(r, &req); err != nil || req.ChallengeID == "" {
			writeError(w, http.StatusBadRequest, "challengeId is required")
			return
		}

		st, ok := k.Select(req.ChallengeID)
		if ok {
			writeJSON(w, http.StatusOK, sessionView(k, st))
			return
		}

		resp := RejectedResponse{State: st}
		ch, known := k.Engine().Catalog.ChallengeByID(req.ChallengeID)
		switch {
		case st.Status != mayor.StatusPlaying:
			resp.Error = "game is not in progress"
		case !known:
			resp.Error = "unknown challenge"
		case slices.Contains(st.Selected, ch.ID):
			resp.Error = "challenge already selected"
		case ch.Cost > st.Budget:
			resp.Error = "insufficient budget"
			resp.Missing = ch.Cost - st.Budget
		default:
			resp.Error = "challenge cannot be selected"
		}
		writeJSON(w, http.StatusConflict, resp)
	}
}

func handleUndo(k *kiosk.Kiosk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := k.Undo()
		if !ok {
			msg := "nothing to undo"
			if st.Status != mayor.StatusPlaying {
				msg = "game is not in progress"
			}
			writeRejected(w, msg, st)
			return
		}
		writeJSON(w, http.StatusOK, sessionView(k, st))
	}
}

func handleFinish(k *kiosk.Kiosk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := k.Finish()
		if ok {
			writeJSON(w, http.StatusOK, sessionView(k, st))
			return
		}
		if st.Status != mayor.StatusPlaying {
			writeRejected(w, "game is not in progress", st)
			return
		}
		sf := k.Engine().Shortfall(st.Budget, st.Percentages)
		writeJSON(w, http.StatusConflict, RejectedResponse{
			Error:     "win conditions not met",
			Shortfall: &sf,
			State:     st,
		})
	}
}

func handlePhoneCall(k *kiosk.Kiosk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PhoneCallRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		st, ok := k.AnswerCall(req.Answered)
		if !ok {
			writeRejected(w, "no phone call pending", st)
			return
		}
		writeJSON(w, http.StatusOK, sessionView(k, st))
	}
}

func handleReset(k *kiosk.Kiosk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionView(k, k.Reset()))
	}
}

func handlePercentile(store results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		score, err := strconv.Atoi(r.URL.Query().Get("score"))
		if err != nil || score < 0 {
			writeError(w, http.StatusBadRequest, "score must be a non-negative integer")
			return
		}

		prior, err := store.Scores(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		p, ok := results.Percentile(score, prior)
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, PercentileResponse{Score: score, Percentile: p, SampleSize: len(prior)})
	}
}

func writeRejected(w http.ResponseWriter, msg string, st mayor.State) {
	writeJSON(w, http.StatusConflict, RejectedResponse{Error: msg, State: st})
}
