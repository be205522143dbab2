package mayor

import (
	"strings"
	"sync"
	"time"
)

type Status string

const (
	StatusStart   Status = "start"
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusTimeout Status = "timeout"
)

// Terminal reports whether the session is over and must be reset to play again.
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusTimeout
}

// Snapshot is the progress captured before a selection so it can be undone.
type Snapshot struct {
	Budget      int
	Selected    []string
	Percentages Percentages
}

// State is a point-in-time copy of a session. Callers may keep and modify it
// freely; it shares nothing with the live session.
type State struct {
	PlayerName        string      `json:"playerName"`
	PlayerRole        string      `json:"playerRole"`
	Status            Status      `json:"status"`
	Budget            int         `json:"budget"`
	TimeRemaining     int         `json:"timeRemaining"`
	Selected          []string    `json:"selectedChallenges"`
	Percentages       Percentages `json:"categoryPercentages"`
	PhoneCallShown    bool        `json:"phoneCallShown"`
	PhoneCallAnswered bool        `json:"phoneCallAnswered"`
	PhoneCall2Shown   bool        `json:"phoneCall2Shown"`
	HistoryLen        int         `json:"historyLength"`
}

// Session is the live game. Every exported method is one atomic operation;
// invalid calls are rejected by returning false, never by panicking.
type Session struct {
	mu      sync.Mutex
	engine  *Engine
	st      State
	history []Snapshot
}

func NewSession(e *Engine) *Session {
	s := &Session{engine: e}
	s.st = s.initial()
	return s
}

func (s *Session) Engine() *Engine { return s.engine }

func (s *Session) initial() State {
	return State{
		Status:        StatusStart,
		Budget:        s.engine.Rules.InitialBudget,
		TimeRemaining: s.engine.Rules.Duration,
		Selected:      []string{},
		Percentages:   s.engine.zero(),
	}
}

// copyState must be called with mu held.
func (s *Session) copyState() State {
	out := s.st
	out.Selected = append([]string{}, s.st.Selected...)
	out.Percentages = s.st.Percentages.clone()
	out.HistoryLen = len(s.history)
	return out
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

func (s *Session) SetPlayerInfo(name, role string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != StatusStart {
		return s.copyState(), false
	}
	s.st.PlayerName = strings.TrimSpace(name)
	s.st.PlayerRole = strings.TrimSpace(role)
	return s.copyState(), true
}

func (s *Session) Start() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != StatusStart {
		return s.copyState(), false
	}
	name, role := s.st.PlayerName, s.st.PlayerRole
	s.st = s.initial()
	s.st.PlayerName, s.st.PlayerRole = name, role
	s.st.Status = StatusPlaying
	s.history = nil
	return s.copyState(), true
}

func (s *Session) selected(id string) bool {
	for _, got := range s.st.Selected {
		if got == id {
			return true
		}
	}
	return false
}

// CanSelect reports whether Select(id) would currently be applied.
func (s *Session) CanSelect(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSelect(id)
}

func (s *Session) canSelect(id string) bool {
	if s.st.Status != StatusPlaying || s.selected(id) {
		return false
	}
	ch, ok := s.engine.Catalog.ChallengeByID(id)
	return ok && s.engine.CanSelect(ch, s.st.Budget)
}

func (s *Session) Select(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canSelect(id) {
		return s.copyState(), false
	}
	ch, _ := s.engine.Catalog.ChallengeByID(id)

	s.history = append(s.history, Snapshot{
		Budget:      s.st.Budget,
		Selected:    append([]string{}, s.st.Selected...),
		Percentages: s.st.Percentages.clone(),
	})

	selected := append(append([]string{}, s.st.Selected...), id)
	s.st.Selected = selected
	s.st.Budget -= ch.Cost
	s.st.Percentages = s.engine.Percentages(selected)
	return s.copyState(), true
}

func (s *Session) Undo() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != StatusPlaying || len(s.history) == 0 {
		return s.copyState(), false
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	s.st.Budget = last.Budget
	s.st.Selected = last.Selected
	s.st.Percentages = last.Percentages
	return s.copyState(), true
}

// Finish ends the game as won when the win conditions hold. Otherwise the
// session keeps playing and the caller explains the shortfall.
func (s *Session) Finish() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != StatusPlaying || !s.engine.Won(s.st.Budget, s.st.Percentages) {
		return s.copyState(), false
	}
	s.st.Status = StatusWon
	return s.copyState(), true
}

func (s *Session) Tick() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != StatusPlaying {
		return s.copyState(), false
	}
	s.spend(1)
	return s.copyState(), true
}

// spend removes seconds from the clock and, when it runs out, settles the
// game with the same predicate a manual finish uses.
func (s *Session) spend(seconds int) {
	s.st.TimeRemaining = max(s.st.TimeRemaining-seconds, 0)
	if s.st.TimeRemaining > 0 {
		return
	}
	if s.engine.Won(s.st.Budget, s.st.Percentages) {
		s.st.Status = StatusWon
	} else {
		s.st.Status = StatusTimeout
	}
}

// ShowPhoneCall marks call n (1 or 2) as presented. It returns false when the
// call was already shown or the session is not playing.
func (s *Session) ShowPhoneCall(n int) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != StatusPlaying {
		return s.copyState(), false
	}
	switch n {
	case 1:
		if s.st.PhoneCallShown {
			return s.copyState(), false
		}
		s.st.PhoneCallShown = true
	case 2:
		if s.st.PhoneCall2Shown {
			return s.copyState(), false
		}
		s.st.PhoneCall2Shown = true
	default:
		return s.copyState(), false
	}
	return s.copyState(), true
}

func (s *Session) AnswerPhoneCall(answered bool, penalty int) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != StatusPlaying {
		return s.copyState(), false
	}
	s.st.PhoneCallAnswered = answered
	if answered {
		s.spend(max(penalty, 0))
	}
	return s.copyState(), true
}

func (s *Session) Reset() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = s.initial()
	s.history = nil
	return s.copyState()
}

// Result builds the record of the session if it has finished. It returns
// false while the session is not in a terminal state.
func (s *Session) Result(id, totemID string, now time.Time) (GameResult, bool) {
	return s.engine.Result(s.State(), id, totemID, now)
}
