package mayor

// Demo is a prepared session used by the admin panel to jump straight to a
// screen during presentations.
type Demo struct {
	Status            Status
	PlayerName        string
	PlayerRole        string
	Selected          []string
	TimeRemaining     int
	PhoneCallShown    bool
	PhoneCallAnswered bool
	PhoneCall2Shown   bool
}

func DemoGame() Demo {
	return Demo{
		Status:        StatusPlaying,
		PlayerName:    "Demo User",
		PlayerRole:    "Admin",
		Selected:      []string{"a2", "a4", "i1", "i2", "e4", "e6"},
		TimeRemaining: 60,
	}
}

func DemoWon() Demo {
	return Demo{
		Status:         StatusWon,
		PlayerName:     "Demo Winner",
		PlayerRole:     "Admin",
		Selected:       []string{"a2", "a4", "a3", "e4", "e6", "i2", "i7"},
		TimeRemaining:  45,
		PhoneCallShown: true,
	}
}

func DemoTimeout() Demo {
	return Demo{
		Status:            StatusTimeout,
		PlayerName:        "Demo Timeout",
		PlayerRole:        "Admin",
		Selected:          []string{"a1", "a5", "i3", "i8", "e1", "e7"},
		PhoneCallShown:    true,
		PhoneCallAnswered: true,
	}
}

// Stage replaces the session with d. Budget and percentages are derived from
// the selection like any played game, and the undo history starts empty.
// It returns false if d references unknown or repeated challenges or costs
// more than the initial budget.
func (s *Session) Stage(d Demo) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(d.Selected))
	for _, id := range d.Selected {
		if _, ok := s.engine.Catalog.ChallengeByID(id); !ok || seen[id] {
			return s.copyState(), false
		}
		seen[id] = true
	}
	cost := s.engine.TotalCost(d.Selected)
	if cost > s.engine.Rules.InitialBudget {
		return s.copyState(), false
	}

	st := s.initial()
	if d.Status != "" {
		st.Status = d.Status
	}
	st.PlayerName = d.PlayerName
	st.PlayerRole = d.PlayerRole
	st.Selected = append([]string{}, d.Selected...)
	st.Budget = s.engine.Rules.InitialBudget - cost
	st.Percentages = s.engine.Percentages(st.Selected)
	st.TimeRemaining = min(max(d.TimeRemaining, 0), s.engine.Rules.Duration)
	st.PhoneCallShown = d.PhoneCallShown
	st.PhoneCallAnswered = d.PhoneCallAnswered
	st.PhoneCall2Shown = d.PhoneCall2Shown

	s.st = st
	s.history = nil
	return s.copyState(), true
}
