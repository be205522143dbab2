package mayor

import "time"

// SavedChallenge is the part of a challenge kept in a stored result.
type SavedChallenge struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Cost       int    `json:"cost"`
	CategoryID string `json:"category"`
}

// GameResult is the record of one finished session.
type GameResult struct {
	ID                 string           `json:"id"`
	Timestamp          time.Time        `json:"timestamp"`
	PlayerName         string           `json:"playerName"`
	PlayerRole         string           `json:"playerRole"`
	Result             Status           `json:"result"`
	TimeUsed           int              `json:"timeUsed"`
	FinalBudget        int              `json:"finalBudget"`
	Percentages        Percentages      `json:"categoryPercentages"`
	SelectedChallenges []SavedChallenge `json:"selectedChallenges"`
	PhoneCallAnswered  bool             `json:"phoneCallAnswered"`
	TotemID            string           `json:"totemId"`
}

// ScoreResult scores a stored result with the engine's rules.
func (e *Engine) ScoreResult(r GameResult) int {
	return e.Score(r.TimeUsed, r.Percentages, r.Result)
}

// Result builds the record of a finished session from its state. It returns
// false unless st is terminal. Unknown challenge ids are left out.
func (e *Engine) Result(st State, id, totemID string, now time.Time) (GameResult, bool) {
	if !st.Status.Terminal() {
		return GameResult{}, false
	}

	saved := make([]SavedChallenge, 0, len(st.Selected))
	for _, cid := range st.Selected {
		ch, ok := e.Catalog.ChallengeByID(cid)
		if !ok {
			continue
		}
		saved = append(saved, SavedChallenge{
			ID:         ch.ID,
			Name:       ch.Name,
			Cost:       ch.Cost,
			CategoryID: ch.CategoryID,
		})
	}

	return GameResult{
		ID:                 id,
		Timestamp:          now.UTC(),
		PlayerName:         st.PlayerName,
		PlayerRole:         st.PlayerRole,
		Result:             st.Status,
		TimeUsed:           e.Rules.Duration - st.TimeRemaining,
		FinalBudget:        st.Budget,
		Percentages:        st.Percentages.clone(),
		SelectedChallenges: saved,
		PhoneCallAnswered:  st.PhoneCallAnswered,
		TotemID:            totemID,
	}, true
}
