package mayor

import "math"

// Rules are the tunable game parameters, fixed for the lifetime of a session.
type Rules struct {
	InitialBudget   int `json:"initialBudget"`
	Duration        int `json:"duration"` // seconds
	WinThreshold    int `json:"winThreshold"`
	BudgetTolerance int `json:"budgetTolerance"` // max unspent budget at finish
	FirstCallAt     int `json:"firstCallAt"`     // seconds remaining
	SecondCallAt    int `json:"secondCallAt"`
	PenaltyFirst    int `json:"penaltyFirst"`
	PenaltySecond   int `json:"penaltySecond"`
	SpeedupAt       int `json:"speedupAt"`
}

func DefaultRules() Rules {
	return Rules{
		InitialBudget:   450000,
		Duration:        120,
		WinThreshold:    50,
		BudgetTolerance: 25000,
		FirstCallAt:     90,
		SecondCallAt:    60,
		PenaltyFirst:    10,
		PenaltySecond:   15,
		SpeedupAt:       30,
	}
}

// Penalty returns the time penalty for answering phone call n.
func (r Rules) Penalty(n int) int {
	if n == 2 {
		return r.PenaltySecond
	}
	return r.PenaltyFirst
}

// Percentages maps category id to completion percentage in [0,100].
type Percentages map[string]int

func (p Percentages) clone() Percentages {
	out := make(Percentages, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Engine holds the pure scoring functions. It never mutates anything.
type Engine struct {
	Catalog *Catalog
	Rules   Rules
}

func NewEngine(c *Catalog, r Rules) *Engine {
	return &Engine{Catalog: c, Rules: r}
}

func (e *Engine) zero() Percentages {
	p := make(Percentages, len(e.Catalog.categories))
	for _, cat := range e.Catalog.categories {
		p[cat.ID] = 0
	}
	return p
}

// Percentages sums contributions per category and caps each total at 100.
// Unknown challenge ids are ignored.
func (e *Engine) Percentages(selected []string) Percentages {
	p := e.zero()
	for _, id := range selected {
		ch, ok := e.Catalog.ChallengeByID(id)
		if !ok {
			continue
		}
		if _, ok := p[ch.CategoryID]; ok {
			p[ch.CategoryID] += ch.Contribution
		}
	}
	for k, v := range p {
		if v > 100 {
			p[k] = 100
		}
	}
	return p
}

func (e *Engine) TotalCost(selected []string) int {
	total := 0
	for _, id := range selected {
		if ch, ok := e.Catalog.ChallengeByID(id); ok {
			total += ch.Cost
		}
	}
	return total
}

func (e *Engine) CanSelect(ch Challenge, budget int) bool {
	return budget >= ch.Cost
}

// Won reports whether both finish conditions hold: unspent budget within
// tolerance and every category at or above the win threshold.
func (e *Engine) Won(budget int, pct Percentages) bool {
	if budget > e.Rules.BudgetTolerance {
		return false
	}
	for _, cat := range e.Catalog.categories {
		if pct[cat.ID] < e.Rules.WinThreshold {
			return false
		}
	}
	return true
}

func (e *Engine) average(pct Percentages) float64 {
	n := len(e.Catalog.categories)
	if n == 0 {
		return 0
	}
	sum := 0
	for _, cat := range e.Catalog.categories {
		sum += pct[cat.ID]
	}
	return float64(sum) / float64(n)
}

// Score returns the final score in [0,1000]. A timeout earns at most 500
// points from category completion alone; a win adds up to 500 for time left.
func (e *Engine) Score(timeUsed int, pct Percentages, result Status) int {
	categoryScore := e.average(pct) / 100 * 500
	if result != StatusWon {
		return int(math.Round(categoryScore))
	}

	d := e.Rules.Duration
	if d <= 0 {
		return int(math.Round(categoryScore))
	}
	bonus := min(max(d-timeUsed, 0), d)
	return int(math.Round(float64(bonus)/float64(d)*500 + categoryScore))
}

// CategoryGap describes a category still below the win threshold.
type CategoryGap struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Percent    int    `json:"percent"`
	Missing    int    `json:"missing"`
}

// Shortfall explains why a finish attempt would be rejected.
type Shortfall struct {
	BudgetOver int           `json:"budgetOver"`
	Categories []CategoryGap `json:"categories"`
}

func (s Shortfall) Empty() bool {
	return s.BudgetOver == 0 && len(s.Categories) == 0
}

func (e *Engine) Shortfall(budget int, pct Percentages) Shortfall {
	s := Shortfall{Categories: []CategoryGap{}}
	if budget > e.Rules.BudgetTolerance {
		s.BudgetOver = budget - e.Rules.BudgetTolerance
	}
	for _, cat := range e.Catalog.categories {
		if got := pct[cat.ID]; got < e.Rules.WinThreshold {
			s.Categories = append(s.Categories, CategoryGap{
				CategoryID: cat.ID,
				Name:       cat.Name,
				Percent:    got,
				Missing:    e.Rules.WinThreshold - got,
			})
		}
	}
	return s
}
