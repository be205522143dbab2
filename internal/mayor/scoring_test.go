package mayor_test

import (
	"reflect"
	"testing"

	"github.com/playperu/mayorkiosk/internal/mayor"
)

func defaultEngine() *mayor.Engine {
	return mayor.NewEngine(mayor.DefaultCatalog(), mayor.DefaultRules())
}

// abcEngine has three categories a, b, c with one challenge each, plus
// heavy challenges that overflow category a.
func abcEngine() *mayor.Engine {
	cats := []mayor.Category{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}}
	chs := []mayor.Challenge{
		{ID: "a1", Cost: 100, CategoryID: "a", Contribution: 60},
		{ID: "a2", Cost: 100, CategoryID: "a", Contribution: 70},
		{ID: "a3", Cost: 100, CategoryID: "a", Contribution: 90},
		{ID: "b1", Cost: 50, CategoryID: "b", Contribution: 30},
		{ID: "c1", Cost: 0, CategoryID: "c", Contribution: 0},
	}
	return mayor.NewEngine(mayor.NewCatalog(cats, chs), mayor.DefaultRules())
}

func TestPercentages(t *testing.T) {
	e := defaultEngine()

	tests := []struct {
		name     string
		selected []string
		want     mayor.Percentages
	}{
		{"empty", nil, mayor.Percentages{"ddiv": 0, "cec": 0, "cvcs": 0}},
		{"single", []string{"a1"}, mayor.Percentages{"ddiv": 20, "cec": 0, "cvcs": 0}},
		{"mixed", []string{"a1", "e4", "i10"}, mayor.Percentages{"ddiv": 20, "cec": 45, "cvcs": 30}},
		{"unknown ignored", []string{"zz", "a7"}, mayor.Percentages{"ddiv": 25, "cec": 0, "cvcs": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Percentages(tt.selected)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Percentages(%v) = %v, want %v", tt.selected, got, tt.want)
			}
		})
	}
}

func TestPercentagesOrderIndependent(t *testing.T) {
	e := defaultEngine()
	a := e.Percentages([]string{"a1", "e2", "i3", "a7"})
	b := e.Percentages([]string{"a7", "i3", "e2", "a1"})
	if !reflect.DeepEqual(a, b) {
		t.Errorf("permutations differ: %v vs %v", a, b)
	}
	if again := e.Percentages([]string{"a1", "e2", "i3", "a7"}); !reflect.DeepEqual(a, again) {
		t.Errorf("repeated call differs: %v vs %v", a, again)
	}
}

func TestPercentagesClamp(t *testing.T) {
	e := abcEngine()
	got := e.Percentages([]string{"a1", "a2", "a3", "b1"})
	if got["a"] != 100 {
		t.Errorf("a = %d, want 100", got["a"])
	}
	if got["b"] != 30 {
		t.Errorf("b = %d, want 30", got["b"])
	}

	all := e.Percentages([]string{"a1", "a2", "a3", "b1", "c1"})
	for id, v := range all {
		if v > 100 || v < 0 {
			t.Errorf("%s = %d, out of [0,100]", id, v)
		}
	}
}

func TestTotalCost(t *testing.T) {
	e := defaultEngine()
	if got := e.TotalCost(nil); got != 0 {
		t.Errorf("TotalCost(nil) = %d, want 0", got)
	}
	if got := e.TotalCost([]string{"a1", "e4", "nope"}); got != 145000 {
		t.Errorf("TotalCost = %d, want 145000", got)
	}
}

func TestWon(t *testing.T) {
	e := defaultEngine()

	tests := []struct {
		name   string
		budget int
		pct    mayor.Percentages
		want   bool
	}{
		{"both conditions met", 20000, mayor.Percentages{"ddiv": 60, "cec": 55, "cvcs": 50}, true},
		{"budget too high", 30000, mayor.Percentages{"ddiv": 100, "cec": 100, "cvcs": 100}, false},
		{"one category short", 0, mayor.Percentages{"ddiv": 50, "cec": 49, "cvcs": 80}, false},
		{"exactly at tolerance", 25000, mayor.Percentages{"ddiv": 50, "cec": 50, "cvcs": 50}, true},
		{"missing category counts as zero", 0, mayor.Percentages{"ddiv": 90, "cec": 90}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Won(tt.budget, tt.pct); got != tt.want {
				t.Errorf("Won(%d, %v) = %v, want %v", tt.budget, tt.pct, got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	e := abcEngine()

	tests := []struct {
		name     string
		timeUsed int
		pct      mayor.Percentages
		result   mayor.Status
		want     int
	}{
		{"won half time", 60, mayor.Percentages{"a": 100, "b": 100, "c": 100}, mayor.StatusWon, 750},
		{"timeout", 0, mayor.Percentages{"a": 40, "b": 40, "c": 40}, mayor.StatusTimeout, 200},
		{"won instantly", 0, mayor.Percentages{"a": 100, "b": 100, "c": 100}, mayor.StatusWon, 1000},
		{"won at the buzzer", 120, mayor.Percentages{"a": 50, "b": 50, "c": 50}, mayor.StatusWon, 250},
		{"time used beyond duration clamps", 200, mayor.Percentages{"a": 50, "b": 50, "c": 50}, mayor.StatusWon, 250},
		{"rounding", 0, mayor.Percentages{"a": 51, "b": 50, "c": 50}, mayor.StatusTimeout, 252},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Score(tt.timeUsed, tt.pct, tt.result); got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestShortfall(t *testing.T) {
	e := defaultEngine()

	s := e.Shortfall(40000, mayor.Percentages{"ddiv": 70, "cec": 42, "cvcs": 10})
	if s.BudgetOver != 15000 {
		t.Errorf("BudgetOver = %d, want 15000", s.BudgetOver)
	}
	if len(s.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(s.Categories))
	}
	if s.Categories[0].CategoryID != "cec" || s.Categories[0].Missing != 8 {
		t.Errorf("first gap = %+v, want cec missing 8", s.Categories[0])
	}
	if s.Categories[1].CategoryID != "cvcs" || s.Categories[1].Missing != 40 {
		t.Errorf("second gap = %+v, want cvcs missing 40", s.Categories[1])
	}

	if ok := e.Shortfall(0, mayor.Percentages{"ddiv": 50, "cec": 50, "cvcs": 50}); !ok.Empty() {
		t.Errorf("expected empty shortfall, got %+v", ok)
	}
}
