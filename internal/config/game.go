package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/playperu/mayorkiosk/internal/mayor"
)

// FieldError reports the configuration field that stopped startup.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config validation error at '%s': %s", e.Field, e.Msg)
}

// GameFile is the on-disk game configuration. Unknown sections (strings,
// brand assets) belong to the front-end and are ignored here.
type GameFile struct {
	Version    string            `json:"version"`
	GameParams *GameParams       `json:"gameParams" validate:"required"`
	Categories []CategoryConfig  `json:"categories" validate:"required,min=1,dive"`
	Challenges []ChallengeConfig `json:"challenges" validate:"required,min=1,dive"`
}

type GameParams struct {
	TimerSeconds          int               `json:"timerSeconds" validate:"gt=0"`
	TotalBudget           int               `json:"totalBudget" validate:"gt=0"`
	MinCategoryThreshold  *int              `json:"minCategoryThreshold" validate:"required,min=0,max=100"`
	BudgetTolerance       *int              `json:"budgetTolerance" validate:"omitempty,min=0"`
	LateAudioSpeedupStart *int              `json:"lateAudioSpeedupStart" validate:"omitempty,min=0"`
	InspectorateEvent     InspectorateEvent `json:"inspectorateEvent"`
}

type InspectorateEvent struct {
	FirstAt       int `json:"firstAt" validate:"gt=0"`
	SecondAt      int `json:"secondAt" validate:"gt=0,ltfield=FirstAt"`
	PenaltyFirst  int `json:"penaltyFirst" validate:"min=0"`
	PenaltySecond int `json:"penaltySecond" validate:"min=0"`
}

type CategoryConfig struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label" validate:"required"`
	Color string `json:"color"`
}

type ChallengeConfig struct {
	ID           string `json:"id" validate:"required"`
	Title        string `json:"title" validate:"required"`
	ShortDesc    string `json:"shortDesc"`
	Cost         int    `json:"cost" validate:"min=0"`
	Category     string `json:"category" validate:"required"`
	Contribution int    `json:"contribution" validate:"min=0,max=100"`
}

// Game is the validated catalog and rules for the kiosk.
type Game struct {
	Rules   mayor.Rules
	Catalog *mayor.Catalog
}

// DefaultGame is used when no game config file is configured.
func DefaultGame() *Game {
	return &Game{Rules: mayor.DefaultRules(), Catalog: mayor.DefaultCatalog()}
}

// LoadGame reads and validates the game config at path. An empty path
// selects the built-in game.
func LoadGame(path string) (*Game, error) {
	if path == "" {
		return DefaultGame(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading game config: %w", err)
	}
	return ParseGame(data)
}

func ParseGame(data []byte) (*Game, error) {
	var f GameFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding game config: %w", err)
	}
	if err := validateGame(&f); err != nil {
		return nil, err
	}
	return f.build(), nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateGame(f *GameFile) error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return fmt.Errorf("validating game config: %w", err)
	}

	p := f.GameParams
	if p.InspectorateEvent.FirstAt >= p.TimerSeconds {
		return &FieldError{Field: "gameParams.inspectorateEvent.firstAt", Msg: "must be less than timerSeconds"}
	}

	seen := make(map[string]bool, len(f.Categories))
	for _, c := range f.Categories {
		if seen[c.ID] {
			return &FieldError{Field: "categories[].id", Msg: "duplicate category id: " + c.ID}
		}
		seen[c.ID] = true
	}

	ids := make(map[string]bool, len(f.Challenges))
	for _, ch := range f.Challenges {
		if ids[ch.ID] {
			return &FieldError{Field: "challenges[].id", Msg: "duplicate challenge id: " + ch.ID}
		}
		ids[ch.ID] = true
		if !seen[ch.Category] {
			return &FieldError{
				Field: fmt.Sprintf("challenges[%s].category", ch.ID),
				Msg:   "unknown category id: " + ch.Category,
			}
		}
	}
	return nil
}

func fieldError(fe validator.FieldError) *FieldError {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "gt":
		msg = "must be greater than " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			msg = "must have at least " + fe.Param() + " entries"
		} else {
			msg = "must be at least " + fe.Param()
		}
	case "max":
		msg = "must be at most " + fe.Param()
	case "ltfield":
		msg = "must be less than " + fe.Param()
	default:
		msg = "failed " + fe.Tag() + " check"
	}
	return &FieldError{Field: field, Msg: msg}
}

func (f *GameFile) build() *Game {
	p := f.GameParams
	def := mayor.DefaultRules()

	rules := mayor.Rules{
		InitialBudget:   p.TotalBudget,
		Duration:        p.TimerSeconds,
		WinThreshold:    *p.MinCategoryThreshold,
		BudgetTolerance: min(def.BudgetTolerance, p.TotalBudget),
		FirstCallAt:     p.InspectorateEvent.FirstAt,
		SecondCallAt:    p.InspectorateEvent.SecondAt,
		PenaltyFirst:    p.InspectorateEvent.PenaltyFirst,
		PenaltySecond:   p.InspectorateEvent.PenaltySecond,
		SpeedupAt:       def.SpeedupAt,
	}
	if p.BudgetTolerance != nil {
		rules.BudgetTolerance = *p.BudgetTolerance
	}
	if p.LateAudioSpeedupStart != nil {
		rules.SpeedupAt = *p.LateAudioSpeedupStart
	}

	cats := make([]mayor.Category, len(f.Categories))
	for i, c := range f.Categories {
		cats[i] = mayor.Category{ID: c.ID, Name: c.Label, Color: c.Color}
	}
	chs := make([]mayor.Challenge, len(f.Challenges))
	for i, c := range f.Challenges {
		chs[i] = mayor.Challenge{
			ID:           c.ID,
			Name:         c.Title,
			Description:  c.ShortDesc,
			Cost:         c.Cost,
			CategoryID:   c.Category,
			Contribution: c.Contribution,
		}
	}

	return &Game{Rules: rules, Catalog: mayor.NewCatalog(cats, chs)}
}
