// Package results persists finished games for the kiosk: the append-only
// result log, totem identity, statistics and exports.
package results

import (
	"context"
	"errors"

	"github.com/playperu/mayorkiosk/internal/mayor"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrTotemLocked = errors.New("totem id already set")
)

// DefaultTotemID is reported until an operator assigns one.
const DefaultTotemID = "0"

// Record is a stored game result together with the score it earned.
type Record struct {
	mayor.GameResult
	Score int `json:"score"`
}

type Stats struct {
	Total   int `json:"totalGames"`
	Won     int `json:"wonGames"`
	Timeout int `json:"timeoutGames"`
}

// Store is the persistence sink for finished games. Records are only ever
// appended; Clear is the single destructive operation.
type Store interface {
	Append(ctx context.Context, r Record) error
	List(ctx context.Context) ([]Record, error)
	Stats(ctx context.Context) (Stats, error)
	Scores(ctx context.Context) ([]int, error)
	Clear(ctx context.Context) error

	TotemID(ctx context.Context) (string, error)
	SetTotemID(ctx context.Context, id string) error
	ResetTotemID(ctx context.Context) error
}
