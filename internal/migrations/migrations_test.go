package migrations_test

import (
	"context"
	"testing"

	"github.com/playperu/mayorkiosk/internal/database"
	"github.com/playperu/mayorkiosk/internal/migrations"
)

func TestMigrations(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	want := []string{"game_results", "settings", "admin_sessions"}

	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}

func TestResultCheckConstraint(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	if err := migrations.Run(db); err != nil {
		t.Fatal(err)
	}

	_, err = db.Exec(`INSERT INTO game_results (id, result, score, created_at, data) VALUES ('x', 'playing', 0, '2024-01-01', '{}')`)
	if err == nil {
		t.Error("expected CHECK constraint to reject non-terminal result")
	}
}
