package migrations_test

import (
	"context"
	"testing"

	"github.com/playperu/reflexduel/internal/database"
	"github.com/playperu/reflexduel/internal/migrations"
)

func TestMigrations(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	// Verify all tables exist by querying sqlite_master.
	want := []string{"participants", "sessions", "reward_credits"}

	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}

	var index string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='sessions_waiting_join_code'",
	).Scan(&index)
	if err != nil {
		t.Errorf("partial join code index not found: %v", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := migrations.Run(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}
