package main

import (
	"context"
	"errors"
	"testing"

	"usely-backend/internal/shared/storage/db"
)

func TestRootCommandListsSubcommands(t *testing.T) {
	cmd := rootCommand()
	want := map[string]bool{"up": false, "down": false, "status": false, "version": false}
	for _, sub := range cmd.Commands {
		want[sub.Name] = true
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestUpWithoutDatabaseURLFails(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	err := rootCommand().Run(context.Background(), []string{"migrate", "up"})
	if !errors.Is(err, db.ErrNoDatabaseURL) {
		t.Fatalf("expected ErrNoDatabaseURL, got %v", err)
	}
}
