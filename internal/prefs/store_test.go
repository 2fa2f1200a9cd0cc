package prefs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ai-diet-planner/internal/database"
	"ai-diet-planner/internal/render"
)

func openStore(t *testing.T, path string) (*Store, *database.DB) {
	t.Helper()
	db, err := database.NewDB(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return NewStore(db.SQL), db
}

func TestStore_APIKey(t *testing.T) {
	ctx := context.Background()
	store, db := openStore(t, filepath.Join(t.TempDir(), "prefs.db"))
	defer db.Close()

	key, err := store.APIKey(ctx, "c1")
	if err != nil || key != "" {
		t.Fatalf("Expected no key, got '%s' (%v)", key, err)
	}

	if err := store.SaveAPIKey(ctx, "c1", "  AIza-test  "); err != nil {
		t.Fatalf("SaveAPIKey failed: %v", err)
	}
	if key, _ := store.APIKey(ctx, "c1"); key != "AIza-test" {
		t.Errorf("Expected trimmed key, got '%s'", key)
	}

	if err := store.SaveAPIKey(ctx, "c1", "   "); !errors.Is(err, ErrEmptyAPIKey) {
		t.Errorf("Expected ErrEmptyAPIKey, got %v", err)
	}
	if key, _ := store.APIKey(ctx, "c1"); key != "AIza-test" {
		t.Errorf("Expected stored key untouched, got '%s'", key)
	}

	if key, _ := store.APIKey(ctx, "c2"); key != "" {
		t.Errorf("Expected keys to be per client, got '%s'", key)
	}
}

func TestStore_Theme(t *testing.T) {
	ctx := context.Background()
	store, db := openStore(t, filepath.Join(t.TempDir(), "prefs.db"))
	defer db.Close()

	theme, err := store.Theme(ctx, "c1")
	if err != nil || theme != render.ThemeDark {
		t.Errorf("Expected dark by default, got %s (%v)", theme, err)
	}

	if err := store.SaveTheme(ctx, "c1", render.ThemeLight); err != nil {
		t.Fatal(err)
	}
	if theme, _ := store.Theme(ctx, "c1"); theme != render.ThemeLight {
		t.Errorf("Expected light, got %s", theme)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")

	store, db := openStore(t, path)
	if err := store.SaveAPIKey(ctx, "c1", "persisted"); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTheme(ctx, "c1", render.ThemeLight); err != nil {
		t.Fatal(err)
	}
	db.Close()

	reopened, db2 := openStore(t, path)
	defer db2.Close()

	if key, _ := reopened.APIKey(ctx, "c1"); key != "persisted" {
		t.Errorf("Expected key after reopen, got '%s'", key)
	}
	if theme, _ := reopened.Theme(ctx, "c1"); theme != render.ThemeLight {
		t.Errorf("Expected light after reopen, got %s", theme)
	}
}
