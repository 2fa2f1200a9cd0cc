package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-diet-planner/internal/database"
	"ai-diet-planner/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStore_DailyUsage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	meta := shared.AgentMeta{
		AgentName: "Nutritionist",
		Surface:   "web",
		Usage:     shared.TokenUsage{PromptTokens: 100, CompletionTokens: 400, Model: "gemini-2.5-flash-lite"},
		Latency:   1200 * time.Millisecond,
	}
	if err := store.RecordMeta(ctx, meta); err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}
	if err := store.RecordMeta(ctx, meta); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordFailure(ctx, shared.AgentMeta{AgentName: "Nutritionist"}, shared.KindRateLimited); err != nil {
		t.Fatal(err)
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected one day, got %d", len(usage))
	}

	day := usage[0]
	if day.Date != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("Expected today, got %s", day.Date)
	}
	if day.TotalExecution != 3 || day.TotalPrompt != 200 || day.TotalCompletion != 800 || day.Failures != 1 {
		t.Errorf("Unexpected totals %+v", day)
	}
}

func TestStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	old := ExecutionMetric{AgentName: "Nutritionist", Timestamp: time.Now().AddDate(0, 0, -40)}
	if err := store.Record(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, ExecutionMetric{AgentName: "Nutritionist"}); err != nil {
		t.Fatal(err)
	}

	n, err := store.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 row removed, got %d", n)
	}

	usage, _ := store.GetDailyUsage(ctx, 90)
	if len(usage) != 1 || usage[0].TotalExecution != 1 {
		t.Errorf("Expected only the recent record, got %+v", usage)
	}
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plans.db"), make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "wal"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "wal", "plans.db-wal"), make([]byte, 1024), 0o644); err != nil {
		t.Fatal(err)
	}

	health := GetSysHealth(filepath.Join(dir, "plans.db"))
	if health.DataDiskSize != "3.0 KiB" {
		t.Errorf("Expected 3.0 KiB of data, got %s", health.DataDiskSize)
	}
	if health.Goroutines < 1 || health.SysMB == 0 {
		t.Errorf("Expected live runtime figures, got %+v", health)
	}

	if got := GetSysHealth(filepath.Join(dir, "missing", "x.db")).DataDiskSize; got != "0 B" {
		t.Errorf("Expected 0 B for a missing directory, got %s", got)
	}
}
