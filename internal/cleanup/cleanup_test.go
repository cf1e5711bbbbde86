package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drivesound/drivesound/internal/export"
)

// createMockExport writes an export file named for ts.
func createMockExport(t *testing.T, dir, columns string, ts time.Time) string {
	t.Helper()
	name := export.FileName(columns, ts)
	if err := os.WriteFile(filepath.Join(dir, name), []byte("session_id\n"), 0644); err != nil {
		t.Fatalf("creating mock export %s: %v", name, err)
	}
	return name
}

func TestExportTime(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"responses_20260301_101500.csv", true},
		{"sd_scores_20260301_101500.csv", true},
		{"responses_20260301_101500.xlsx", false},
		{"responses-20260301_101500.csv", false},
		{"20260301_101500.csv", false},
		{"responses_2026030_101500.csv", false},
		{"notes.csv", false},
	}
	for _, tt := range tests {
		if _, ok := exportTime(tt.name); ok != tt.ok {
			t.Errorf("exportTime(%q) ok = %v, want %v", tt.name, ok, tt.ok)
		}
	}
}

func TestPruneByAge_RemovesOldExports(t *testing.T) {
	dir := t.TempDir()

	now := time.Now()
	old := createMockExport(t, dir, export.ColumnsAll, now.AddDate(0, 0, -60))
	recent := createMockExport(t, dir, export.ColumnsSD, now.AddDate(0, 0, -5))

	pruned, err := PruneByAge(dir, 30, false)
	if err != nil {
		t.Fatalf("PruneByAge failed: %v", err)
	}

	if len(pruned) != 1 || pruned[0] != old {
		t.Errorf("expected pruned=[%s], got %v", old, pruned)
	}
	if _, err := os.Stat(filepath.Join(dir, old)); !os.IsNotExist(err) {
		t.Errorf("expected %s to be deleted", old)
	}
	if _, err := os.Stat(filepath.Join(dir, recent)); err != nil {
		t.Errorf("expected %s to still exist: %v", recent, err)
	}
}

func TestPruneByAge_DryRun(t *testing.T) {
	dir := t.TempDir()
	old := createMockExport(t, dir, export.ColumnsAll, time.Now().AddDate(0, 0, -60))

	pruned, err := PruneByAge(dir, 30, true)
	if err != nil {
		t.Fatalf("PruneByAge dry-run failed: %v", err)
	}
	if len(pruned) != 1 || pruned[0] != old {
		t.Errorf("expected pruned=[%s], got %v", old, pruned)
	}
	if _, err := os.Stat(filepath.Join(dir, old)); err != nil {
		t.Errorf("expected %s to still exist in dry-run: %v", old, err)
	}
}

func TestPruneByAge_SkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.csv"), []byte("x"), 0644); err != nil {
		t.Fatalf("creating file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "responses_20000101_000000.csv"), 0755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}

	pruned, err := PruneByAge(dir, 1, false)
	if err != nil {
		t.Fatalf("PruneByAge failed: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected nothing pruned, got %v", pruned)
	}
}

func TestPruneByAge_NonexistentDir(t *testing.T) {
	pruned, err := PruneByAge("/nonexistent/path", 30, false)
	if err != nil {
		t.Fatalf("expected nil error for nonexistent dir, got: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected empty pruned list, got %v", pruned)
	}
}

func TestPruneKeepRecent_KeepsCorrectCount(t *testing.T) {
	dir := t.TempDir()

	now := time.Now()
	f1 := createMockExport(t, dir, export.ColumnsSD, now.AddDate(0, 0, -4))
	f2 := createMockExport(t, dir, export.ColumnsAll, now.AddDate(0, 0, -3))
	_ = createMockExport(t, dir, export.ColumnsAll, now.AddDate(0, 0, -2))
	_ = createMockExport(t, dir, export.ColumnsSD, now.AddDate(0, 0, -1))

	pruned, err := PruneKeepRecent(dir, 2, false)
	if err != nil {
		t.Fatalf("PruneKeepRecent failed: %v", err)
	}
	if len(pruned) != 2 {
		t.Fatalf("expected 2 pruned, got %d: %v", len(pruned), pruned)
	}
	if pruned[0] != f1 || pruned[1] != f2 {
		t.Errorf("expected pruned=[%s, %s], got %v", f1, f2, pruned)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected 2 remaining files, got %d", len(entries))
	}
}

func TestPruneKeepRecent_DryRun(t *testing.T) {
	dir := t.TempDir()

	now := time.Now()
	f1 := createMockExport(t, dir, export.ColumnsAll, now.AddDate(0, 0, -3))
	createMockExport(t, dir, export.ColumnsAll, now.AddDate(0, 0, -1))

	pruned, err := PruneKeepRecent(dir, 1, true)
	if err != nil {
		t.Fatalf("PruneKeepRecent dry-run failed: %v", err)
	}
	if len(pruned) != 1 || pruned[0] != f1 {
		t.Errorf("expected pruned=[%s], got %v", f1, pruned)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected 2 files to remain in dry-run, got %d", len(entries))
	}
}
