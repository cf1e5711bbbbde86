package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/drivesound/drivesound/internal/config"
	"github.com/drivesound/drivesound/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type evaluation struct {
	SampleID string         `json:"sample_id"`
	Scores   map[string]int `json:"sd_scores"`
}

func completedSnapshot(t *testing.T, id string) session.Snapshot {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	s := session.New(session.GroupB, session.WithID(id), session.WithClock(clock))
	s.SetStimulusOrder([]string{"Fit", "Prius"})
	s.Responses().Save("consent", map[string]bool{"participation": true})
	s.Responses().Save("evaluation_Fit", evaluation{SampleID: "Fit", Scores: map[string]int{"volume": -2}})
	if err := s.MarkComplete(); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}
	return s.Snapshot()
}

type backend struct {
	name string
	open func(t *testing.T) Gateway
}

func backends() []backend {
	return []backend{
		{"file", func(t *testing.T) Gateway {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "responses"))
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}
			return s
		}},
		{"sqlite", func(t *testing.T) Gateway {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "responses.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore failed: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestPersistAndLoad(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			gw := b.open(t)
			snap := completedSnapshot(t, "sess-1")
			if err := gw.Persist(snap); err != nil {
				t.Fatalf("Persist failed: %v", err)
			}

			rec, err := gw.Load("sess-1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if rec == nil {
				t.Fatal("Load returned nil record")
			}
			if rec.SessionID != "sess-1" || rec.Group != session.GroupB || !rec.Completed {
				t.Errorf("record = %+v", rec)
			}
			if rec.SavedAt.IsZero() {
				t.Error("saved_at not set")
			}
			if diff := cmp.Diff([]string{"Fit", "Prius"}, rec.StimulusOrder); diff != "" {
				t.Errorf("stimulus order mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(snap.Responses.Keys(), rec.Responses.Keys()); diff != "" {
				t.Errorf("response keys mismatch (-want +got):\n%s", diff)
			}

			var ev evaluation
			if ok, err := rec.Responses.Decode("evaluation_Fit", &ev); !ok || err != nil {
				t.Fatalf("Decode = %v, %v", ok, err)
			}
			if ev.Scores["volume"] != -2 {
				t.Errorf("volume = %d, want -2", ev.Scores["volume"])
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			rec, err := b.open(t).Load("nope")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if rec != nil {
				t.Errorf("got %+v, want nil", rec)
			}
		})
	}
}

func TestPersistReplaces(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			gw := b.open(t)
			snap := completedSnapshot(t, "sess-1")
			if err := gw.Persist(snap); err != nil {
				t.Fatalf("Persist failed: %v", err)
			}
			snap.Responses.Save("overall_impression", map[string]string{"impression": "fine"})
			if err := gw.Persist(snap); err != nil {
				t.Fatalf("second Persist failed: %v", err)
			}

			all, err := gw.LoadAll()
			if err != nil {
				t.Fatalf("LoadAll failed: %v", err)
			}
			if len(all) != 1 {
				t.Fatalf("got %d records, want 1", len(all))
			}
			if !all[0].Responses.Has("overall_impression") {
				t.Error("second write not visible")
			}
		})
	}
}

func TestConcurrentPersist(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			gw := b.open(t)
			const n = 20
			snaps := make([]session.Snapshot, n)
			for i := range snaps {
				snaps[i] = completedSnapshot(t, fmt.Sprintf("sess-%02d", i))
			}

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := range snaps {
				wg.Add(1)
				go func(snap session.Snapshot) {
					defer wg.Done()
					if err := gw.Persist(snap); err != nil {
						errs <- err
					}
				}(snaps[i])
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Errorf("Persist failed: %v", err)
			}

			all, err := gw.LoadAll()
			if err != nil {
				t.Fatalf("LoadAll failed: %v", err)
			}
			if len(all) != n {
				t.Errorf("got %d records, want %d", len(all), n)
			}
		})
	}
}

func TestInvalidID(t *testing.T) {
	gw, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	for _, id := range []string{"", "../escape", `a\b`, ".hidden"} {
		snap := completedSnapshot(t, "ok")
		snap.SessionID = id
		if err := gw.Persist(snap); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Persist(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestFileLoadAllSkipsTempAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	gw, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := gw.Persist(completedSnapshot(t, "sess-1")); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	for name, content := range map[string]string{
		".sess-2-123.tmp": "{partial",
		"notes.txt":       "hello",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	all, err := gw.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(all) != 1 || all[0].SessionID != "sess-1" {
		t.Errorf("LoadAll = %+v, want only sess-1", all)
	}
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()

	gw, err := Open(cfg, root)
	if err != nil {
		t.Fatalf("Open(file) failed: %v", err)
	}
	fs, ok := gw.(*FileStore)
	if !ok {
		t.Fatalf("Open(file) returned %T", gw)
	}
	if want := filepath.Join(root, "data", "responses"); fs.Dir() != want {
		t.Errorf("dir = %s, want %s", fs.Dir(), want)
	}

	cfg.Storage.Backend = config.BackendSQLite
	gw, err = Open(cfg, root)
	if err != nil {
		t.Fatalf("Open(sqlite) failed: %v", err)
	}
	defer func() { _ = gw.Close() }()
	if _, ok := gw.(*SQLiteStore); !ok {
		t.Errorf("Open(sqlite) returned %T", gw)
	}
	if _, err := os.Stat(filepath.Join(root, "data", "responses.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	cfg.Storage.Backend = "mongo"
	if _, err := Open(cfg, root); err == nil {
		t.Error("Open(mongo): expected error")
	}
}
