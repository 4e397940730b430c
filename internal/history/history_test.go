package history_test

import (
	"path/filepath"
	"testing"
	"time"

	. "github.com/st3v3nmw/raftcheck/internal/history"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestRecords(t *testing.T) {
	store := openStore(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Added out of order; read back by time
	records := []Record{
		{RunID: "b", Path: "scenarios/leader.json", Outcome: "fail", Reason: "leaders: expected 1, got 2", Duration: 3 * time.Second, At: start.Add(time.Minute)},
		{RunID: "a", Path: "scenarios/leader.json", Outcome: "pass", Passed: true, Duration: 2 * time.Second, At: start},
		{RunID: "a", Path: "scenarios/log.json", Outcome: "pass", Passed: true, At: start},
	}
	for _, r := range records {
		if err := store.Add(r); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	got, err := store.Records("scenarios/leader.json")
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}

	if got[0].RunID != "a" || !got[0].Passed || got[0].Duration != 2*time.Second || !got[0].At.Equal(start) {
		t.Errorf("first record = %+v", got[0])
	}

	if got[1].Outcome != "fail" || got[1].Reason != "leaders: expected 1, got 2" {
		t.Errorf("second record = %+v", got[1])
	}

	none, err := store.Records("scenarios/unknown.json")
	if err != nil || len(none) != 0 {
		t.Errorf("Records(unknown) = %v, %v", none, err)
	}
}

func TestSummaries(t *testing.T) {
	store := openStore(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	outcomes := map[string][]bool{
		"b.json": {true, true, true},
		"a.json": {true, false, true},
		"c.json": {false, false},
	}
	for path, passes := range outcomes {
		for i, passed := range passes {
			outcome := "fail"
			if passed {
				outcome = "pass"
			}

			r := Record{RunID: "run", Path: path, Outcome: outcome, Passed: passed, At: start.Add(time.Duration(i) * time.Hour)}
			if err := store.Add(r); err != nil {
				t.Fatal(err)
			}
		}
	}

	summaries, err := store.Summaries()
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}

	tests := []struct {
		path   string
		runs   int
		passes int
		last   string
		flaky  bool
	}{
		{"a.json", 3, 2, "pass", true},
		{"b.json", 3, 3, "pass", false},
		{"c.json", 2, 0, "fail", false},
	}

	if len(summaries) != len(tests) {
		t.Fatalf("got %d summaries, want %d", len(summaries), len(tests))
	}

	for i, tt := range tests {
		s := summaries[i]
		if s.Path != tt.path || s.Runs != tt.runs || s.Passes != tt.passes || s.Last != tt.last || s.Flaky() != tt.flaky {
			t.Errorf("summary %d = %+v (flaky %v), want %+v", i, s, s.Flaky(), tt)
		}
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Add(Record{RunID: "a", Path: "x.json", Outcome: "pass", Passed: true, At: time.Now()}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	records, err := store.Records("x.json")
	if err != nil || len(records) != 1 {
		t.Errorf("Records after reopen = %v, %v", records, err)
	}
}
