package normdb

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/streamnorm/internal/testutil"
	"github.com/banshee-data/streamnorm/norm"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordRunRoundTrip(t *testing.T) {
	db := openTestDB(t)

	cfg := norm.Config{Window: 384, SIMD: 4, Epsilon: 1e-5}
	id, err := db.RecordRun("layer", cfg)
	testutil.AssertNoError(t, err)
	if id == "" {
		t.Fatal("RecordRun returned empty id")
	}

	runs, err := db.Runs()
	testutil.AssertNoError(t, err)
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	r := runs[0]
	if r.ID != id || r.Variant != "layer" || r.Window != 384 || r.SIMD != 4 || r.Epsilon != 1e-5 {
		t.Errorf("run round trip mismatch: %+v", r)
	}
	if r.Created.IsZero() {
		t.Error("run created timestamp not set")
	}
}

func TestWindowStatsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	id, err := db.RecordRun("rms", norm.Config{Window: 128, SIMD: 32, Epsilon: 1e-5})
	testutil.AssertNoError(t, err)

	want := []norm.WindowStats{
		{Index: 0, MeanSquare: 5376.0},
		{Index: 1, MeanSquare: 5377.5},
		{Index: 2, MeanSquare: 5375.25},
	}
	for _, ws := range want {
		testutil.AssertNoError(t, db.RecordWindowStats(id, ws))
	}

	got, err := db.WindowStats(id)
	testutil.AssertNoError(t, err)
	if len(got) != len(want) {
		t.Fatalf("got %d window stats, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("window %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWindowStatsIsolatedPerRun(t *testing.T) {
	db := openTestDB(t)

	id1, err := db.RecordRun("layer", norm.Config{Window: 64, SIMD: 8, Epsilon: 1e-5})
	testutil.AssertNoError(t, err)
	id2, err := db.RecordRun("layer", norm.Config{Window: 64, SIMD: 8, Epsilon: 1e-5})
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, db.RecordWindowStats(id1, norm.WindowStats{Index: 0, Mean: 1}))
	testutil.AssertNoError(t, db.RecordWindowStats(id2, norm.WindowStats{Index: 0, Mean: 2}))

	got, err := db.WindowStats(id2)
	testutil.AssertNoError(t, err)
	if len(got) != 1 || got[0].Mean != 2 {
		t.Errorf("run 2 stats = %+v, want single row with mean 2", got)
	}
}

func TestDuplicateWindowIndexRejected(t *testing.T) {
	db := openTestDB(t)

	id, err := db.RecordRun("layer", norm.Config{Window: 64, SIMD: 8, Epsilon: 1e-5})
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, db.RecordWindowStats(id, norm.WindowStats{Index: 0}))
	testutil.AssertError(t, db.RecordWindowStats(id, norm.WindowStats{Index: 0}))
}

func TestRecorderCallback(t *testing.T) {
	db := openTestDB(t)

	id, err := db.RecordRun("rms", norm.Config{Window: 128, SIMD: 32, Epsilon: 1e-5})
	testutil.AssertNoError(t, err)

	record := db.Recorder(id)
	record(norm.WindowStats{Index: 0, MeanSquare: 12.5})
	record(norm.WindowStats{Index: 1, MeanSquare: 13.5})

	got, err := db.WindowStats(id)
	testutil.AssertNoError(t, err)
	if len(got) != 2 {
		t.Fatalf("recorder persisted %d rows, want 2", len(got))
	}
	if got[1].MeanSquare != 13.5 {
		t.Errorf("window 1 mean_square = %g, want 13.5", got[1].MeanSquare)
	}
}
