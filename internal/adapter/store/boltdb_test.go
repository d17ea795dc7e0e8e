package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.etcd.io/bbolt"

	"alsampler/internal/domain"
	"alsampler/internal/port"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func cat(c int64) *int64 { return &c }

func seedStore(t *testing.T, s *BoltStore) domain.Session {
	t.Helper()
	clips := []port.EmbeddingRecord{
		{ID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b", Vector: []float32{0, 1, 0}},
		{ID: "c", Vector: []float32{0, 0, 1}},
		{ID: "silent", Vector: []float32{0, 0, 0}},
	}
	if err := s.UpsertClips("forest", clips); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertClips("river", []port.EmbeddingRecord{{ID: "d", Vector: []float32{1, 1, 0}}}); err != nil {
		t.Fatal(err)
	}
	refs := []port.EmbeddingRecord{
		{ID: "r1", Vector: []float32{1, 0.1, 0}, Category: cat(1)},
		{ID: "r2", Vector: []float32{0.9, 0, 0}, Category: cat(1)},
		{ID: "r3", Vector: []float32{0, 0, 1}, Category: cat(10)},
	}
	if err := s.PutReferences(refs); err != nil {
		t.Fatal(err)
	}
	session := domain.Session{ID: "s1", Dataset: "forest", Targets: []domain.CategoryID{1, 2}, CreatedAt: time.Unix(100, 0)}
	if err := s.CreateSession(session); err != nil {
		t.Fatal(err)
	}
	return session
}

func TestFetchPoolScopeExcludeAndValidity(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)

	tests := []struct {
		name    string
		scope   string
		exclude map[string]struct{}
		max     int
		want    []string
	}{
		{"all datasets", "", nil, 0, []string{"a", "b", "c", "d"}},
		{"scoped", "forest", nil, 0, []string{"a", "b", "c"}},
		{"excluded", "forest", map[string]struct{}{"b": {}}, 0, []string{"a", "c"}},
		{"limited", "", nil, 2, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := s.FetchPool(tt.scope, tt.exclude, tt.max)
			if err != nil {
				t.Fatal(err)
			}
			if len(pool) != len(tt.want) {
				t.Fatalf("expected %v, got %d clips", tt.want, len(pool))
			}
			for i, id := range tt.want {
				if pool[i].ID != id {
					t.Errorf("pool[%d] = %s, expected %s", i, pool[i].ID, id)
				}
			}
		})
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)

	err := s.UpsertClips("forest", []port.EmbeddingRecord{{ID: "x", Vector: []float32{1, 2}}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	dim, err := s.Dimension()
	if err != nil {
		t.Fatal(err)
	}
	if dim != 3 {
		t.Errorf("expected dimension 3, got %d", dim)
	}

	if err := s.ClearClips(); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertClips("forest", []port.EmbeddingRecord{{ID: "x", Vector: []float32{1, 2}}}); err != nil {
		t.Errorf("expected new dimension after clear, got %v", err)
	}
}

func TestFetchReferencesByTarget(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)

	refs, err := s.FetchReferences("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs[1]) != 2 {
		t.Errorf("expected 2 references for category 1, got %d", len(refs[1]))
	}
	if refs[1][0].ID != "r1" {
		t.Errorf("expected reference id r1, got %s", refs[1][0].ID)
	}
	if len(refs[2]) != 0 {
		t.Errorf("expected no references for category 2, got %d", len(refs[2]))
	}
	if _, ok := refs[10]; ok {
		t.Error("category 10 is not a target and must not be returned")
	}

	if err := s.PutReferences([]port.EmbeddingRecord{{ID: "r9", Vector: []float32{1, 0, 0}}}); err == nil {
		t.Error("expected error for reference without category")
	}
}

func TestSessionsAndLabels(t *testing.T) {
	s := openTestStore(t)
	session := seedStore(t, s)

	got, err := s.GetSession("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Dataset != session.Dataset || len(got.Targets) != 2 || !got.CreatedAt.Equal(session.CreatedAt) {
		t.Errorf("session round trip mismatch: %+v", got)
	}
	if err := s.CreateSession(session); err == nil {
		t.Error("expected duplicate session error")
	}
	if _, err := s.GetSession("missing"); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.PutLabel("s1", port.LabelRecord{ClipID: "a", Categories: []domain.CategoryID{1}}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutLabel("s1", port.LabelRecord{ClipID: "b", Negative: true}); err != nil {
		t.Fatal(err)
	}
	// Relabelling replaces.
	if err := s.PutLabel("s1", port.LabelRecord{ClipID: "a", Categories: []domain.CategoryID{1, 2}}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutLabel("s1", port.LabelRecord{ClipID: "nope"}); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown clip, got %v", err)
	}

	labels, err := s.FetchLabels("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(labels))
	}
	if labels[0].Embedding.ID != "a" || len(labels[0].Categories) != 2 || len(labels[0].Embedding.Vector) != 3 {
		t.Errorf("unexpected first label %+v", labels[0])
	}
	if !labels[1].Negative {
		t.Error("expected second label to be negative")
	}

	targets, err := s.FetchTargetCategories("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 || targets[0] != 1 || targets[1] != 2 {
		t.Errorf("unexpected targets %v", targets)
	}
}

func TestSamplesRoundsAndOrder(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)

	round, err := s.NextRound("s1")
	if err != nil {
		t.Fatal(err)
	}
	if round != 0 {
		t.Fatalf("expected round 0, got %d", round)
	}

	c := domain.CategoryID(1)
	first := []domain.SampleRecord{
		{ClipID: "c", Score: 0.9, Type: domain.SampleEasyPositive, SourceCategory: &c},
		{ClipID: "a", Score: 0.1, Type: domain.SampleOthers},
	}
	if err := s.SaveSamples("s1", 0, first); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSamples("s1", 1, []domain.SampleRecord{{ClipID: "b", Type: domain.SampleActiveLearning, SourceCategory: &c}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSamples("missing", 0, first); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown session, got %v", err)
	}

	samples, err := s.ListSamples("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	wantIDs := []string{"c", "a", "b"}
	wantRounds := []int{0, 0, 1}
	ids := make(map[string]bool)
	for i, sample := range samples {
		if sample.Record.ClipID != wantIDs[i] || sample.Round != wantRounds[i] {
			t.Errorf("sample %d = %s round %d, expected %s round %d",
				i, sample.Record.ClipID, sample.Round, wantIDs[i], wantRounds[i])
		}
		if sample.ID == "" || ids[sample.ID] {
			t.Errorf("sample %d has missing or duplicate id %q", i, sample.ID)
		}
		ids[sample.ID] = true
	}
	if samples[0].Record.SourceCategory == nil || *samples[0].Record.SourceCategory != 1 {
		t.Error("expected source category to survive persistence")
	}

	round, err = s.NextRound("s1")
	if err != nil {
		t.Fatal(err)
	}
	if round != 2 {
		t.Errorf("expected round 2, got %d", round)
	}
}

func TestMigrate(t *testing.T) {
	s := openTestStore(t)

	result, err := s.CheckMigration()
	if err != nil {
		t.Fatal(err)
	}
	if !result.NeedsMigration || result.OldVersion != 0 {
		t.Errorf("expected fresh store to need migration, got %+v", result)
	}

	if err := s.Migrate(); err != nil {
		t.Fatal(err)
	}
	version, err := s.GetSchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("expected version %d, got %d", CurrentSchemaVersion, version)
	}

	if err := s.setSchemaVersion(CurrentSchemaVersion + 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Migrate(); err == nil {
		t.Error("expected error for newer schema")
	}
}

func TestMigrateV1PinsDimension(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertClips("", []port.EmbeddingRecord{{ID: "a", Vector: []float32{1, 2, 3, 4}}}); err != nil {
		t.Fatal(err)
	}
	// Simulate a v1 file: no pinned dimension.
	err := s.DB().Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStats).Delete(keyDimension)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.setSchemaVersion(1); err != nil {
		t.Fatal(err)
	}

	if err := s.Migrate(); err != nil {
		t.Fatal(err)
	}
	dim, err := s.Dimension()
	if err != nil {
		t.Fatal(err)
	}
	if dim != 4 {
		t.Errorf("expected dimension 4, got %d", dim)
	}
}
