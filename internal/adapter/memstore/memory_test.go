package memstore

import (
	"errors"
	"testing"

	"alsampler/internal/domain"
	"alsampler/internal/port"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpsertClips("ds", []port.EmbeddingRecord{
		{ID: "z", Vector: []float32{1, 0}},
		{ID: "a", Vector: []float32{0, 1}},
		{ID: "zero", Vector: []float32{0, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	one := int64(1)
	if err := s.PutReferences([]port.EmbeddingRecord{{ID: "r", Vector: []float32{1, 1}, Category: &one}}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSession(domain.Session{ID: "s", Targets: []domain.CategoryID{1}}); err != nil {
		t.Fatal(err)
	}

	pool, err := s.FetchPool("ds", map[string]struct{}{"a": {}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pool) != 1 || pool[0].ID != "z" {
		t.Errorf("expected only clip z, got %v", pool)
	}

	refs, err := s.FetchReferences("s")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs[1]) != 1 {
		t.Errorf("expected 1 reference, got %d", len(refs[1]))
	}

	if err := s.PutLabel("s", port.LabelRecord{ClipID: "a", Negative: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutLabel("s", port.LabelRecord{ClipID: "a", Categories: []domain.CategoryID{1}}); err != nil {
		t.Fatal(err)
	}
	labels, err := s.FetchLabels("s")
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 1 || labels[0].Negative || !labels[0].HasCategory(1) {
		t.Errorf("expected relabelled positive, got %+v", labels)
	}
	if err := s.PutLabel("missing", port.LabelRecord{ClipID: "a"}); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.SaveSamples("s", 0, []domain.SampleRecord{{ClipID: "z"}, {ClipID: "a"}}); err != nil {
		t.Fatal(err)
	}
	round, _ := s.NextRound("s")
	if round != 1 {
		t.Errorf("expected next round 1, got %d", round)
	}
	samples, _ := s.ListSamples("s")
	if len(samples) != 2 || samples[0].Record.ClipID != "z" || samples[0].ID == samples[1].ID {
		t.Errorf("unexpected samples %+v", samples)
	}
}
