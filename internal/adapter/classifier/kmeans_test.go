package classifier

import (
	"math/rand"
	"testing"
)

func TestReduceUnlabeledKeepsSmallPools(t *testing.T) {
	x := [][]float32{{1, 0}, {0, 0}, {0, 1}}

	got := ReduceUnlabeledIndices(x, ReduceOptions{Clusters: 2, PerCluster: 2, BatchSize: 4, Iterations: 2, Seed: 1})

	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("expected valid rows [0 2], got %v", got)
	}
}

func TestReduceUnlabeledBoundsSize(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := make([][]float32, 500)
	for i := range x {
		row := make([]float32, 8)
		for j := range row {
			row[j] = float32(rng.NormFloat64())
		}
		x[i] = row
	}
	opts := ReduceOptions{Clusters: 20, PerCluster: 2, BatchSize: 64, Iterations: 5, Seed: 42}

	got := ReduceUnlabeledIndices(x, opts)

	if len(got) == 0 || len(got) > opts.Clusters*opts.PerCluster {
		t.Fatalf("expected 1..%d rows, got %d", opts.Clusters*opts.PerCluster, len(got))
	}
	seen := make(map[int]bool)
	for _, i := range got {
		if i < 0 || i >= len(x) {
			t.Fatalf("index %d out of range", i)
		}
		if seen[i] {
			t.Errorf("duplicate index %d", i)
		}
		seen[i] = true
	}

	again := ReduceUnlabeledIndices(x, opts)
	if len(again) != len(got) {
		t.Fatalf("expected deterministic size %d, got %d", len(got), len(again))
	}
	for i := range got {
		if got[i] != again[i] {
			t.Errorf("index %d differs between runs: %d vs %d", i, got[i], again[i])
		}
	}

	if rows := ReduceUnlabeled(x, opts); len(rows) != len(got) {
		t.Errorf("expected %d rows, got %d", len(got), len(rows))
	}
}
