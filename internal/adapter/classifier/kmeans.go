package classifier

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"alsampler/internal/adapter/vecmath"
)

// ReduceOptions bounds the unlabeled pool fed into self-training.
type ReduceOptions struct {
	Clusters   int   `yaml:"clusters"`
	PerCluster int   `yaml:"per_cluster"`
	BatchSize  int   `yaml:"batch_size"`
	Iterations int   `yaml:"iterations"`
	Seed       int64 `yaml:"seed"`
}

// DefaultReduceOptions returns the stock clustering settings.
func DefaultReduceOptions() ReduceOptions {
	return ReduceOptions{
		Clusters:   1000,
		PerCluster: 2,
		BatchSize:  1024,
		Iterations: 10,
		Seed:       42,
	}
}

// ReduceUnlabeled clusters x with mini-batch k-means and keeps the
// PerCluster rows closest to each centroid.
func ReduceUnlabeled(x [][]float32, opts ReduceOptions) [][]float32 {
	idx := ReduceUnlabeledIndices(x, opts)
	out := make([][]float32, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

// ReduceUnlabeledIndices is ReduceUnlabeled returning row indices, ordered
// by cluster and then by distance to the centroid. Degenerate rows are
// dropped. Pools already within Clusters*PerCluster rows are kept whole.
func ReduceUnlabeledIndices(x [][]float32, opts ReduceOptions) []int {
	rows, valid := vecmath.NormalizeRows(x)
	var idx []int
	for i := range rows {
		if valid[i] {
			idx = append(idx, i)
		}
	}
	if opts.Clusters <= 0 || opts.PerCluster <= 0 || len(idx) <= opts.Clusters*opts.PerCluster {
		return idx
	}

	points := make([][]float64, len(idx))
	for i, j := range idx {
		points[i] = rows[j]
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	centroids := kmeansPlusPlus(points, opts.Clusters, 3*opts.Clusters, rng)
	miniBatchKMeans(points, centroids, opts.BatchSize, opts.Iterations, rng)

	type member struct {
		point int
		dist  float64
	}
	clusters := make([][]member, len(centroids))
	for i, p := range points {
		c, d := nearest(p, centroids)
		clusters[c] = append(clusters[c], member{point: i, dist: d})
	}

	out := make([]int, 0, len(centroids)*opts.PerCluster)
	for _, members := range clusters {
		sort.SliceStable(members, func(a, b int) bool { return members[a].dist < members[b].dist })
		for k := 0; k < len(members) && k < opts.PerCluster; k++ {
			out = append(out, idx[members[k].point])
		}
	}
	return out
}

// kmeansPlusPlus seeds k centroids by D^2 sampling over a random sample of
// at most sampleSize points.
func kmeansPlusPlus(points [][]float64, k, sampleSize int, rng *rand.Rand) [][]float64 {
	sample := points
	if len(points) > sampleSize {
		sample = make([][]float64, sampleSize)
		for i, j := range rng.Perm(len(points))[:sampleSize] {
			sample[i] = points[j]
		}
	}
	k = min(k, len(sample))

	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), sample[rng.Intn(len(sample))]...))

	dist := make([]float64, len(sample))
	for i, p := range sample {
		dist[i] = sqDistance(p, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(dist)
		next := rng.Intn(len(sample))
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 {
					next = i
					break
				}
			}
		}
		c := append([]float64(nil), sample[next]...)
		centroids = append(centroids, c)
		for i, p := range sample {
			dist[i] = math.Min(dist[i], sqDistance(p, c))
		}
	}
	return centroids
}

// miniBatchKMeans refines centroids in place with per-centre learning rates.
func miniBatchKMeans(points, centroids [][]float64, batchSize, iterations int, rng *rand.Rand) {
	if batchSize <= 0 {
		batchSize = len(points)
	}
	counts := make([]float64, len(centroids))
	batch := make([]int, min(batchSize, len(points)))
	for it := 0; it < iterations; it++ {
		for i := range batch {
			batch[i] = rng.Intn(len(points))
		}
		for _, i := range batch {
			c, _ := nearest(points[i], centroids)
			counts[c]++
			eta := 1 / counts[c]
			floats.Scale(1-eta, centroids[c])
			floats.AddScaled(centroids[c], eta, points[i])
		}
	}
}

func nearest(p []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDistance(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func sqDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
