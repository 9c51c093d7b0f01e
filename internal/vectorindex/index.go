// Package vectorindex implements exact nearest-neighbour search over a flat
// list of embeddings.
package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Hit is a search result: Position is the insertion index of the matching vector.
type Hit struct {
	Position int
	Distance float32
}

// FlatIndex holds vectors in insertion order and scans all of them on every
// query. It is append-only; rebuild it to change its contents.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

func New(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Build creates an index over vectors, taking the dimension from the first one.
func Build(vectors [][]float32) (*FlatIndex, error) {
	if len(vectors) == 0 {
		return New(0), nil
	}
	idx := New(len(vectors[0]))
	idx.vectors = make([][]float32, 0, len(vectors))
	for i, v := range vectors {
		if err := idx.Add(v); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return idx, nil
}

func (x *FlatIndex) Dim() int { return x.dim }

func (x *FlatIndex) Len() int { return len(x.vectors) }

func (x *FlatIndex) Add(vec []float32) error {
	if x.dim == 0 && len(x.vectors) == 0 {
		x.dim = len(vec)
	}
	if len(vec) == 0 || len(vec) != x.dim {
		return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vec), x.dim)
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	x.vectors = append(x.vectors, cp)
	return nil
}

// Search returns up to k hits ordered by ascending Euclidean distance, ties
// keeping insertion order. A k larger than the index returns every vector.
func (x *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(x.vectors) == 0 {
		return nil, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}

	hits := make([]Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = Hit{Position: i, Distance: l2(query, v)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if k > len(hits) {
		k = len(hits)
	}
	hits = hits[:k]
	for i := range hits {
		hits[i].Distance = float32(math.Sqrt(float64(hits[i].Distance)))
	}
	return hits, nil
}

// l2 returns the squared Euclidean distance.
func l2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
