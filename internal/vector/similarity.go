package vector

import (
	"container/heap"
	"sort"
)

// SquaredL2 returns the squared Euclidean distance between a and b.
// Both slices must have the same length.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// neighborHeap keeps the current worst candidate at the root so it can be evicted.
type neighborHeap []Neighbor

func (h neighborHeap) Len() int           { return len(h) }
func (h neighborHeap) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h neighborHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *neighborHeap) Push(x any) { *h = append(*h, x.(Neighbor)) }

func (h *neighborHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// selectNearest returns the k smallest distances ordered by (distance, position).
func selectNearest(distances []float32, k int) []Neighbor {
	if k > len(distances) {
		k = len(distances)
	}
	if k <= 0 {
		return nil
	}
	h := make(neighborHeap, 0, k)
	for pos, d := range distances {
		cand := Neighbor{Position: pos, Distance: d}
		if len(h) < k {
			heap.Push(&h, cand)
			continue
		}
		if closer(cand, h[0]) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}
	out := []Neighbor(h)
	sort.Slice(out, func(i, j int) bool { return closer(out[i], out[j]) })
	return out
}
