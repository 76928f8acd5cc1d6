package cluster

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// internal label states during the scan
const unvisited = -2

// DBSCAN is a density-based clusterer over Euclidean distance. Eps is the
// neighborhood radius; when zero it is estimated from the data as the median
// distance to each point's (minClusterSize-1)-th nearest neighbor, so runs
// need no hand tuning. The minimum cluster size doubles as the core-point
// density threshold.
//
// Given identical vectors and parameters, output labels are fully
// deterministic: clusters are discovered in input order.
type DBSCAN struct {
	Eps float64
}

// Cluster implements Clusterer.
func (d *DBSCAN) Cluster(vectors [][]float32, minClusterSize int) ([]int, error) {
	if minClusterSize < 1 {
		return nil, fmt.Errorf("minimum cluster size must be positive, got %d", minClusterSize)
	}
	n := len(vectors)
	if n == 0 {
		return []int{}, nil
	}

	dim := len(vectors[0])
	points := make([][]float64, n)
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), dim)
		}
		p := make([]float64, dim)
		for j, v := range vec {
			p[j] = float64(v)
		}
		points[i] = p
	}

	labels := make([]int, n)

	// A corpus smaller than the minimum cluster size cannot form any
	// cluster; everything lands in the noise group.
	if n < minClusterSize {
		for i := range labels {
			labels[i] = Noise
		}
		return labels, nil
	}

	eps := d.Eps
	if eps <= 0 {
		eps = estimateEps(points, minClusterSize)
	}

	neighbors := neighborLists(points, eps)

	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		if len(neighbors[i]) < minClusterSize {
			labels[i] = Noise
			continue
		}

		id := next
		next++
		labels[i] = id

		// Expand the cluster breadth-first from the seed's neighborhood.
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == Noise {
				labels[j] = id // border point, previously judged sparse
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = id
			if len(neighbors[j]) >= minClusterSize {
				queue = append(queue, neighbors[j]...)
			}
		}
	}

	return labels, nil
}

// neighborLists computes, for every point, the indices within eps of it
// (itself included, the standard DBSCAN convention).
func neighborLists(points [][]float64, eps float64) [][]int {
	n := len(points)
	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if floats.Distance(points[i], points[j], 2) <= eps {
				neighbors[i] = append(neighbors[i], j)
				if j != i {
					neighbors[j] = append(neighbors[j], i)
				}
			}
		}
	}
	// Restore ascending index order; the symmetric fill above appends
	// lower indices after higher ones.
	for i := range neighbors {
		sort.Ints(neighbors[i])
	}
	return neighbors
}

// estimateEps picks a radius from the data: the median k-distance, with
// k = minClusterSize-1. Points inside genuine clusters sit within this
// distance of enough neighbors to become cores; isolated points do not.
func estimateEps(points [][]float64, minClusterSize int) float64 {
	n := len(points)
	k := minClusterSize - 1
	if k < 1 {
		k = 1
	}

	kdist := make([]float64, 0, n)
	dists := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		dists = dists[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			dists = append(dists, floats.Distance(points[i], points[j], 2))
		}
		if len(dists) == 0 {
			kdist = append(kdist, 0)
			continue
		}
		sort.Float64s(dists)
		idx := k - 1
		if idx >= len(dists) {
			idx = len(dists) - 1
		}
		kdist = append(kdist, dists[idx])
	}

	sort.Float64s(kdist)
	eps := kdist[len(kdist)/2]
	if eps <= 0 {
		// Degenerate corpus (duplicate texts embed identically); any
		// positive radius groups the duplicates.
		eps = 1e-9
	}
	return eps
}

var _ Clusterer = (*DBSCAN)(nil)
