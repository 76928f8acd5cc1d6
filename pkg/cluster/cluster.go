// Package cluster partitions embedding vectors into topic groups by density.
// Density-based grouping is the right fit here: the number of topics is
// unknown up front and topic density in embedding space is uneven, so any
// fixed-k method would impose an arbitrary topic count. Points in sparse
// regions get the reserved Noise label and are kept, not dropped — the
// miscellaneous group is a first-class outcome.
package cluster

// Noise is the reserved label for points not density-reachable from any
// sufficiently large cluster.
const Noise = -1

// Clusterer assigns one integer label per input vector, same length and
// order as the input. Labels are either Noise or arbitrary non-negative
// group ids; ids carry no ranking.
type Clusterer interface {
	Cluster(vectors [][]float32, minClusterSize int) ([]int, error)
}
