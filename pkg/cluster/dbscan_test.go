package cluster

import (
	"testing"
)

// blob generates count vectors tightly packed around a center point.
func blob(center []float32, count int) [][]float32 {
	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, len(center))
		copy(v, center)
		v[0] += float32(i) * 0.001
		vectors[i] = v
	}
	return vectors
}

func TestCluster_SeparatesDenseGroups(t *testing.T) {
	var vectors [][]float32
	vectors = append(vectors, blob([]float32{0, 0}, 10)...)
	vectors = append(vectors, blob([]float32{100, 100}, 10)...)
	vectors = append(vectors, []float32{50, -50}) // isolated outlier

	d := &DBSCAN{Eps: 1.0}
	labels, err := d.Cluster(vectors, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labels) != len(vectors) {
		t.Fatalf("expected %d labels, got %d", len(vectors), len(labels))
	}

	first, second := labels[0], labels[10]
	if first == Noise || second == Noise {
		t.Fatalf("dense groups must not be noise: %v", labels)
	}
	if first == second {
		t.Errorf("distant groups share label %d", first)
	}
	for i := 0; i < 10; i++ {
		if labels[i] != first {
			t.Errorf("point %d: label %d, want %d", i, labels[i], first)
		}
		if labels[10+i] != second {
			t.Errorf("point %d: label %d, want %d", 10+i, labels[10+i], second)
		}
	}
	if labels[20] != Noise {
		t.Errorf("outlier label = %d, want %d", labels[20], Noise)
	}
}

func TestCluster_SmallCorpusIsAllNoise(t *testing.T) {
	vectors := blob([]float32{0, 0}, 5)

	d := &DBSCAN{}
	labels, err := d.Cluster(vectors, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, label := range labels {
		if label != Noise {
			t.Errorf("label[%d] = %d, want %d", i, label, Noise)
		}
	}
}

func TestCluster_EmptyInput(t *testing.T) {
	d := &DBSCAN{}
	labels, err := d.Cluster(nil, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("expected no labels, got %v", labels)
	}
}

func TestCluster_AutoEps(t *testing.T) {
	// No Eps configured: the k-distance heuristic should still separate
	// two well-spaced dense groups.
	var vectors [][]float32
	vectors = append(vectors, blob([]float32{0, 0}, 8)...)
	vectors = append(vectors, blob([]float32{1000, 1000}, 8)...)

	d := &DBSCAN{}
	labels, err := d.Cluster(vectors, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] == Noise || labels[8] == Noise || labels[0] == labels[8] {
		t.Errorf("auto-eps failed to separate groups: %v", labels)
	}
}

func TestCluster_DeterministicPartition(t *testing.T) {
	var vectors [][]float32
	vectors = append(vectors, blob([]float32{0, 0}, 6)...)
	vectors = append(vectors, blob([]float32{10, 10}, 6)...)

	d := &DBSCAN{Eps: 1.0}
	first, err := d.Cluster(vectors, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := d.Cluster(vectors, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("labels differ between runs at %d: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestCluster_InvalidInput(t *testing.T) {
	d := &DBSCAN{}
	if _, err := d.Cluster([][]float32{{1, 2}}, 0); err == nil {
		t.Error("expected error for non-positive minimum cluster size")
	}
	if _, err := d.Cluster([][]float32{{1, 2}, {1}}, 1); err == nil {
		t.Error("expected error for mixed vector dimensions")
	}
}
