package domain

// Noise is the density label of points that belong to no density cluster.
// It is never a valid fine or mid label: those are always in [0, K).
const Noise = -1

// ClusterLevel identifies a level of the hierarchy.
type ClusterLevel string

// Hierarchy levels.
const (
	// LevelMid is the coarse level carrying categories.
	LevelMid ClusterLevel = "mid"

	// LevelFine is the partition level nested inside mid clusters.
	LevelFine ClusterLevel = "fine"
)

// String returns the string representation.
func (l ClusterLevel) String() string {
	return string(l)
}

// Labels holds every per-point assignment of a run, index-aligned with the
// corpus.
type Labels struct {
	// Fine is the first partition pass, one label in [0, NFine) per point.
	Fine []int

	// Mid is derived from Fine through FineToMid.
	Mid []int

	// Density is the density clusterer output; Noise marks outliers.
	Density []int

	// FineToMid maps each fine label to the mid label of its centroid.
	FineToMid []int

	// FineCentroids holds the fine cluster centroids in point space.
	FineCentroids []Point

	// NFine is the number of fine clusters.
	NFine int

	// NMid is the number of mid clusters.
	NMid int
}

// Members groups point indices by label. Labels outside [0, k) are skipped,
// so Noise never becomes a member list.
func Members(labels []int, k int) [][]int {
	out := make([][]int, k)
	for i, l := range labels {
		if l < 0 || l >= k {
			continue
		}
		out[l] = append(out[l], i)
	}
	return out
}

// CountClusters returns the number of distinct non-noise labels.
func CountClusters(labels []int) int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		if l == Noise {
			continue
		}
		seen[l] = struct{}{}
	}
	return len(seen)
}

// CountNoise returns the number of Noise labels.
func CountNoise(labels []int) int {
	n := 0
	for _, l := range labels {
		if l == Noise {
			n++
		}
	}
	return n
}
