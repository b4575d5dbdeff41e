package domain

// Classification is the detail returned by the category annotator for a mid
// cluster.
type Classification struct {
	// Categories holds at most two category names, primary first.
	Categories []string `json:"categories"`

	// Primary is the main category.
	Primary string `json:"primary"`

	// Secondary is an optional second category.
	Secondary string `json:"secondary,omitempty"`

	// Confidence is the annotator's self-reported confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Rationale is a short justification.
	Rationale string `json:"rationale,omitempty"`
}

// FineCluster is a leaf group of the hierarchy.
type FineCluster struct {
	ID       int            `json:"id"`
	MidID    int            `json:"mid_id"`
	Name     string         `json:"name"`
	Size     int            `json:"size"`
	Quality  ClusterQuality `json:"quality"`
	Centroid Point          `json:"centroid"`

	// Members are the document indices, in corpus order.
	Members []int `json:"-"`
}

// MidCluster is a top-level group. It owns its fine clusters and carries the
// category inherited by every document beneath it.
type MidCluster struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Category       Category        `json:"category"`
	Classification *Classification `json:"classification,omitempty"`
	Size           int             `json:"size"`
	Fine           []FineCluster   `json:"fine"`
}

// Distribution holds the global counts reported with a hierarchy.
type Distribution struct {
	// ByCategory counts documents per category name.
	ByCategory map[string]int `json:"by_category"`

	// ByFine counts documents per fine cluster id.
	ByFine map[int]int `json:"by_fine"`

	// ByMid counts documents per mid cluster id.
	ByMid map[int]int `json:"by_mid"`

	// ByTier counts fine clusters per quality tier.
	ByTier map[QualityTier]int `json:"by_tier"`
}

// Hierarchy is the depth-2 tree of a run: mid clusters own fine clusters,
// fine clusters own documents.
type Hierarchy struct {
	Mid          []MidCluster `json:"mid"`
	Distribution Distribution `json:"distribution"`
}

// MidByID returns the mid cluster with the given id.
func (h *Hierarchy) MidByID(id int) (*MidCluster, bool) {
	for i := range h.Mid {
		if h.Mid[i].ID == id {
			return &h.Mid[i], true
		}
	}
	return nil, false
}

// FineByID returns the fine cluster with the given id and its parent.
func (h *Hierarchy) FineByID(id int) (*FineCluster, *MidCluster, bool) {
	for i := range h.Mid {
		mid := &h.Mid[i]
		for j := range mid.Fine {
			if mid.Fine[j].ID == id {
				return &mid.Fine[j], mid, true
			}
		}
	}
	return nil, nil, false
}

// FineCount returns the number of fine clusters in the tree.
func (h *Hierarchy) FineCount() int {
	n := 0
	for i := range h.Mid {
		n += len(h.Mid[i].Fine)
	}
	return n
}

// Walk calls fn for every fine cluster with its parent, in tree order.
func (h *Hierarchy) Walk(fn func(mid *MidCluster, fine *FineCluster)) {
	for i := range h.Mid {
		for j := range h.Mid[i].Fine {
			fn(&h.Mid[i], &h.Mid[i].Fine[j])
		}
	}
}
