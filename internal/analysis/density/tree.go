package density

import (
	"math"
	"sort"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// linkNode is an internal node of the single-linkage dendrogram. Node ids
// below n are points; node n+i is the i-th merge.
type linkNode struct {
	left, right int
	distance    float64
	size        int
}

// singleLinkage merges MST edges in ascending weight order.
func singleLinkage(edges []mstEdge, n int) []linkNode {
	parent := make([]int, 2*n-1)
	size := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
		if i < n {
			size[i] = 1
		}
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	nodes := make([]linkNode, 0, n-1)
	for i, e := range edges {
		ra, rb := find(e.a), find(e.b)
		id := n + i
		size[id] = size[ra] + size[rb]
		parent[ra], parent[rb] = id, id
		nodes = append(nodes, linkNode{left: ra, right: rb, distance: e.weight, size: size[id]})
	}
	return nodes
}

// condensedEdge is one row of the condensed tree: child left parent at
// lambda. Children below n are points, others are clusters.
type condensedEdge struct {
	parent, child int
	lambda        float64
	size          int
}

// condensedTree is the dendrogram reduced to clusters of at least the
// minimum size. Cluster ids start at n; n is the root.
type condensedTree struct {
	n     int
	edges []condensedEdge
	// birth holds the lambda at which each cluster (id - n) appeared.
	birth []float64
}

func lambdaOf(distance float64) float64 {
	if distance > 0 {
		return 1 / distance
	}
	return math.Inf(1)
}

// condense walks the dendrogram from the root. A split where both sides
// reach minSize creates two clusters; otherwise the small side's points fall
// out of the current cluster and the large side keeps its label.
func condense(nodes []linkNode, n, minSize int) *condensedTree {
	root := n + len(nodes) - 1
	ct := &condensedTree{n: n, birth: []float64{0}}

	nodeSize := func(id int) int {
		if id < n {
			return 1
		}
		return nodes[id-n].size
	}

	var leaves func(id int, out []int) []int
	leaves = func(id int, out []int) []int {
		stack := []int{id}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top < n {
				out = append(out, top)
				continue
			}
			nd := nodes[top-n]
			stack = append(stack, nd.right, nd.left)
		}
		return out
	}

	type item struct{ node, label int }
	queue := []item{{root, n}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if it.node < n {
			continue
		}
		nd := nodes[it.node-n]
		lambda := lambdaOf(nd.distance)
		leftSize, rightSize := nodeSize(nd.left), nodeSize(nd.right)

		switch {
		case leftSize >= minSize && rightSize >= minSize:
			for _, child := range []int{nd.left, nd.right} {
				id := n + len(ct.birth)
				ct.birth = append(ct.birth, lambda)
				ct.edges = append(ct.edges, condensedEdge{parent: it.label, child: id, lambda: lambda, size: nodeSize(child)})
				queue = append(queue, item{child, id})
			}
		case leftSize < minSize && rightSize < minSize:
			for _, p := range leaves(it.node, nil) {
				ct.edges = append(ct.edges, condensedEdge{parent: it.label, child: p, lambda: lambda, size: 1})
			}
		case leftSize < minSize:
			for _, p := range leaves(nd.left, nil) {
				ct.edges = append(ct.edges, condensedEdge{parent: it.label, child: p, lambda: lambda, size: 1})
			}
			queue = append(queue, item{nd.right, it.label})
		default:
			for _, p := range leaves(nd.right, nil) {
				ct.edges = append(ct.edges, condensedEdge{parent: it.label, child: p, lambda: lambda, size: 1})
			}
			queue = append(queue, item{nd.left, it.label})
		}
	}
	return ct
}

// clusterCount returns the number of clusters including the root.
func (ct *condensedTree) clusterCount() int {
	return len(ct.birth)
}

// stability is the excess of mass of every cluster.
func (ct *condensedTree) stability() []float64 {
	out := make([]float64, ct.clusterCount())
	for _, e := range ct.edges {
		idx := e.parent - ct.n
		// Exact duplicates separate at infinite lambda and add no mass.
		if math.IsInf(e.lambda, 1) || math.IsInf(ct.birth[idx], 1) {
			continue
		}
		out[idx] += (e.lambda - ct.birth[idx]) * float64(e.size)
	}
	return out
}

// children returns the child clusters of every cluster.
func (ct *condensedTree) children() [][]int {
	out := make([][]int, ct.clusterCount())
	for _, e := range ct.edges {
		if e.child >= ct.n {
			out[e.parent-ct.n] = append(out[e.parent-ct.n], e.child-ct.n)
		}
	}
	return out
}

// selectClusters picks the flat clustering. The root is never selected, so a
// tree without any split yields only noise.
func selectClusters(ct *condensedTree, method domain.DensitySelection) []int {
	count := ct.clusterCount()
	if count <= 1 {
		return nil
	}
	kids := ct.children()
	selected := make([]bool, count)

	if method == domain.SelectionLeaf {
		for c := 1; c < count; c++ {
			selected[c] = len(kids[c]) == 0
		}
	} else {
		stab := ct.stability()
		// Children always have larger ids than their parent.
		for c := count - 1; c >= 1; c-- {
			var sub float64
			for _, k := range kids[c] {
				sub += stab[k]
			}
			if len(kids[c]) > 0 && sub > stab[c] {
				stab[c] = sub
				continue
			}
			selected[c] = true
			var unselect func(int)
			unselect = func(x int) {
				for _, k := range kids[x] {
					selected[k] = false
					unselect(k)
				}
			}
			unselect(c)
		}
	}

	var out []int
	for c := 1; c < count; c++ {
		if selected[c] {
			out = append(out, c)
		}
	}
	sort.Ints(out)
	return out
}

// assignLabels gives every point the label of the selected cluster it
// belongs to, or Noise.
func assignLabels(ct *condensedTree, selected []int, n int) []int {
	parentOf := make([]int, ct.clusterCount())
	parentOf[0] = -1
	pointCluster := make([]int, n)
	for _, e := range ct.edges {
		if e.child >= ct.n {
			parentOf[e.child-ct.n] = e.parent - ct.n
		} else {
			pointCluster[e.child] = e.parent - ct.n
		}
	}

	labelOf := make(map[int]int, len(selected))
	for i, c := range selected {
		labelOf[c] = i
	}

	labels := make([]int, n)
	for p := 0; p < n; p++ {
		labels[p] = domain.Noise
		for c := pointCluster[p]; c > 0; c = parentOf[c] {
			if l, ok := labelOf[c]; ok {
				labels[p] = l
				break
			}
		}
	}
	return labels
}
