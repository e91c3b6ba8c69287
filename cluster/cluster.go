package cluster

import (
	"fmt"

	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/vecmath"
)

// Regime names the algorithm that produced a clustering.
type Regime string

const (
	RegimeAgglomerative Regime = "agglomerative"
	RegimeOnline        Regime = "online"
)

// DefaultAgglomerativeLimit is the largest input clustered agglomeratively.
const DefaultAgglomerativeLimit = 256

// Config controls clustering.
type Config struct {
	// Threshold is the minimum cosine similarity for a merge or assignment.
	Threshold float64
	// AgglomerativeLimit selects the regime; <= 0 uses DefaultAgglomerativeLimit.
	AgglomerativeLimit int
}

// Assignment maps one window to its cluster.
type Assignment struct {
	Midpoint  float64 `json:"midpoint"`
	ClusterID string  `json:"cluster_id"`
}

// Cluster is one speaker cluster with its unit centroid.
type Cluster struct {
	ID          string    `json:"id"`
	Centroid    []float64 `json:"-"`
	MemberCount int       `json:"member_count"`
	FirstSeen   float64   `json:"first_seen"`
}

// Result is a complete clustering: one assignment per input window, in
// input order, and the clusters in first-occurrence order.
type Result struct {
	Regime      Regime       `json:"regime"`
	Assignments []Assignment `json:"assignments"`
	Clusters    []Cluster    `json:"clusters"`
}

// Members returns the total member count across clusters.
func (r *Result) Members() int {
	n := 0
	for _, c := range r.Clusters {
		n += c.MemberCount
	}
	return n
}

// Assign clusters windows, which must be in ascending midpoint order.
func Assign(windows []embedding.WindowEmbedding, cfg Config) *Result {
	limit := cfg.AgglomerativeLimit
	if limit <= 0 {
		limit = DefaultAgglomerativeLimit
	}
	if len(windows) == 0 {
		return &Result{Regime: RegimeAgglomerative, Assignments: []Assignment{}, Clusters: []Cluster{}}
	}
	if len(windows) <= limit {
		return agglomerative(windows, cfg.Threshold)
	}
	return online(windows, cfg.Threshold)
}

// slot is one entry of the cluster table.
type slot struct {
	centroid []float64
	count    int
	first    int // index of the earliest member window
	alive    bool
}

// table is an index-addressed cluster arena with union-find membership.
type table struct {
	slots  []slot
	parent []int
}

func newTable(n int) *table {
	t := &table{slots: make([]slot, 0, n), parent: make([]int, 0, n)}
	return t
}

func (t *table) add(s slot) int {
	t.slots = append(t.slots, s)
	t.parent = append(t.parent, len(t.parent))
	return len(t.slots) - 1
}

func (t *table) find(i int) int {
	for t.parent[i] != i {
		t.parent[i] = t.parent[t.parent[i]]
		i = t.parent[i]
	}
	return i
}

// merge folds b into a (both roots) and returns the survivor, which is
// always the slot whose first member is earlier.
func (t *table) merge(a, b int) int {
	if t.slots[b].first < t.slots[a].first {
		a, b = b, a
	}
	sa, sb := &t.slots[a], &t.slots[b]
	sa.centroid = vecmath.MergeCentroids(sa.centroid, sa.count, sb.centroid, sb.count)
	sa.count += sb.count
	sb.alive = false
	sb.centroid = nil
	t.parent[b] = a
	return a
}

// earlier reports whether pair (a1, b1) precedes (a2, b2) by the earliest
// first member, then the other cluster's first member.
func (t *table) earlier(a1, b1, a2, b2 int) bool {
	lo1, hi1 := minMax(t.slots[a1].first, t.slots[b1].first)
	lo2, hi2 := minMax(t.slots[a2].first, t.slots[b2].first)
	if lo1 != lo2 {
		return lo1 < lo2
	}
	return hi1 < hi2
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

// result renumbers live slots C1.. by first member and maps every window to
// its slot's id. owner[i] is the table index window i was placed in.
func (t *table) result(regime Regime, windows []embedding.WindowEmbedding, owner []int) *Result {
	roots := make([]int, len(windows))
	for i := range windows {
		roots[i] = t.find(owner[i])
	}

	ids := make(map[int]string)
	res := &Result{Regime: regime, Assignments: make([]Assignment, len(windows))}
	for i, w := range windows {
		root := roots[i]
		id, ok := ids[root]
		if !ok {
			id = fmt.Sprintf("C%d", len(ids)+1)
			ids[root] = id
			res.Clusters = append(res.Clusters, Cluster{
				ID:          id,
				Centroid:    t.slots[root].centroid,
				MemberCount: t.slots[root].count,
				FirstSeen:   windows[t.slots[root].first].Midpoint,
			})
		}
		res.Assignments[i] = Assignment{Midpoint: w.Midpoint, ClusterID: id}
	}
	return res
}

// agglomerative greedily merges the most similar pair of clusters until the
// best similarity falls below threshold. Only the merged row of the
// similarity matrix is recomputed after each merge.
func agglomerative(windows []embedding.WindowEmbedding, threshold float64) *Result {
	n := len(windows)
	t := newTable(n)
	owner := make([]int, n)
	for i, w := range windows {
		owner[i] = t.add(slot{centroid: w.Vector, count: 1, first: i, alive: true})
	}

	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := vecmath.Cosine(t.slots[i].centroid, t.slots[j].centroid)
			sim[i][j], sim[j][i] = s, s
		}
	}

	for {
		bestA, bestB := -1, -1
		best := 0.0
		for i := 0; i < n; i++ {
			if !t.slots[i].alive {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !t.slots[j].alive {
					continue
				}
				s := sim[i][j]
				if bestA < 0 || s > best || (s == best && t.earlier(i, j, bestA, bestB)) {
					bestA, bestB, best = i, j, s
				}
			}
		}
		if bestA < 0 || best < threshold {
			break
		}
		survivor := t.merge(bestA, bestB)
		for k := 0; k < n; k++ {
			if k == survivor || !t.slots[k].alive {
				continue
			}
			s := vecmath.Cosine(t.slots[survivor].centroid, t.slots[k].centroid)
			sim[survivor][k], sim[k][survivor] = s, s
		}
	}
	return t.result(RegimeAgglomerative, windows, owner)
}

// online assigns each window, in order, to the most similar existing cluster
// at or above threshold, or spawns a new cluster.
func online(windows []embedding.WindowEmbedding, threshold float64) *Result {
	t := newTable(16)
	owner := make([]int, len(windows))
	var provisional []string

	for i, w := range windows {
		best := -1
		bestSim := 0.0
		for k := range t.slots {
			s := vecmath.Cosine(t.slots[k].centroid, w.Vector)
			if s < threshold {
				continue
			}
			if best < 0 || s > bestSim || (s == bestSim && provisional[k] < provisional[best]) {
				best, bestSim = k, s
			}
		}
		if best < 0 {
			owner[i] = t.add(slot{centroid: w.Vector, count: 1, first: i, alive: true})
			provisional = append(provisional, fmt.Sprintf("C%d", len(provisional)+1))
			continue
		}
		s := &t.slots[best]
		s.centroid = vecmath.MergeCentroids(s.centroid, s.count, w.Vector, 1)
		s.count++
		owner[i] = best
	}
	return t.result(RegimeOnline, windows, owner)
}
