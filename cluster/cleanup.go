package cluster

import (
	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/vecmath"
)

// MinCleanupClusters is the smallest cluster count cleanup ever runs on.
const MinCleanupClusters = 3

// CleanupConfig controls the post-merge passes.
type CleanupConfig struct {
	// Threshold is the clustering threshold the result was produced with.
	Threshold float64
	// MinClusters gates cleanup: it runs only at or above this count.
	// Values below MinCleanupClusters are raised to it.
	MinClusters int
	// SmallSize: a pair is absorbable when its smaller side has fewer members.
	SmallSize int
	// SmallMargin relaxes Threshold for absorbing small clusters.
	SmallMargin float64
	// SplinterThreshold is the size-independent similarity bar for
	// collapsing any pair. <= 0 disables splinter collapse.
	SplinterThreshold float64
}

// CleanupReport describes what cleanup changed.
type CleanupReport struct {
	Applied        bool `json:"applied" yaml:"applied"`
	ClustersBefore int  `json:"clusters_before" yaml:"clusters_before"`
	Absorbed       int  `json:"absorbed" yaml:"absorbed"`
	Splinters      int  `json:"splinters" yaml:"splinters"`
	ClustersAfter  int  `json:"clusters_after" yaml:"clusters_after"`
}

// Cleanup runs small-cluster absorption followed by splinter collapse and
// returns a renumbered result. res is not modified.
func Cleanup(res *Result, cfg CleanupConfig) (*Result, CleanupReport) {
	report := CleanupReport{ClustersBefore: len(res.Clusters), ClustersAfter: len(res.Clusters)}
	if len(res.Clusters) < max(cfg.MinClusters, MinCleanupClusters) {
		return res, report
	}
	report.Applied = true

	t, owner, windows := fromResult(res)
	report.Absorbed = absorbSmall(t, cfg.Threshold-cfg.SmallMargin, cfg.SmallSize)
	if cfg.SplinterThreshold > 0 {
		report.Splinters = collapseSplinters(t, cfg.SplinterThreshold)
	}

	out := t.result(res.Regime, windows, owner)
	report.ClustersAfter = len(out.Clusters)
	return out, report
}

// fromResult rebuilds a cluster table with one slot per cluster, in
// first-occurrence order. Slot.first holds the cluster's first window index.
func fromResult(res *Result) (*table, []int, []embedding.WindowEmbedding) {
	t := newTable(len(res.Clusters))
	index := make(map[string]int, len(res.Clusters))
	for _, c := range res.Clusters {
		index[c.ID] = t.add(slot{centroid: c.Centroid, count: c.MemberCount, first: -1, alive: true})
	}

	owner := make([]int, len(res.Assignments))
	windows := make([]embedding.WindowEmbedding, len(res.Assignments))
	for i, a := range res.Assignments {
		k := index[a.ClusterID]
		owner[i] = k
		windows[i] = embedding.WindowEmbedding{Midpoint: a.Midpoint}
		if t.slots[k].first < 0 {
			t.slots[k].first = i
		}
	}
	return t, owner, windows
}

// absorbSmall unions every pair whose smaller side has fewer than smallSize
// members and whose centroids are more similar than bar. Pairs are judged on
// the centroids before any merge; each union-find group is then folded into
// its earliest member. Returns the number of clusters absorbed.
func absorbSmall(t *table, bar float64, smallSize int) int {
	n := len(t.slots)
	group := make([]int, n)
	for i := range group {
		group[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for group[i] != i {
			group[i] = group[group[i]]
			i = group[i]
		}
		return i
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if min(t.slots[i].count, t.slots[j].count) >= smallSize {
				continue
			}
			if vecmath.Cosine(t.slots[i].centroid, t.slots[j].centroid) <= bar {
				continue
			}
			ri, rj := find(i), find(j)
			if ri == rj {
				continue
			}
			if t.slots[rj].first < t.slots[ri].first {
				ri, rj = rj, ri
			}
			group[rj] = ri
		}
	}

	absorbed := 0
	for i := 0; i < n; i++ {
		root := find(i)
		if root == i {
			continue
		}
		t.merge(t.find(root), i)
		absorbed++
	}
	return absorbed
}

// collapseSplinters repeatedly merges the single most similar pair of live
// clusters while its similarity exceeds bar and at least two remain.
func collapseSplinters(t *table, bar float64) int {
	merges := 0
	for {
		bestA, bestB := -1, -1
		best := 0.0
		for i := range t.slots {
			if !t.slots[i].alive {
				continue
			}
			for j := i + 1; j < len(t.slots); j++ {
				if !t.slots[j].alive {
					continue
				}
				s := vecmath.Cosine(t.slots[i].centroid, t.slots[j].centroid)
				if bestA < 0 || s > best || (s == best && t.earlier(i, j, bestA, bestB)) {
					bestA, bestB, best = i, j, s
				}
			}
		}
		if bestA < 0 || best <= bar {
			return merges
		}
		t.merge(bestA, bestB)
		merges++
	}
}
