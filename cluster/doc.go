// Package cluster groups an ordered sequence of window embeddings into
// anonymous speaker clusters.
//
// Up to Config.AgglomerativeLimit windows are clustered by greedy
// agglomerative merging over a similarity matrix; longer inputs take a
// single online pass. The two regimes may disagree for the same threshold,
// so every Result records which one produced it. Cleanup applies the
// post-merge passes (small-cluster absorption, splinter collapse) over an
// index-addressed cluster table.
//
// All choices are made over explicitly ordered indices. Ties in the
// agglomerative regime and in cleanup go to the pair whose clusters appeared
// earliest; ties in the online regime go to the lexicographically smallest
// provisional id. Final ids are C1, C2, ... in order of first occurrence.
package cluster
