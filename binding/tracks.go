package binding

import (
	"cmp"
	"math"
	"slices"

	"github.com/kbukum/speakerbind/util"
	"github.com/kbukum/speakerbind/vecmath"
)

// frame is one analyzed timestamp with at most one face per track.
type frame struct {
	time  float64
	faces []Face
}

type trackPoint struct {
	time  float64
	cx    float64
	cy    float64
	mouth *float64
}

// trackSeries is the time-ordered history of one face track.
type trackSeries struct {
	points      []trackPoint
	mouthMedian float64
	persons     map[string]int
}

// index holds the sorted frames and per-track series for one clip.
type index struct {
	frames []frame
	tracks map[string]*trackSeries
}

// newIndex sorts samples by time and keeps the largest box when a track
// appears twice in one sample.
func newIndex(samples []VideoSample) *index {
	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b VideoSample) int { return cmp.Compare(a.Time, b.Time) })

	idx := &index{frames: make([]frame, 0, len(sorted)), tracks: make(map[string]*trackSeries)}
	for _, s := range sorted {
		byTrack := make(map[string]Face, len(s.Faces))
		for _, f := range s.Faces {
			if f.TrackID == "" {
				continue
			}
			if prev, ok := byTrack[f.TrackID]; !ok || f.Rect.Area() > prev.Rect.Area() {
				byTrack[f.TrackID] = f
			}
		}
		fr := frame{time: s.Time, faces: make([]Face, 0, len(byTrack))}
		for _, id := range util.SortedKeys(byTrack) {
			f := byTrack[id]
			fr.faces = append(fr.faces, f)

			ts, ok := idx.tracks[id]
			if !ok {
				ts = &trackSeries{persons: make(map[string]int)}
				idx.tracks[id] = ts
			}
			cx, cy := f.Rect.Center()
			ts.points = append(ts.points, trackPoint{time: s.Time, cx: cx, cy: cy, mouth: f.MouthOpenRatio})
			if f.PersonID != nil && *f.PersonID != "" {
				ts.persons[*f.PersonID]++
			}
		}
		idx.frames = append(idx.frames, fr)
	}

	for _, ts := range idx.tracks {
		var mouths []float64
		for _, p := range ts.points {
			if p.mouth != nil {
				mouths = append(mouths, *p.mouth)
			}
		}
		ts.mouthMedian = vecmath.Median(mouths)
	}
	return idx
}

// analyzedSeconds is the span covered by the analyzed samples.
func (idx *index) analyzedSeconds() float64 {
	if len(idx.frames) == 0 {
		return 0
	}
	return idx.frames[len(idx.frames)-1].time - idx.frames[0].time
}

// nearestFrame returns the frame closest to t within tolerance. Equidistant
// frames resolve to the earlier one.
func (idx *index) nearestFrame(t, tolerance float64) (*frame, bool) {
	i, _ := slices.BinarySearchFunc(idx.frames, t, func(f frame, t float64) int { return cmp.Compare(f.time, t) })
	best := -1
	bestDist := math.Inf(1)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(idx.frames) {
			continue
		}
		if d := math.Abs(idx.frames[j].time - t); d < bestDist {
			best, bestDist = j, d
		}
	}
	if best < 0 || bestDist > tolerance {
		return nil, false
	}
	return &idx.frames[best], true
}

// trailing returns the points with time in (t-window, t].
func (ts *trackSeries) trailing(t, window float64) []trackPoint {
	lo, _ := slices.BinarySearchFunc(ts.points, t-window, func(p trackPoint, t float64) int {
		if p.time <= t {
			return -1
		}
		return 1
	})
	hi, _ := slices.BinarySearchFunc(ts.points, t, func(p trackPoint, t float64) int {
		if p.time <= t {
			return -1
		}
		return 1
	})
	return ts.points[lo:hi]
}

// motionEnergy sums center displacement between consecutive points in the
// trailing window.
func (ts *trackSeries) motionEnergy(t, window float64) float64 {
	pts := ts.trailing(t, window)
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += math.Hypot(pts[i].cx-pts[i-1].cx, pts[i].cy-pts[i-1].cy)
	}
	return total
}

// mouthActivity sums absolute mouth-openness changes between consecutive
// points in the trailing window that both carry a measurement.
func (ts *trackSeries) mouthActivity(t, window float64) float64 {
	pts := ts.trailing(t, window)
	total := 0.0
	for i := 1; i < len(pts); i++ {
		if pts[i].mouth != nil && pts[i-1].mouth != nil {
			total += math.Abs(*pts[i].mouth - *pts[i-1].mouth)
		}
	}
	return total
}

// aboveBaseline is how far the face's mouth is open beyond the track median.
func (ts *trackSeries) aboveBaseline(f Face) float64 {
	if f.MouthOpenRatio == nil {
		return 0
	}
	return max(0, *f.MouthOpenRatio-ts.mouthMedian)
}

// person returns the most frequent person id on the track, ties by string.
func (ts *trackSeries) person() *string {
	best, bestCount := "", 0
	for _, id := range util.SortedKeys(ts.persons) {
		if ts.persons[id] > bestCount {
			best, bestCount = id, ts.persons[id]
		}
	}
	if bestCount == 0 {
		return nil
	}
	return util.Ptr(best)
}
