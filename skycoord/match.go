package skycoord

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Match pairs a target position with a source position found within the search radius.
type Match struct {
	Target     int     // index in the targets slice
	Source     int     // index in the sources slice
	Separation float64 // degrees
}

// SearchAround returns every (target, source) pair closer than radius degrees,
// sorted by target then source index. Positions are compared as unit vectors
// in a k-d tree using chord lengths, which preserve the ordering of angular distances.
func SearchAround(targets, sources []SkyCoord, radius float64) []Match {
	if len(targets) == 0 || len(sources) == 0 || radius < 0 {
		return nil
	}

	points := make(skyPoints, len(sources))
	for i, c := range sources {
		points[i] = skyPoint{v: c.UnitVector(), idx: i}
	}
	tree := kdtree.New(points, false)
	maxDist := chordSquared(radius)

	var matches []Match
	for i, target := range targets {
		query := skyPoint{v: target.UnitVector(), idx: -1}
		keep := kdtree.NewDistKeeper(maxDist)
		tree.NearestSet(keep, query)

		found := make([]int, 0, len(keep.Heap))
		for _, c := range keep.Heap {
			// the keeper's sentinel carries no point
			if c.Comparable == nil {
				continue
			}
			found = append(found, c.Comparable.(skyPoint).idx)
		}
		sort.Ints(found)

		for _, j := range found {
			matches = append(matches, Match{
				Target:     i,
				Source:     j,
				Separation: target.Separation(sources[j]),
			})
		}
	}
	return matches
}

// NeighbourCounts returns, for each position, how many positions (itself included)
// lie within radius degrees of it.
func NeighbourCounts(coords []SkyCoord, radius float64) []int {
	counts := make([]int, len(coords))
	for _, m := range SearchAround(coords, coords, radius) {
		counts[m.Target]++
	}
	return counts
}

type skyPoint struct {
	v   [3]float64
	idx int
}

func (p skyPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(skyPoint)
	return p.v[d] - q.v[d]
}

func (p skyPoint) Dims() int { return 3 }

// Distance is the squared euclidean distance, as kdtree.Point does.
func (p skyPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(skyPoint)
	var sum float64
	for d := range p.v {
		diff := p.v[d] - q.v[d]
		sum += diff * diff
	}
	return sum
}

type skyPoints []skyPoint

func (p skyPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p skyPoints) Len() int                              { return len(p) }
func (p skyPoints) Pivot(d kdtree.Dim) int                { return skyPlane{Dim: d, skyPoints: p}.Pivot() }
func (p skyPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// skyPlane lets skyPoints be partitioned along a single dimension.
type skyPlane struct {
	kdtree.Dim
	skyPoints
}

func (p skyPlane) Less(i, j int) bool { return p.skyPoints[i].v[p.Dim] < p.skyPoints[j].v[p.Dim] }
func (p skyPlane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p skyPlane) Swap(i, j int)      { p.skyPoints[i], p.skyPoints[j] = p.skyPoints[j], p.skyPoints[i] }
func (p skyPlane) Slice(start, end int) kdtree.SortSlicer {
	return skyPlane{Dim: p.Dim, skyPoints: p.skyPoints[start:end]}
}
