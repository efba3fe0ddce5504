package types

import (
	"fmt"
	"math"
	"sort"
)

/*
EdgeKey is an always positive number that stores an edge's vertices as indices in a way that can be compared
An edge between vertices [4] and [0] will always be stored as [0,4], in the ascending order of the index values
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	// This packs two index coordinates into two 32 bit unsigned integers to act as a hash and an indirect access method
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	var i1, i2 int
	if verts[0] <= verts[1] {
		i1, i2 = verts[0], verts[1]
	} else {
		i1, i2 = verts[1], verts[0]
	}
	packed = EdgeKey(i1 + i2<<32)
	return
}

// EdgeKeySet is a sorted list of edge keys, used to compare edge sets of two
// graphs independently of how their arcs are stored.
type EdgeKeySet []EdgeKey

func NewEdgeKeySet(keys []EdgeKey) (es EdgeKeySet) {
	es = make(EdgeKeySet, len(keys))
	copy(es, keys)
	sort.Slice(es, func(i, j int) bool { return es[i] < es[j] })
	return
}

func (es EdgeKeySet) Equal(other EdgeKeySet) bool {
	if len(es) != len(other) {
		return false
	}
	for i := range es {
		if es[i] != other[i] {
			return false
		}
	}
	return true
}
