package utils

import (
	"fmt"
	"sort"
)

/*
PartitionMap holds the contiguous index ranges owned by each process: process p
owns [Partitions[p][0], Partitions[p][1]). Ranges are monotonic and without
holes, empty ranges are allowed.
*/
type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Base           int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// NewPartitionMapFromBounds builds the map from a process vertex table of
// ParallelDegree+1 monotonic boundaries, such as a distributed graph's procvrttab.
func NewPartitionMapFromBounds(bounds []int) (pm *PartitionMap, err error) {
	if len(bounds) < 2 {
		err = fmt.Errorf("partition bounds need at least two entries, have %d", len(bounds))
		return
	}
	np := len(bounds) - 1
	pm = &PartitionMap{
		MaxIndex:       bounds[np] - bounds[0],
		ParallelDegree: np,
		Base:           bounds[0],
		Partitions:     make([][2]int, np),
	}
	for n := 0; n < np; n++ {
		if bounds[n+1] < bounds[n] {
			return nil, fmt.Errorf("partition bounds not monotonic at %d: %d > %d",
				n, bounds[n], bounds[n+1])
		}
		pm.Partitions[n] = [2]int{bounds[n], bounds[n+1]}
	}
	return
}

// Bounds returns the ParallelDegree+1 boundary table.
func (pm *PartitionMap) Bounds() (bounds []int) {
	bounds = make([]int, pm.ParallelDegree+1)
	for n := 0; n < pm.ParallelDegree; n++ {
		bounds[n] = pm.Partitions[n][0]
	}
	bounds[pm.ParallelDegree] = pm.Base + pm.MaxIndex
	return
}

// Owner returns the process owning global index k, or -1 if k is out of range.
// The interpolated guess is exact for balanced splits, otherwise a binary
// search settles it in O(log P).
func (pm *PartitionMap) Owner(k int) (bucketNum int) {
	if pm.ParallelDegree == 0 || k < pm.Base || k >= pm.Base+pm.MaxIndex {
		return -1
	}
	bucketNum = int(float64(pm.ParallelDegree*(k-pm.Base)) / float64(pm.MaxIndex))
	if pm.Partitions[bucketNum][0] <= k && pm.Partitions[bucketNum][1] > k {
		return
	}
	return sort.Search(pm.ParallelDegree, func(p int) bool {
		return pm.Partitions[p][1] > k
	})
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = pm.Base + threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

/*
OwnerSearch caches the last range hit in front of a PartitionMap. Edge lists
of graphs built from meshes are strongly local, so most lookups land in the
same neighbor as the previous one and never reach the binary search.
*/
type OwnerSearch struct {
	pm       *PartitionMap
	last     int
	min, max int
}

func NewOwnerSearch(pm *PartitionMap) *OwnerSearch {
	return &OwnerSearch{pm: pm, last: -1}
}

func (os *OwnerSearch) Owner(k int) int {
	if os.last >= 0 && k >= os.min && k < os.max {
		return os.last
	}
	bn := os.pm.Owner(k)
	if bn >= 0 {
		os.last = bn
		os.min, os.max = os.pm.Partitions[bn][0], os.pm.Partitions[bn][1]
	}
	return bn
}
