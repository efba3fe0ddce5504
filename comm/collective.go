package comm

import (
	"fmt"
	"sort"
)

// Reserved tags of collective traffic.
const (
	tagGather = -1 - iota
	tagBcast
)

type Op uint8

const (
	OpSum Op = iota
	OpMax
	OpMin
)

// Number is the element constraint of reductions.
type Number interface {
	~int | ~int32 | ~int64 | ~uint8 | ~uint32 | ~uint64 | ~float64
}

func combine[T Number](op Op, acc, val []T) {
	for i, v := range val {
		switch op {
		case OpSum:
			acc[i] += v
		case OpMax:
			if v > acc[i] {
				acc[i] = v
			}
		case OpMin:
			if v < acc[i] {
				acc[i] = v
			}
		}
	}
}

func recvFrom[T any](c *Comm, src, tag int) (data []T, err error) {
	var r *Request
	if r, err = irecv[T](c, nil, src, tag); err != nil {
		return
	}
	if err = Wait(r); err != nil {
		return
	}
	return Received[T](r), nil
}

// gatherv collects every contribution on root, in rank order. Other ranks get nil.
func gatherv[T any](c *Comm, send []T, root int) (all [][]T, err error) {
	if c.rank != root {
		_, err = isend(c, send, root, tagGather)
		return
	}
	all = make([][]T, c.Size())
	for src := 0; src < c.Size(); src++ {
		if src == root {
			all[src] = append([]T(nil), send...)
			continue
		}
		if all[src], err = recvFrom[T](c, src, tagGather); err != nil {
			return nil, err
		}
	}
	return
}

// Bcast copies root's buf into buf on every process.
func Bcast[T any](c *Comm, buf []T, root int) (err error) {
	if err = c.checkPeer(root); err != nil {
		return
	}
	if c.rank == root {
		for dst := 0; dst < c.Size(); dst++ {
			if dst != root {
				if _, err = isend(c, buf, dst, tagBcast); err != nil {
					return
				}
			}
		}
		return
	}
	var data []T
	if data, err = recvFrom[T](c, root, tagBcast); err != nil {
		return
	}
	if len(data) != len(buf) {
		return fmt.Errorf("broadcast of %d elements into %d: %w", len(data), len(buf), ErrLength)
	}
	copy(buf, data)
	return
}

// Allreduce combines buf element-wise over all processes, in place.
func Allreduce[T Number](c *Comm, buf []T, op Op) (err error) {
	var all [][]T
	if all, err = gatherv(c, buf, 0); err != nil {
		return
	}
	if c.rank == 0 {
		for src := 1; src < len(all); src++ {
			if len(all[src]) != len(buf) {
				err = fmt.Errorf("reduction from rank %d: %w", src, ErrLength)
				break
			}
			combine(op, buf, all[src])
		}
	}
	if e := Bcast(c, buf, 0); e != nil && err == nil {
		err = e
	}
	return
}

// Allgatherv returns every process's contribution, indexed by rank.
func Allgatherv[T any](c *Comm, send []T) (all [][]T, err error) {
	var (
		root   [][]T
		counts []int
		flat   []T
	)
	if root, err = gatherv(c, send, 0); err != nil {
		return
	}
	counts = make([]int, c.Size())
	if c.rank == 0 {
		for n, part := range root {
			counts[n] = len(part)
			flat = append(flat, part...)
		}
	}
	if err = Bcast(c, counts, 0); err != nil {
		return
	}
	if c.rank != 0 {
		total := 0
		for _, cnt := range counts {
			total += cnt
		}
		flat = make([]T, total)
	}
	if err = Bcast(c, flat, 0); err != nil {
		return
	}
	all = make([][]T, c.Size())
	offset := 0
	for n, cnt := range counts {
		all[n] = flat[offset : offset+cnt : offset+cnt]
		offset += cnt
	}
	return
}

// Allgather concatenates equal-length contributions in rank order.
func Allgather[T any](c *Comm, send []T) (recv []T, err error) {
	var all [][]T
	if all, err = Allgatherv(c, send); err != nil {
		return
	}
	recv = make([]T, 0, len(send)*c.Size())
	for n, part := range all {
		if len(part) != len(send) {
			return nil, fmt.Errorf("gather from rank %d: %w", n, ErrLength)
		}
		recv = append(recv, part...)
	}
	return
}

func Barrier(c *Comm) error {
	return Allreduce(c, []int{0}, OpMax)
}

/*
Split partitions c into disjoint communicators, one per non-negative color.
Ranks in a new communicator are ordered by key, then by rank in c. Processes
passing Undefined get a nil communicator.
*/
func (c *Comm) Split(color, key int) (nc *Comm, err error) {
	var (
		all []int
		seq = []int64{0}
	)
	if all, err = Allgather(c, []int{color, key}); err != nil {
		return
	}
	if c.rank == 0 {
		seq[0] = c.w.ctxSeq.Add(1)
	}
	if err = Bcast(c, seq, 0); err != nil {
		return
	}
	if color < 0 {
		return nil, nil
	}
	type member struct{ key, rank int }
	var members []member
	for n := 0; n < c.Size(); n++ {
		if all[2*n] == color {
			members = append(members, member{all[2*n+1], n})
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].key != members[j].key {
			return members[i].key < members[j].key
		}
		return members[i].rank < members[j].rank
	})
	nc = &Comm{
		w:     c.w,
		ctx:   ctxID{seq: seq[0], color: color},
		ranks: make([]int, len(members)),
	}
	for n, m := range members {
		nc.ranks[n] = c.ranks[m.rank]
		if m.rank == c.rank {
			nc.rank = n
		}
	}
	return
}
