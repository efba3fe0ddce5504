/*
Package comm implements an MPI-like message-passing layer between processes
that run as goroutines of one program. Each process has a rank in a
communicator; processes exchange typed slices with non-blocking point-to-point
operations and take part in blocking collectives.

Messages are copied when posted, so a send buffer may be reused as soon as
Isend returns. Messages between a pair of processes with the same tag on the
same communicator are received in posting order. Tags chosen by callers must
be non-negative; negative tags carry collective traffic.
*/
package comm

import (
	"sync/atomic"
)

// Undefined is the color passed to Split by processes that take no part in
// any of the resulting communicators.
const Undefined = -1

type ctxID struct {
	seq   int64
	color int
}

type world struct {
	size   int
	boxes  []*MailBox
	ctxSeq atomic.Int64
}

// Comm is one process's handle on a communicator.
type Comm struct {
	w     *world
	ctx   ctxID
	rank  int
	ranks []int // communicator rank -> world rank
	freed bool
}

// NewWorld creates the world communicators of size processes, one per rank.
func NewWorld(size int) (comms []*Comm) {
	w := &world{
		size:  size,
		boxes: make([]*MailBox, size),
	}
	ranks := make([]int, size)
	for n := 0; n < size; n++ {
		w.boxes[n] = newMailBox()
		ranks[n] = n
	}
	comms = make([]*Comm, size)
	for n := 0; n < size; n++ {
		comms[n] = &Comm{
			w:     w,
			rank:  n,
			ranks: ranks,
		}
	}
	return
}

func (c *Comm) Rank() int { return c.rank }
func (c *Comm) Size() int { return len(c.ranks) }

// WorldRank returns the rank of this process in the world communicator.
func (c *Comm) WorldRank() int { return c.ranks[c.rank] }

// Free releases the communicator; further operations fail with ErrFreed.
func (c *Comm) Free() {
	c.freed = true
}

func (c *Comm) box() *MailBox {
	return c.w.boxes[c.ranks[c.rank]]
}

func (c *Comm) post(dst, tag int, msg any) {
	c.w.boxes[c.ranks[dst]].PostMessage(msgKey{ctx: c.ctx, src: c.rank, tag: tag}, msg)
}

func (c *Comm) checkPeer(peer int) error {
	if c.freed {
		return ErrFreed
	}
	if peer < 0 || peer >= len(c.ranks) {
		return ErrRankRange
	}
	return nil
}
