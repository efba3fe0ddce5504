package dgraph

import (
	"fmt"
	"sort"
)

// FoldCommNbr bounds the number of chunks a process sends or receives during a fold.
const FoldCommNbr = 4

// FoldRole is the part a process plays in a fold.
type FoldRole uint8

const (
	RolePureSender     FoldRole = iota // Leaves the graph, ships all its vertices
	RolePureReceiver                   // Keeps its vertices and receives more
	RoleSenderReceiver                 // Keeps the head of its vertices and ships the tail
)

func (r FoldRole) String() string {
	return [...]string{"sender", "receiver", "sender-receiver"}[r]
}

// FoldSlot is one chunk of consecutive vertices moving between two processes.
type FoldSlot struct {
	Proc       int // Peer rank in the original communicator
	VertGlbMin int // First vertex, original global numbering
	VertNbr    int
}

/*
FoldPlan tells a process what to do during a fold. It is computed identically
on every process from the process vertex counts, so that no communication is
needed to agree on it.
*/
type FoldPlan struct {
	PartVal       int
	FldProcGlbNbr int
	FldProcNum    int // Rank in the folded communicator, -1 for pure senders
	Role          FoldRole
	FldProcVrtTab []int // Folded vertex boundaries, FldProcGlbNbr+1 entries
	KeepNbr       int   // Leading local vertices kept in place
	SendNbr       int
	SendTab       [FoldCommNbr]FoldSlot
	RecvNbr       int
	RecvTab       [FoldCommNbr]FoldSlot // In folded numbering order
	VertAdjTab    []int                 // Block starts, original numbering, sorted, plus end
	VertDltTab    []int                 // Number shift of each block

	fldprocmin int
}

// Survivor reports whether rank p keeps a graph after the fold.
func (fp *FoldPlan) Survivor(p int) bool {
	return p >= fp.fldprocmin && p < fp.fldprocmin+fp.FldProcGlbNbr
}

// FldProcRank returns the original rank of folded rank i.
func (fp *FoldPlan) FldProcRank(i int) int {
	return fp.fldprocmin + i
}

// FoldVertex returns the folded global number of original global vertex v.
func (fp *FoldPlan) FoldVertex(v int) int {
	k := sort.SearchInts(fp.VertAdjTab, v+1) - 1
	return v + fp.VertDltTab[k]
}

type foldChunk struct {
	src, dst int // Original ranks
	start    int // Original global number
	cnt      int
}

type foldBlock struct {
	start, cnt, fldstart int
}

// FoldHalf returns the first rank and the number of the processes that survive
// a fold of procglbnbr processes onto half partval.
func FoldHalf(procglbnbr, partval int) (fldprocmin, fldprocnbr int) {
	fldprocnbr = (procglbnbr + 1) / 2
	if partval == 1 {
		fldprocmin = fldprocnbr
		fldprocnbr = procglbnbr - fldprocnbr
	}
	return
}

/*
FoldComm computes the fold plan of g onto the first ceil(P/2) processes
(partval 0) or the last floor(P/2) ones (partval 1). Surviving processes get a
balanced share of the vertices, keeping the head of their own range. The
surplus of the other processes is assigned in rank order to the receivers in
rank order, no process sending or receiving more than FoldCommNbr chunks: the
chunk reaching either bound takes whatever the sender still has, and a
receiver at its bound takes no more chunks even when short of its share.
*/
func FoldComm(g *Dgraph, partval int) (fp *FoldPlan, err error) {
	if partval != 0 && partval != 1 {
		return nil, ErrPartVal
	}
	var (
		procglbnbr                = g.ProcGlbNbr
		fldprocmin, fldprocglbnbr = FoldHalf(procglbnbr, partval)
	)
	if fldprocglbnbr == 0 {
		return nil, fmt.Errorf("fold of %d processes onto half %d: %w", procglbnbr, partval, ErrFoldTooFewProcs)
	}
	var (
		vertglbnbr = g.VertGlbNbr
		keep       = make([]int, fldprocglbnbr)
		deficit    = make([]int, fldprocglbnbr)
		sndcnt     = make([]int, procglbnbr)
		rcvcnt     = make([]int, fldprocglbnbr)
		chunks     []foldChunk
	)
	for i := range keep {
		target := vertglbnbr / fldprocglbnbr
		if i < vertglbnbr%fldprocglbnbr {
			target++
		}
		keep[i] = min(g.ProcCntTab[fldprocmin+i], target)
		deficit[i] = target - keep[i]
	}
	for p, r := 0, 0; p < procglbnbr; p++ {
		offset := 0
		if i := p - fldprocmin; i >= 0 && i < fldprocglbnbr {
			offset = keep[i]
		}
		for rem := g.ProcCntTab[p] - offset; rem > 0; {
			for r < fldprocglbnbr && deficit[r] <= 0 {
				r++
			}
			dst, cnt := r, 0
			if dst < fldprocglbnbr {
				cnt = min(rem, deficit[dst])
			} else { // Receivers closed early, least loaded in chunks takes the rest
				dst, cnt = 0, rem
				for i := range rcvcnt {
					if rcvcnt[i] < rcvcnt[dst] {
						dst = i
					}
				}
			}
			if rcvcnt[dst] == FoldCommNbr {
				return nil, fmt.Errorf("fold of rank %d needs more than %d chunks per receiver: %w",
					p, FoldCommNbr, ErrFoldCommOverflow)
			}
			if sndcnt[p] == FoldCommNbr-1 || rcvcnt[dst] == FoldCommNbr-1 {
				cnt = rem
			}
			chunks = append(chunks, foldChunk{
				src:   p,
				dst:   fldprocmin + dst,
				start: g.ProcVrtTab[p] + offset,
				cnt:   cnt,
			})
			sndcnt[p]++
			rcvcnt[dst]++
			deficit[dst] -= cnt
			if rcvcnt[dst] == FoldCommNbr {
				deficit[dst] = min(deficit[dst], 0)
			}
			offset += cnt
			rem -= cnt
		}
	}

	var (
		me     = g.ProcLocNum
		blocks = make([]foldBlock, 0, fldprocglbnbr+len(chunks))
		fldbeg = make([]int, fldprocglbnbr+1) // Next folded number of each receiver
	)
	fp = &FoldPlan{
		PartVal:       partval,
		FldProcGlbNbr: fldprocglbnbr,
		FldProcNum:    -1,
		Role:          RolePureSender,
		FldProcVrtTab: make([]int, fldprocglbnbr+1),
	}
	fp.FldProcVrtTab[0] = g.Base
	for i := 0; i < fldprocglbnbr; i++ {
		fldcnt := keep[i]
		for _, c := range chunks {
			if c.dst == fldprocmin+i {
				fldcnt += c.cnt
			}
		}
		fp.FldProcVrtTab[i+1] = fp.FldProcVrtTab[i] + fldcnt
		fldbeg[i] = fp.FldProcVrtTab[i] + keep[i]
		blocks = append(blocks, foldBlock{g.ProcVrtTab[fldprocmin+i], keep[i], fp.FldProcVrtTab[i]})
	}
	for _, c := range chunks {
		i := c.dst - fldprocmin
		blocks = append(blocks, foldBlock{c.start, c.cnt, fldbeg[i]})
		fldbeg[i] += c.cnt
		if c.src == me {
			fp.SendTab[fp.SendNbr] = FoldSlot{Proc: c.dst, VertGlbMin: c.start, VertNbr: c.cnt}
			fp.SendNbr++
		}
		if c.dst == me {
			fp.RecvTab[fp.RecvNbr] = FoldSlot{Proc: c.src, VertGlbMin: c.start, VertNbr: c.cnt}
			fp.RecvNbr++
		}
	}
	if i := me - fldprocmin; i >= 0 && i < fldprocglbnbr {
		fp.FldProcNum = i
		fp.KeepNbr = keep[i]
		fp.Role = RolePureReceiver
		if fp.SendNbr > 0 {
			fp.Role = RoleSenderReceiver
		}
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].start < blocks[j].start })
	for _, b := range blocks {
		if b.cnt == 0 {
			continue
		}
		fp.VertAdjTab = append(fp.VertAdjTab, b.start)
		fp.VertDltTab = append(fp.VertDltTab, b.fldstart-b.start)
	}
	fp.VertAdjTab = append(fp.VertAdjTab, g.ProcVrtTab[procglbnbr])
	fp.fldprocmin = fldprocmin
	return
}
