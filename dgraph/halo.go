package dgraph

import (
	"fmt"

	"github.com/notargets/gopart/comm"
)

// HaloRequest is a halo exchange in flight.
type HaloRequest[T any] struct {
	reqs []*comm.Request
	err  error
}

/*
HaloAsync starts the exchange of the per-vertex values of data, indexed from
zero for vertex Base, filling its ghost entries with the values of their
owners. data must hold VertGstNbr entries. The ghost tables are built first
when missing, which makes the call collective.
*/
func HaloAsync[T any](g *Dgraph, data []T) (hr *HaloRequest[T], err error) {
	if err = g.Ghst(); err != nil {
		return
	}
	if len(data) < g.VertGstNbr {
		return nil, fmt.Errorf("halo of %d values for %d local and ghost vertices: %w",
			len(data), g.VertGstNbr, ErrInvalidGraph)
	}
	var (
		base = g.Base
		dsp  = g.ghostRanges()
		snd  = make([][]T, g.ProcNgbNbr)
	)
	hr = &HaloRequest[T]{reqs: make([]*comm.Request, 0, 2*g.ProcNgbNbr)}
	for i, p := range g.ProcNgbTab {
		r, e := comm.Irecv(g.Comm, data[dsp[i]-base:dsp[i+1]-base],
			p, procTag(kindHalo, g.ProcGlbNbr, p))
		if e != nil {
			return nil, e
		}
		hr.reqs = append(hr.reqs, r)
		snd[i] = make([]T, 0, g.ProcSndTab[p])
	}
	vertsidnum := base
	for _, s := range g.ProcSidTab {
		if s < 0 {
			vertsidnum -= s
			continue
		}
		snd[s] = append(snd[s], data[vertsidnum-base])
	}
	for i, p := range g.ProcNgbTab {
		r, e := comm.Isend(g.Comm, snd[i], p, procTag(kindHalo, g.ProcGlbNbr, g.ProcLocNum))
		if e != nil {
			return nil, e
		}
		hr.reqs = append(hr.reqs, r)
	}
	return
}

// Wait completes the exchange.
func (hr *HaloRequest[T]) Wait() error {
	if hr.err == nil {
		hr.err = comm.Waitall(hr.reqs)
	}
	return hr.err
}

// HaloSync exchanges ghost values and returns once data is up to date.
func HaloSync[T any](g *Dgraph, data []T) error {
	hr, err := HaloAsync(g, data)
	if err != nil {
		return err
	}
	return hr.Wait()
}
