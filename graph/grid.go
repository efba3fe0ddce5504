package graph

/*
GridNeighbors appends to ngb the neighbors of vertex v of a dimx×dimy×dimz
grid whose vertices are numbered base + x + dimx*(y + dimy*z), in ascending
order. Interior vertices of a 3D grid have 6 neighbors, 4 on a 2D slab.
*/
func GridNeighbors(ngb []int, base, dimx, dimy, dimz, v int) []int {
	var (
		x, y, z = GridCoords(base, dimx, dimy, v)
		planeSz = dimx * dimy
	)
	if z > 0 {
		ngb = append(ngb, v-planeSz)
	}
	if y > 0 {
		ngb = append(ngb, v-dimx)
	}
	if x > 0 {
		ngb = append(ngb, v-1)
	}
	if x < dimx-1 {
		ngb = append(ngb, v+1)
	}
	if y < dimy-1 {
		ngb = append(ngb, v+dimx)
	}
	if z < dimz-1 {
		ngb = append(ngb, v+planeSz)
	}
	return ngb
}

// GridCoords returns the position of vertex v in a grid of dimx×dimy planes.
func GridCoords(base, dimx, dimy, v int) (x, y, z int) {
	idx := v - base
	return idx % dimx, (idx / dimx) % dimy, idx / (dimx * dimy)
}

// Grid3D builds the centralized grid graph with unit loads.
func Grid3D(base, dimx, dimy, dimz int) (*Graph, error) {
	if dimx < 1 || dimy < 1 || dimz < 1 {
		return nil, ErrEmptyGrid
	}
	if base != 0 && base != 1 {
		return nil, ErrBase
	}
	var (
		nv   = dimx * dimy * dimz
		vert = make([]int, nv+1)
		edge = make([]int, 0, 6*nv)
	)
	vert[0] = base
	for v := base; v < nv+base; v++ {
		edge = GridNeighbors(edge, base, dimx, dimy, dimz, v)
		vert[v-base+1] = len(edge) + base
	}
	return New(base, vert, nil, nil, nil, edge, nil)
}
