package types

// GraphPart is the part number of a vertex in a two-way partition with an
// optional separator: 0 and 1 are the two sides, 2 the separator.
type GraphPart uint8

const (
	Part0 GraphPart = iota
	Part1
	PartSep
)

func (p GraphPart) String() string {
	return [...]string{"part0", "part1", "separator"}[p]
}

// Side returns the side index of a vertex, or -1 for separator vertices.
func (p GraphPart) Side() int {
	if p > Part1 {
		return -1
	}
	return int(p)
}
