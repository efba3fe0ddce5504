package graph

import "errors"

var (
	// ErrInvalidGraph indicates a graph that fails its consistency check.
	ErrInvalidGraph = errors.New("graph: inconsistent graph")
	// ErrEmptyGrid indicates a grid with a non-positive dimension.
	ErrEmptyGrid = errors.New("graph: grid dimensions must be positive")
	// ErrBase indicates a base value other than 0 or 1.
	ErrBase = errors.New("graph: base value must be 0 or 1")
)
