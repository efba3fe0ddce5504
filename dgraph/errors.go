package dgraph

import "errors"

var (
	// ErrInvalidGraph indicates a distributed graph failing a structural check.
	ErrInvalidGraph = errors.New("dgraph: inconsistent distributed graph")
	// ErrPeerFailure is returned by processes that succeeded locally when a peer failed.
	ErrPeerFailure = errors.New("dgraph: operation failed on another process")
	// ErrBase indicates a base value other than 0 or 1.
	ErrBase = errors.New("dgraph: base value must be 0 or 1")
	// ErrPartVal indicates a fold half selector other than 0 or 1.
	ErrPartVal = errors.New("dgraph: fold part value must be 0 or 1")
	// ErrFoldTooFewProcs indicates a fold onto an empty half of the processes.
	ErrFoldTooFewProcs = errors.New("dgraph: not enough processes to fold")
	// ErrFoldCommOverflow indicates a fold needing more chunks than FoldCommNbr per receiver.
	ErrFoldCommOverflow = errors.New("dgraph: fold needs too many chunks")
	// ErrFrontier indicates a frontier vertex that is not local or listed twice.
	ErrFrontier = errors.New("dgraph: invalid frontier vertex")
	// ErrPartArray indicates a part array too short for the local vertices.
	ErrPartArray = errors.New("dgraph: part array too short")
	// ErrAnchorLoad indicates side loads smaller than the band loads they contain.
	ErrAnchorLoad = errors.New("dgraph: negative anchor load")
	// ErrInfoLength indicates a per-vertex info array shorter than the local vertex count.
	ErrInfoLength = errors.New("dgraph: vertex info array too short")
	// ErrInfoMismatch indicates that only some processes passed a vertex info array.
	ErrInfoMismatch = errors.New("dgraph: vertex info array passed by some processes only")
	// ErrMessageLength indicates a received array whose length disagrees with the plan.
	ErrMessageLength = errors.New("dgraph: received array of unexpected length")
)
