package comm

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

/*
Run starts size processes, each executing fn with its world communicator, and
returns once all of them have returned. The first non-nil error is returned,
tagged with the failing rank. A process that fails without telling its peers
through a collective leaves them blocked, exactly as a real message-passing
job would hang.
*/
func Run(size int, fn func(c *Comm) error) error {
	if size < 1 {
		return fmt.Errorf("run with %d processes: %w", size, ErrRankRange)
	}
	var (
		g     errgroup.Group
		comms = NewWorld(size)
	)
	for n := 0; n < size; n++ {
		c := comms[n]
		g.Go(func() error {
			if err := fn(c); err != nil {
				return fmt.Errorf("rank %d: %w", c.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
