package comm

import "fmt"

type reqKind uint8

const (
	reqSend reqKind = iota
	reqRecv
)

/*
Request tracks one non-blocking operation. Sends complete when posted; a
receive completes when Wait, Waitany or Waitall finds its message. Persistent
receives created by RecvInit are inactive until started and may be restarted
after each completion.
*/
type Request struct {
	c          *Comm
	kind       reqKind
	peer, tag  int
	persistent bool
	active     bool
	done       bool
	count      int
	msg        any
	deliver    func(msg any) (int, error)
	err        error
}

// Count returns the number of elements received by a completed receive.
func (r *Request) Count() int { return r.count }

// Active reports whether the request was started and not yet waited for.
func (r *Request) Active() bool { return r.active }

// Free deactivates a persistent request.
func (r *Request) Free() {
	r.active = false
	r.persistent = false
	r.msg = nil
}

// Start activates a persistent request.
func (r *Request) Start() error {
	if !r.persistent {
		return fmt.Errorf("start of non persistent request: %w", ErrInactive)
	}
	r.active = true
	r.done = false
	r.count = 0
	r.err = nil
	return nil
}

func Startall(reqs []*Request) (err error) {
	for _, r := range reqs {
		if r == nil {
			continue
		}
		if err = r.Start(); err != nil {
			return
		}
	}
	return
}

// Isend posts a copy of buf to process dst.
func Isend[T any](c *Comm, buf []T, dst, tag int) (*Request, error) {
	if tag < 0 {
		return nil, ErrTagRange
	}
	return isend(c, buf, dst, tag)
}

func isend[T any](c *Comm, buf []T, dst, tag int) (*Request, error) {
	if err := c.checkPeer(dst); err != nil {
		return nil, err
	}
	msg := make([]T, len(buf))
	copy(msg, buf)
	c.post(dst, tag, msg)
	return &Request{c: c, kind: reqSend, peer: dst, tag: tag, active: true, done: true, count: len(buf)}, nil
}

/*
Irecv posts a receive from process src. With a non-nil buf the message is
copied into buf and must fit; with a nil buf the message slice itself is kept
and is available through Received once the request completes.
*/
func Irecv[T any](c *Comm, buf []T, src, tag int) (*Request, error) {
	if tag < 0 {
		return nil, ErrTagRange
	}
	return irecv(c, buf, src, tag)
}

func irecv[T any](c *Comm, buf []T, src, tag int) (*Request, error) {
	if err := c.checkPeer(src); err != nil {
		return nil, err
	}
	r := &Request{c: c, kind: reqRecv, peer: src, tag: tag, active: true}
	r.deliver = func(msg any) (int, error) {
		data, ok := msg.([]T)
		if !ok {
			return 0, fmt.Errorf("receive from %d tag %d: %w", src, tag, ErrTypeMismatch)
		}
		if buf == nil {
			r.msg = data
			return len(data), nil
		}
		if len(data) > len(buf) {
			return 0, fmt.Errorf("receive from %d tag %d of %d elements into %d: %w",
				src, tag, len(data), len(buf), ErrTruncated)
		}
		return copy(buf, data), nil
	}
	return r, nil
}

// RecvInit creates an inactive persistent receive into buf.
func RecvInit[T any](c *Comm, buf []T, src, tag int) (r *Request, err error) {
	if r, err = Irecv(c, buf, src, tag); err != nil {
		return
	}
	r.persistent = true
	r.active = false
	return
}

// Received returns the message kept by a completed receive posted with a nil buffer.
func Received[T any](r *Request) []T {
	data, _ := r.msg.([]T)
	return data
}

// poll tries to complete r. The caller holds the owner's mailbox lock.
func (r *Request) poll() bool {
	if r.done {
		return true
	}
	msg, ok := r.c.box().take(msgKey{ctx: r.c.ctx, src: r.peer, tag: r.tag})
	if !ok {
		return false
	}
	r.count, r.err = r.deliver(msg)
	r.done = true
	return true
}

func (r *Request) finish() error {
	r.active = false
	return r.err
}

// Wait blocks until r completes.
func Wait(r *Request) error {
	if r == nil || !r.active {
		return nil
	}
	if r.kind == reqSend {
		return r.finish()
	}
	mb := r.c.box()
	mb.mu.Lock()
	for !r.poll() {
		mb.cond.Wait()
	}
	mb.mu.Unlock()
	return r.finish()
}

/*
Waitany blocks until one active request of reqs completes and returns its
index, in completion order rather than index order. It returns -1 when no
request is active.
*/
func Waitany(reqs []*Request) (int, error) {
	var (
		mb     *MailBox
		active bool
	)
	for i, r := range reqs {
		if r == nil || !r.active {
			continue
		}
		active = true
		if r.kind == reqSend {
			return i, r.finish()
		}
		mb = r.c.box()
	}
	if !active {
		return -1, nil
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for {
		for i, r := range reqs {
			if r == nil || !r.active {
				continue
			}
			if r.poll() {
				return i, r.finish()
			}
		}
		mb.cond.Wait()
	}
}

// Waitall waits for every request and returns the first error met.
func Waitall(reqs []*Request) (err error) {
	for _, r := range reqs {
		if e := Wait(r); e != nil && err == nil {
			err = e
		}
	}
	return
}
