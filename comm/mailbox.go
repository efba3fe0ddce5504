package comm

import "sync"

// msgKey identifies a message stream: messages with the same key are
// delivered in posting order.
type msgKey struct {
	ctx      ctxID
	src, tag int
}

/*
MailBox is the receiving end of one process. Every process owns exactly one
box; any process may post into it, only the owner takes messages out.
*/
type MailBox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queues map[msgKey][]any
}

func newMailBox() (mb *MailBox) {
	mb = &MailBox{
		queues: make(map[msgKey][]any),
	}
	mb.cond = sync.NewCond(&mb.mu)
	return mb
}

// PostMessage appends msg to the stream and wakes the owner.
func (mb *MailBox) PostMessage(key msgKey, msg any) {
	mb.mu.Lock()
	mb.queues[key] = append(mb.queues[key], msg)
	mb.mu.Unlock()
	mb.cond.Broadcast()
}

// take pops the oldest message of a stream. The caller holds mb.mu.
func (mb *MailBox) take(key msgKey) (msg any, ok bool) {
	q := mb.queues[key]
	if len(q) == 0 {
		return nil, false
	}
	msg = q[0]
	q[0] = nil
	if len(q) == 1 {
		delete(mb.queues, key)
	} else {
		mb.queues[key] = q[1:]
	}
	return msg, true
}

// Pending returns the number of undelivered messages, all streams included.
func (mb *MailBox) Pending() (n int) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for _, q := range mb.queues {
		n += len(q)
	}
	return
}
