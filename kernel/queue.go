package kernel

// queue is a FIFO of descriptors linked through descriptor.next.
//
// A descriptor must be in at most one queue at a time; nothing checks this.
type queue struct {
	head TaskID
	tail TaskID
	n    int
}

func newQueue() queue {
	return queue{head: NoTask, tail: NoTask}
}

func (q *queue) empty() bool { return q.head == NoTask }
func (q *queue) len() int    { return q.n }

// push appends d at the tail of q.
func (p *pool) push(q *queue, d *descriptor) {
	d.next = NoTask
	if q.head == NoTask {
		q.head = d.id
	} else {
		p.desc[q.tail].next = d.id
	}
	q.tail = d.id
	q.n++
}

// pop removes and returns the head of q, or nil if q is empty.
func (p *pool) pop(q *queue) *descriptor {
	if q.head == NoTask {
		return nil
	}
	d := &p.desc[q.head]
	q.head = d.next
	if q.head == NoTask {
		q.tail = NoTask
	}
	d.next = NoTask
	q.n--
	return d
}

// ids lists the members of q from head to tail.
func (p *pool) ids(q *queue) []TaskID {
	out := make([]TaskID, 0, q.n)
	for id := q.head; id != NoTask; id = p.desc[id].next {
		out = append(out, id)
	}
	return out
}
