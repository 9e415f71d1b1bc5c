package nucleus

// ProcQueue is a circular doubly linked queue threaded through the Procs'
// own link fields, so queue membership never allocates.  Only the tail is
// stored; tail.next is the head.  A Proc sits on at most one ProcQueue at
// a time: the free list, one ready queue, or one semaphore's wait queue.
type ProcQueue struct {
	tail *Proc
}

// Empty returns true if the queue holds no Procs.
func (q *ProcQueue) Empty() bool {
	return q.tail == nil
}

// Head returns the oldest Proc without unlinking it, nil if empty.
func (q *ProcQueue) Head() *Proc {
	if q.tail == nil {
		return nil
	}
	return q.tail.next
}

// Insert appends p at the tail.  p must not currently be on any queue.
func (q *ProcQueue) Insert(p *Proc) {
	if q.tail == nil {
		p.next = p
		p.prev = p
	} else {
		head := q.tail.next
		p.next = head
		p.prev = q.tail
		q.tail.next = p
		head.prev = p
	}
	q.tail = p
}

// Push inserts p at the head, so the next RemoveHead returns it.  p must
// not currently be on any queue.
func (q *ProcQueue) Push(p *Proc) {
	q.Insert(p)
	q.tail = p.prev
}

// RemoveHead unlinks and returns the oldest Proc, nil if the queue is empty.
func (q *ProcQueue) RemoveHead() *Proc {
	if q.tail == nil {
		return nil
	}
	return q.Remove(q.tail.next)
}

// Remove unlinks p from wherever it sits in the queue.  Returns nil,
// leaving everything untouched, if the queue does not contain p.  This is
// the one O(n) operation; process counts are small and bounded so no
// auxiliary index is kept.
func (q *ProcQueue) Remove(p *Proc) *Proc {
	if q.tail == nil {
		return nil
	}
	cur := q.tail
	for {
		if cur == p {
			if p.next == p {
				q.tail = nil
			} else {
				p.prev.next = p.next
				p.next.prev = p.prev
				if q.tail == p {
					q.tail = p.prev
				}
			}
			p.next = nil
			p.prev = nil
			return p
		}
		cur = cur.next
		if cur == q.tail {
			return nil
		}
	}
}
