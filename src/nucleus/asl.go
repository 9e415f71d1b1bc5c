package nucleus

import (
	"unsafe"
)

// semDesc is one active semaphore: a semaphore address with a non-empty
// wait queue.  Descriptors come from a fixed arena and go back to the
// free list the moment their queue drains, so the active list holds
// exactly the semaphores somebody is blocked on.
type semDesc struct {
	next  *semDesc
	key   uintptr
	procs ProcQueue
}

// ASL is the active semaphore list: a singly linked list of descriptors
// sorted strictly ascending by semaphore address, bounded by two permanent
// sentinels (key 0 and key max) so the search loop needs no boundary
// checks.  The semaphore's identity is the address of its counter cell.
type ASL struct {
	active *semDesc
	free   *semDesc
	descs  [MaxProc + 2]semDesc
}

func (a *ASL) init() {
	a.descs[0].key = 0
	a.descs[1].key = ^uintptr(0)
	a.descs[0].next = &a.descs[1]
	a.active = &a.descs[0]
	a.free = nil
	for i := 2; i < len(a.descs); i++ {
		a.descs[i].next = a.free
		a.free = &a.descs[i]
	}
}

func semKey(sem *int32) uintptr {
	return uintptr(unsafe.Pointer(sem))
}

// findPrev returns the descriptor after which key belongs.  If a
// descriptor for key exists it is exactly findPrev(key).next.  The max
// sentinel guarantees termination.
func (a *ASL) findPrev(key uintptr) *semDesc {
	prev := a.active
	for prev.next.key < key {
		prev = prev.next
	}
	return prev
}

// InsertBlocked queues p at the tail of sem's wait queue, creating the
// descriptor if this is the first waiter.  Records the blocking address
// on p.  Returns false if the descriptor arena is exhausted.
func (a *ASL) InsertBlocked(sem *int32, p *Proc) bool {
	key := semKey(sem)
	prev := a.findPrev(key)
	d := prev.next
	if d.key != key {
		d = a.free
		if d == nil {
			return false
		}
		a.free = d.next
		d.key = key
		d.procs = ProcQueue{}
		d.next = prev.next
		prev.next = d
	}
	d.procs.Insert(p)
	p.sem = sem
	return true
}

// RemoveBlocked unlinks and returns the head of sem's wait queue, nil if
// no descriptor for sem exists.  A drained descriptor is recycled.
func (a *ASL) RemoveBlocked(sem *int32) *Proc {
	key := semKey(sem)
	prev := a.findPrev(key)
	d := prev.next
	if d.key != key {
		return nil
	}
	p := d.procs.RemoveHead()
	if p == nil {
		return nil
	}
	p.sem = nil
	a.recycleIfEmpty(prev, d)
	return p
}

// OutBlocked unlinks p from whichever semaphore it is blocked on, using
// p's own recorded address to find the descriptor.  Returns nil, leaving
// all structures untouched, if p is not blocked anywhere.  Used during
// forced termination.
func (a *ASL) OutBlocked(p *Proc) *Proc {
	if p.sem == nil {
		return nil
	}
	key := semKey(p.sem)
	prev := a.findPrev(key)
	d := prev.next
	if d.key != key {
		return nil
	}
	if d.procs.Remove(p) == nil {
		return nil
	}
	p.sem = nil
	a.recycleIfEmpty(prev, d)
	return p
}

// HeadBlocked peeks at the head of sem's wait queue without removing it.
func (a *ASL) HeadBlocked(sem *int32) *Proc {
	key := semKey(sem)
	d := a.findPrev(key).next
	if d.key != key {
		return nil
	}
	return d.procs.Head()
}

func (a *ASL) recycleIfEmpty(prev, d *semDesc) {
	if !d.procs.Empty() {
		return
	}
	prev.next = d.next
	d.key = 0
	d.next = a.free
	a.free = d
}
