package nucleus

import (
	"calm/src/hardware"
)

// MaxProc is the size of the process control block arena.  Termination
// recursion over the process tree is bounded by it.
const MaxProc = 20

// Proc is one process control block.  Every Proc lives in the kernel's
// fixed arena; free ones sit on the free list using the same link fields
// as queue membership, so a Proc can never be simultaneously free and
// linked anywhere else.
type Proc struct {
	// queue links: free list, a ready queue, or a semaphore wait queue
	next *Proc
	prev *Proc

	// process tree: parent plus a circular ring of siblings.  child is
	// the tail of the ring (the youngest), child.sibNext the oldest.
	// These are separate from the queue links because a blocked process
	// is still somebody's child.
	parent  *Proc
	child   *Proc
	sibNext *Proc
	sibPrev *Proc

	// state is the processor snapshot from the last time this process
	// left the CPU.
	state hardware.State

	// cpuTime accumulates microseconds of CPU use, folded in on every trap.
	cpuTime uint64

	// sem is nil when runnable; otherwise the address of the semaphore
	// this process is blocked on.  It tells us which kind of queue the
	// Proc is sitting in without a tag.
	sem *int32

	// support is the process's support-level presence; nil for pure
	// kernel processes.  supportAddr is the machine address it was
	// registered under, which is what gets handed back to the caller.
	support     *hardware.Support
	supportAddr hardware.Word
}

// Leaf reports whether p has no children.
func (p *Proc) Leaf() bool {
	return p.child == nil
}

// CPUTime returns the accumulated CPU time in microseconds.
func (p *Proc) CPUTime() uint64 {
	return p.cpuTime
}

// insertChild makes c the youngest child of p.
func (p *Proc) insertChild(c *Proc) {
	c.parent = p
	if p.child == nil {
		c.sibNext = c
		c.sibPrev = c
	} else {
		head := p.child.sibNext
		c.sibNext = head
		c.sibPrev = p.child
		p.child.sibNext = c
		head.sibPrev = c
	}
	p.child = c
}

// removeChild unlinks and returns p's oldest child, nil if p is a leaf.
func (p *Proc) removeChild() *Proc {
	if p.child == nil {
		return nil
	}
	return p.child.sibNext.outChild()
}

// outChild unlinks c from its parent's child ring, wherever it sits.
// Returns nil if c has no parent, leaving everything untouched.
func (c *Proc) outChild() *Proc {
	p := c.parent
	if p == nil {
		return nil
	}
	if c.sibNext == c {
		p.child = nil
	} else {
		c.sibPrev.sibNext = c.sibNext
		c.sibNext.sibPrev = c.sibPrev
		if p.child == c {
			p.child = c.sibPrev
		}
	}
	c.parent = nil
	c.sibNext = nil
	c.sibPrev = nil
	return c
}

// allocProc pops a fresh Proc off the free list with every field zeroed.
// Returns nil if the arena is exhausted.
func (k *Kernel) allocProc() *Proc {
	p := k.freeList.RemoveHead()
	if p == nil {
		return nil
	}
	*p = Proc{}
	return p
}

// freeProc pushes p back onto the free list; the next allocation reuses
// it first.  The caller must already have unlinked p from every queue
// and from the tree.
func (k *Kernel) freeProc(p *Proc) {
	k.freeList.Push(p)
}

// pid is p's index in the arena, for log messages only.
func (k *Kernel) pid(p *Proc) int {
	for i := range k.procTable {
		if &k.procTable[i] == p {
			return i
		}
	}
	return -1
}
