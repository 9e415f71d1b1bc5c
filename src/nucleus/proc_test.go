package nucleus

import "testing"

func TestProcArenaExhaustion(t *testing.T) {
	_, k := newRig(Config{})

	var got []*Proc
	for i := 0; i < MaxProc; i++ {
		p := k.allocProc()
		if p == nil {
			t.Fatalf("arena dry after %d allocations, want %d", i, MaxProc)
		}
		got = append(got, p)
	}
	if k.allocProc() != nil {
		t.Errorf("allocation succeeded past the arena size")
	}

	k.freeProc(got[7])
	p := k.allocProc()
	if p != got[7] {
		t.Errorf("expected the freed pcb back, got %p", p)
	}
}

func TestProcAllocZeroes(t *testing.T) {
	_, k := newRig(Config{})

	p := k.allocProc()
	p.cpuTime = 99
	p.state.PC = 0x1234
	var sem int32
	p.sem = &sem
	k.freeProc(p)

	q := k.allocProc()
	if q != p {
		t.Fatalf("free list handed out a different pcb")
	}
	if q.cpuTime != 0 || q.state.PC != 0 || q.sem != nil {
		t.Errorf("reallocated pcb not zeroed: %+v", q)
	}
}

func TestProcTree(t *testing.T) {
	var parent, a, b, c Proc

	if !parent.Leaf() {
		t.Errorf("childless proc is not a leaf")
	}
	parent.insertChild(&a)
	parent.insertChild(&b)
	parent.insertChild(&c)
	if parent.Leaf() {
		t.Errorf("proc with children is a leaf")
	}

	// removeChild peels oldest first
	if got := parent.removeChild(); got != &a {
		t.Errorf("removeChild got %p, want oldest %p", got, &a)
	}
	if a.parent != nil || a.sibNext != nil || a.sibPrev != nil {
		t.Errorf("removed child still linked into the tree")
	}
	if got := parent.removeChild(); got != &b {
		t.Errorf("removeChild got %p, want %p", got, &b)
	}
	if got := parent.removeChild(); got != &c {
		t.Errorf("removeChild got %p, want %p", got, &c)
	}
	if parent.removeChild() != nil {
		t.Errorf("removeChild on a leaf returned a proc")
	}
}

func TestProcOutChild(t *testing.T) {
	var parent, a, b, c Proc
	parent.insertChild(&a)
	parent.insertChild(&b)
	parent.insertChild(&c)

	var orphan Proc
	if orphan.outChild() != nil {
		t.Errorf("outChild on a parentless proc returned it")
	}

	// pull the middle child out of the ring
	if b.outChild() != &b {
		t.Errorf("outChild failed on a middle child")
	}
	if got := parent.removeChild(); got != &a {
		t.Errorf("after outChild oldest is %p, want %p", got, &a)
	}
	if got := parent.removeChild(); got != &c {
		t.Errorf("after outChild next is %p, want %p", got, &c)
	}
	if !parent.Leaf() {
		t.Errorf("parent should be a leaf again")
	}
}
