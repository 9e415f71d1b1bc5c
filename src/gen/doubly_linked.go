package gen

import (
	"github.com/cheekybits/genny/generic"
)

type Generic generic.Type

type GenericNodeDL struct {
	prev  *GenericNodeDL
	next  *GenericNodeDL
	value *Generic
}

// GenericDoublyLinkedList implements a doubly linked list
// that is not concurrent safe.
type GenericDoublyLinkedList struct {
	first *GenericNodeDL
	last  *GenericNodeDL
}

// Next returns the next element of the list, nil for the last node.
func (g *GenericNodeDL) Next() *GenericNodeDL {
	return g.next
}

// Prev returns the previous element of the list, nil for the first node.
func (g *GenericNodeDL) Prev() *GenericNodeDL {
	return g.prev
}

// Value returns the element's value.  Traversal functions hand out nodes,
// not values, so this is how you get at the payload.
func (g *GenericNodeDL) Value() *Generic {
	return g.value
}

// NewGenericDoublyLinkedList returns an empty doubly linked list.
// Note: It returns a value, not a pointer but the methods have
// pointer receivers.
func NewGenericDoublyLinkedList() GenericDoublyLinkedList {
	return GenericDoublyLinkedList{first: nil, last: nil}
}

// Empty returns true if the list is empty.
func (g *GenericDoublyLinkedList) Empty() bool {
	if g.first == nil {
		if g.last != nil {
			panic("invariant violated checking for Empty")
		}
		return true
	}
	return false
}

// Length returns the number of elements in the list.  This
// requires walking the list.
func (g *GenericDoublyLinkedList) Length() int {
	l := 0
	for n := g.first; n != nil; n = n.next {
		l++
	}
	return l
}

// First returns the first node in the list or a nil if the list is empty.
func (g *GenericDoublyLinkedList) First() *GenericNodeDL {
	if g.first == nil && g.last != nil {
		panic("invariant violated getting First()")
	}
	return g.first
}

// Last returns the last node in the list or a nil if the list is empty.
func (g *GenericDoublyLinkedList) Last() *GenericNodeDL {
	if g.last == nil && g.first != nil {
		panic("invariant violated getting Last()")
	}
	return g.last
}

// Push creates a new node at the front of the list and returns a pointer
// to its value so you can fill in the fields.
func (g *GenericDoublyLinkedList) Push() *Generic {
	v := new(Generic)
	n := &GenericNodeDL{value: v}
	if g.first == nil {
		if g.last != nil {
			panic("invariant of empty list is broken (Push)")
		}
		g.first = n
		g.last = n
		return v
	}
	old := g.first
	g.first = n
	old.prev = n
	n.next = old
	return v
}

// Append creates a new node at the end of the list and returns a pointer
// to its value so you can fill in the fields.
func (g *GenericDoublyLinkedList) Append() *Generic {
	v := new(Generic)
	n := &GenericNodeDL{value: v}
	if g.last == nil {
		if g.first != nil {
			panic("invariant of empty list is broken (Append)")
		}
		g.first = n
		g.last = n
		return v
	}
	old := g.last
	g.last = n
	old.next = n
	n.prev = old
	return v
}

// InsertBefore creates a new node in front of the given node and returns a
// pointer to its value.  The mark must be a member of this list.
func (g *GenericDoublyLinkedList) InsertBefore(mark *GenericNodeDL) *Generic {
	if mark == nil {
		panic("InsertBefore with a nil mark")
	}
	if mark == g.first {
		return g.Push()
	}
	v := new(Generic)
	n := &GenericNodeDL{value: v, prev: mark.prev, next: mark}
	mark.prev.next = n
	mark.prev = n
	return v
}

// RemoveFirst unlinks the first node and returns its value, nil if the
// list is empty.
func (g *GenericDoublyLinkedList) RemoveFirst() *Generic {
	if g.first == nil {
		return nil
	}
	return g.RemoveNode(g.first)
}

// RemoveNode unlinks the given node, which must be a member of this list,
// and returns its value.
func (g *GenericDoublyLinkedList) RemoveNode(n *GenericNodeDL) *Generic {
	if n.prev == nil {
		if g.first != n {
			panic("attempt to remove a node that is not a member (RemoveNode)")
		}
		g.first = n.next
	} else {
		n.prev.next = n.next
	}
	if n.next == nil {
		if g.last != n {
			panic("attempt to remove a node that is not a member (RemoveNode)")
		}
		g.last = n.prev
	} else {
		n.next.prev = n.prev
	}
	n.prev = nil
	n.next = nil
	return n.value
}

// TraverseGeneric walks the list front to back, calling fn on each value.
// Traversal stops early if fn returns an error, and that error is returned.
func (g *GenericDoublyLinkedList) TraverseGeneric(fn func(*Generic) error) error {
	for n := g.first; n != nil; n = n.next {
		if err := fn(n.value); err != nil {
			return err
		}
	}
	return nil
}
