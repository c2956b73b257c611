// Package linkedlist provides the singly linked list of integers that the
// built-in actions operate on. It implements domain.State.
package linkedlist

import (
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Node is a single element of the list.
type Node struct {
	Value int
	Next  *Node
}

// List is a singly linked list. The zero value is an empty list.
type List struct {
	head *Node
	size int
}

var _ domain.State = (*List)(nil)

// New creates an empty list.
func New() *List {
	return &List{}
}

// NewState is a domain.StateFactory producing empty lists.
func NewState() domain.State {
	return New()
}

// FromValues builds a list whose head-to-tail order matches values.
func FromValues(values ...int) *List {
	l := New()
	for i := len(values) - 1; i >= 0; i-- {
		l.Push(values[i])
	}
	return l
}

// Push adds a new node at the head of the list.
func (l *List) Push(v int) {
	l.head = &Node{Value: v, Next: l.head}
	l.size++
}

// Head returns the first node, or nil for an empty list.
func (l *List) Head() *Node {
	return l.head
}

// Len returns the number of nodes.
func (l *List) Len() int {
	return l.size
}

// Reverse reverses the list in place.
func (l *List) Reverse() {
	var prev *Node
	current := l.head
	for current != nil {
		next := current.Next
		current.Next = prev
		prev = current
		current = next
	}
	l.head = prev
}

// Values returns the values from head to tail.
func (l *List) Values() []int {
	values := make([]int, 0, l.size)
	for n := l.head; n != nil; n = n.Next {
		values = append(values, n.Value)
	}
	return values
}

// Clone returns a deep copy sharing no nodes with l.
func (l *List) Clone() domain.State {
	return l.Copy()
}

// Copy is the typed form of Clone.
func (l *List) Copy() *List {
	cp := &List{size: l.size}
	var tail *Node
	for n := l.head; n != nil; n = n.Next {
		node := &Node{Value: n.Value}
		if tail == nil {
			cp.head = node
		} else {
			tail.Next = node
		}
		tail = node
	}
	return cp
}

// String renders the list from head to tail, e.g. "3, 2, 1".
func (l *List) String() string {
	parts := make([]string, 0, l.size)
	for n := l.head; n != nil; n = n.Next {
		parts = append(parts, strconv.Itoa(n.Value))
	}
	return strings.Join(parts, ", ")
}
