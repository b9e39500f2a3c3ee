// Package arena provides index-addressed storage for tree nodes.
//
// Both the reference taxonomy and the data file trees keep their nodes in an
// [Arena] and link them through [ID] values instead of pointers. Pruning and
// insertion then become operations on ID slices, and parent links carry no
// ownership.
package arena

import (
	"fmt"

	"fortio.org/safecast"
)

// ID addresses an element of an [Arena]. IDs are 1-based; the zero ID means
// "no element" and is used for absent parents.
type ID uint32

// None is the zero ID.
const None ID = 0

// Valid reports whether id refers to an element.
func (id ID) Valid() bool { return id != None }

// Arena is an append-only store addressed by [ID].
// The zero value is ready to use.
type Arena[T any] struct {
	data []T
}

// New creates an arena with room for capHint elements.
func New[T any](capHint int) *Arena[T] {
	return &Arena[T]{data: make([]T, 0, capHint)}
}

// Allocate appends value and returns its ID.
// It panics if the arena outgrows the ID space.
func (a *Arena[T]) Allocate(value T) ID {
	a.data = append(a.data, value)
	id, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("arena overflow: %w", err))
	}
	return ID(id)
}

// Get returns a pointer to the element with the given ID, or nil for
// [None] and out-of-range IDs.
func (a *Arena[T]) Get(id ID) *T {
	if id == None || int(id) > len(a.data) {
		return nil
	}
	return &a.data[id-1]
}

// Len returns the number of allocated elements.
func (a *Arena[T]) Len() int { return len(a.data) }

// IDs returns all IDs in allocation order.
func (a *Arena[T]) IDs() []ID {
	ids := make([]ID, len(a.data))
	for i := range a.data {
		ids[i] = ID(i + 1)
	}
	return ids
}

// Slice exposes the backing storage. READONLY.
func (a *Arena[T]) Slice() []T { return a.data }
