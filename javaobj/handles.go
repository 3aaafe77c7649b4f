package javaobj

import "github.com/pkg/errors"

// Handle is the 32-bit identifier the wire format assigns, in stream order,
// to every referenceable entity.
type Handle uint32

// baseWireHandle is the handle of the first entity any stream (or
// post-reset sub-stream) produces.
const baseWireHandle Handle = 0x7E0000

// handleTable is the append-only store backing TC_REFERENCE lookups, with
// Reset and bounds-checked Get in one place.
type handleTable struct {
	entities  []interface{}
	maxHandle int
}

func newHandleTable(maxHandle int) *handleTable {
	return &handleTable{maxHandle: maxHandle}
}

// Assign registers entity at the next handle and returns it.
func (h *handleTable) Assign(entity interface{}) (Handle, error) {
	if h.maxHandle > 0 && len(h.entities) >= h.maxHandle {
		return 0, errors.Wrapf(ErrMalformedStream,
			"handle table exceeds configured maximum of %d entries", h.maxHandle)
	}
	idx := len(h.entities)
	h.entities = append(h.entities, entity)
	return baseWireHandle + Handle(idx), nil
}

// Reserve allocates a handle slot without a value yet, returning the handle
// and a setter to populate it later. This is what lets a cyclic object
// resolve a back-reference to itself while its own fields are still being
// read (the instance is "reserved" before any field is decoded).
func (h *handleTable) Reserve() (Handle, func(interface{}), error) {
	handle, err := h.Assign(nil)
	if err != nil {
		return 0, nil, err
	}
	idx := int(handle - baseWireHandle)
	return handle, func(v interface{}) { h.entities[idx] = v }, nil
}

// Get resolves a previously assigned handle.
func (h *handleTable) Get(handle Handle) (interface{}, error) {
	if handle < baseWireHandle {
		return nil, errors.Wrapf(ErrUnknownHandle, "handle %#x below base", handle)
	}
	idx := int(handle - baseWireHandle)
	if idx < 0 || idx >= len(h.entities) {
		return nil, errors.Wrapf(ErrUnknownHandle, "handle %#x not assigned", handle)
	}
	return h.entities[idx], nil
}

// Reset clears the table; the next Assign again yields baseWireHandle.
func (h *handleTable) Reset() {
	h.entities = h.entities[:0]
}
