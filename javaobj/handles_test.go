package javaobj

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleTableAssignAndGet(t *testing.T) {
	h := newHandleTable(0)
	h1, err := h.Assign("a")
	require.NoError(t, err)
	require.Equal(t, baseWireHandle, h1)

	h2, err := h.Assign("b")
	require.NoError(t, err)
	require.Equal(t, baseWireHandle+1, h2)

	v, err := h.Get(h1)
	require.NoError(t, err)
	require.Equal(t, "a", v)
}

func TestHandleTableReserveThenSet(t *testing.T) {
	h := newHandleTable(0)
	handle, setHandle, err := h.Reserve()
	require.NoError(t, err)

	// Before the setter runs, the slot resolves to nil (mid-construction
	// self-reference sees the zero value, not an error).
	v, err := h.Get(handle)
	require.NoError(t, err)
	require.Nil(t, v)

	setHandle("resolved")
	v, err = h.Get(handle)
	require.NoError(t, err)
	require.Equal(t, "resolved", v)
}

func TestHandleTableUnknownHandle(t *testing.T) {
	h := newHandleTable(0)
	_, err := h.Get(baseWireHandle)
	require.ErrorIs(t, err, ErrUnknownHandle)

	_, err = h.Get(baseWireHandle - 1)
	require.ErrorIs(t, err, ErrUnknownHandle)
}

func TestHandleTableMaxHandlesExceeded(t *testing.T) {
	h := newHandleTable(2)
	_, err := h.Assign("a")
	require.NoError(t, err)
	_, err = h.Assign("b")
	require.NoError(t, err)
	_, err = h.Assign("c")
	require.ErrorIs(t, err, ErrMalformedStream)
}

func TestHandleTableReset(t *testing.T) {
	h := newHandleTable(0)
	h1, err := h.Assign("a")
	require.NoError(t, err)

	h.Reset()

	h2, err := h.Assign("b")
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}
