package objgraph

import "errors"

var (
	// ErrUnknownObject indicates a name that was never allocated or was dropped.
	ErrUnknownObject = errors.New("objgraph: unknown object")

	// ErrReleased indicates a name whose object has been reclaimed.
	ErrReleased = errors.New("objgraph: object released")

	// ErrDuplicateName indicates Alloc with a name already in use.
	ErrDuplicateName = errors.New("objgraph: duplicate name")

	// ErrTooManyChildren indicates a payload with no room for another child.
	ErrTooManyChildren = errors.New("objgraph: payload full")

	// ErrPayloadTooSmall indicates an ObjectSize that cannot hold the header.
	ErrPayloadTooSmall = errors.New("objgraph: object size must be at least 8 bytes")
)
