package types

import "errors"

// Sentinel errors shared across madbridge components.
var (
	// ErrFieldNotFound indicates a generic-view path could not be resolved.
	ErrFieldNotFound = errors.New("field not found")

	// ErrUnknownMessageType indicates a config name that does not resolve
	// to any registered dialect descriptor.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrUnresolvedName indicates a config cross-reference (modifier,
	// plugin, or trigger rule name) that does not resolve to a loaded
	// definition.
	ErrUnresolvedName = errors.New("unresolved name")

	// ErrDuplicateRuleName indicates two rules share the same name.
	ErrDuplicateRuleName = errors.New("duplicate rule name")

	// ErrMissingActionParameter indicates an action chain names a step
	// (delay, batch, modify) without its required parameters.
	ErrMissingActionParameter = errors.New("missing action parameter")

	// ErrBadFrame indicates a frame failed magic, length, or CRC
	// validation during parsing.
	ErrBadFrame = errors.New("malformed frame")
)
