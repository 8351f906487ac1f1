package model

import "errors"

var (
	// ErrStateRequired means a capability needed a composed state but none was supplied.
	ErrStateRequired = errors.New("state required")

	// ErrModel means model invocation failed or returned an unexpected shape.
	ErrModel = errors.New("model error")

	// ErrXMLParse means an XML model reply could not be parsed.
	ErrXMLParse = errors.New("xml parse error")

	// ErrResponseParse means a structured model reply lacked expected fields.
	ErrResponseParse = errors.New("response parse error")

	// ErrNotFound means a referenced room, entity, memory or document is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means an argument failed a precondition.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch means an embedding length does not match the configured dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
