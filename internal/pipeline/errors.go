package pipeline

import "errors"

var (
	// ErrNoCandidate means no parseable JSON object was found in the reply
	ErrNoCandidate = errors.New("no valid JSON object in model output")

	// ErrMalformedValue means a recovered object had fields of the wrong type
	ErrMalformedValue = errors.New("malformed value in model output")

	// ErrInference means the inference call itself failed
	ErrInference = errors.New("inference failed")
)

// ErrEmptyInput means the document text was blank; no inference is attempted
var ErrEmptyInput = errors.New("empty document text")
