package nlp

import "errors"

var (
	ErrUnknownTask      = errors.New("unknown task")
	ErrUnsupportedTask  = errors.New("task not supported by backend")
	ErrBackend          = errors.New("inference backend failed")
	ErrMalformedResult  = errors.New("malformed result")
	ErrTimeout          = errors.New("request timed out")
	ErrCorrelatorClosed = errors.New("correlator closed")
)
