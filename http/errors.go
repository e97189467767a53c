package http

import "errors"

// Usage errors. Those are panic values, as they signal a defect in the handler
// rather than anything related to the peer.
var (
	ErrAlreadyFinished    = errors.New("request was already finished")
	ErrConnectionLost     = errors.New("connection was lost")
	ErrProducerRegistered = errors.New("a producer is already registered")
	ErrContentClosed      = errors.New("content was already closed")
)
