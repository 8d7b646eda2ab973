package events

import "errors"

var (
	ErrUnknownKind  = errors.New("events: unknown kind")
	ErrInvalidEvent = errors.New("events: invalid event")
	ErrDecode       = errors.New("events: decode failed")
	ErrRecvTimeout  = errors.New("events: receive timeout")
	ErrSocketClosed = errors.New("events: socket closed")
)
