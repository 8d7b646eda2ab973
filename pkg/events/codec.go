package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// Topic prefixes every frame so SUB sockets can filter on it.
var Topic = []byte("CBL:")

// Encode frames e as Topic followed by snappy-compressed JSON.
func Encode(e Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind, err)
	}
	frame := make([]byte, len(Topic), len(Topic)+snappy.MaxEncodedLen(len(data)))
	copy(frame, Topic)
	return append(frame, snappy.Encode(nil, data)...), nil
}

// Decode reverses Encode and validates the event.
func Decode(frame []byte) (Event, error) {
	if !bytes.HasPrefix(frame, Topic) {
		return Event{}, fmt.Errorf("%w: missing topic prefix", ErrDecode)
	}
	data, err := snappy.Decode(nil, frame[len(Topic):])
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
