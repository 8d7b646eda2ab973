package events

import (
	"io"
	"time"
)

// Socket represents a messaging socket that can send and receive messages.
// It abstracts the transport so tests can swap mangos for an in-memory hub.
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
}

// ListenSocket is a socket that can bind to an address.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// SubscribeSocket is a SUB socket that dials a publisher and filters by prefix.
type SubscribeSocket interface {
	Socket
	Dial(addr string) error
	Subscribe(topic []byte) error
}

// SocketFactory creates PUB and SUB sockets.
type SocketFactory interface {
	NewPubSocket() (ListenSocket, error)
	NewSubSocket() (SubscribeSocket, error)
}
