package topology

import "errors"

// Sentinel errors returned by the network and node setters.
var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrNodeExists    = errors.New("node already exists")
	ErrNodeDestroyed = errors.New("node is destroyed")
	ErrNilNode       = errors.New("nil node")
	ErrSelfLink      = errors.New("node cannot link to itself")
	ErrAlreadyLinked = errors.New("nodes are already linked")
	ErrNotLinked     = errors.New("nodes are not linked")
	ErrInvalidSlack  = errors.New("invalid slack value")
	ErrInvalidColor  = errors.New("invalid cable color")
	ErrInvalidRot    = errors.New("invalid rotation")
)
