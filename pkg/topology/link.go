package topology

import "bytes"

// Role says which side of a link a node is on. Only the owner computes and
// stores the cable geometry.
type Role int

const (
	RoleNeighbor Role = iota
	RoleOwner
)

func (r Role) String() string {
	if r == RoleOwner {
		return "owner"
	}
	return "neighbor"
}

// Link is an undirected connection with one designated owner.
type Link struct {
	Owner    NodeID
	Neighbor NodeID
}

// Has reports whether id is either endpoint.
func (l Link) Has(id NodeID) bool {
	return l.Owner == id || l.Neighbor == id
}

// RoleOf returns the role id plays in the link.
func (l Link) RoleOf(id NodeID) (Role, bool) {
	switch id {
	case l.Owner:
		return RoleOwner, true
	case l.Neighbor:
		return RoleNeighbor, true
	default:
		return RoleNeighbor, false
	}
}

// Other returns the endpoint that is not id.
func (l Link) Other(id NodeID) NodeID {
	if id == l.Owner {
		return l.Neighbor
	}
	return l.Owner
}

// pairKey identifies a link regardless of direction.
type pairKey struct {
	lo, hi NodeID
}

func keyOf(a, b NodeID) pairKey {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}
