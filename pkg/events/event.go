// Package events carries topology changes between processes. A simulation
// publishes Events over a PUB socket; a subscriber decodes them and applies
// them to a local topology.Network.
package events

import (
	"fmt"

	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Kind is the type of a topology change.
type Kind string

const (
	KindSpawn   Kind = "spawn"
	KindDestroy Kind = "destroy"
	KindMove    Kind = "move"
	KindRotate  Kind = "rotate"
	KindLink    Kind = "link"
	KindUnlink  Kind = "unlink"
	KindSlack   Kind = "slack"
	KindColor   Kind = "color"
	KindReset   Kind = "reset"
)

// Kinds lists every known kind.
func Kinds() []Kind {
	return []Kind{KindSpawn, KindDestroy, KindMove, KindRotate, KindLink, KindUnlink, KindSlack, KindColor, KindReset}
}

// Event is one topology change. Which fields matter depends on Kind; for
// link and unlink Node is the owner and Peer the neighbour.
type Event struct {
	Kind     Kind                `json:"kind"`
	Seq      uint64              `json:"seq,omitempty"`
	Node     topology.NodeID     `json:"node,omitempty"`
	Peer     topology.NodeID     `json:"peer,omitempty"`
	Variant  topology.Variant    `json:"variant,omitempty"`
	X        float64             `json:"x,omitempty"`
	Y        float64             `json:"y,omitempty"`
	Rotation topology.Rotation   `json:"rotation,omitempty"`
	Slack    float64             `json:"slack,omitempty"`
	Color    topology.CableColor `json:"color,omitempty"`
	Nodes    []topology.NodeID   `json:"nodes,omitempty"`
}

// Validate checks that the fields Kind needs are present.
func (e Event) Validate() error {
	needNode := func() error {
		if e.Node == topology.NilID {
			return fmt.Errorf("%w: %s without node", ErrInvalidEvent, e.Kind)
		}
		return nil
	}

	switch e.Kind {
	case KindSpawn, KindDestroy, KindMove, KindReset:
		return needNode()
	case KindRotate:
		if err := needNode(); err != nil {
			return err
		}
		if !e.Rotation.Valid() {
			return fmt.Errorf("%w: rotation %d", ErrInvalidEvent, e.Rotation)
		}
		return nil
	case KindLink, KindUnlink:
		if err := needNode(); err != nil {
			return err
		}
		if e.Peer == topology.NilID {
			return fmt.Errorf("%w: %s without peer", ErrInvalidEvent, e.Kind)
		}
		return nil
	case KindSlack, KindColor:
		if len(e.Nodes) == 0 {
			return fmt.Errorf("%w: %s without nodes", ErrInvalidEvent, e.Kind)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

// Spawn builds a spawn event for a node.
func Spawn(n topology.Mutable) Event {
	p := n.Position()
	return Event{Kind: KindSpawn, Node: n.ID(), Variant: n.Variant(), X: p.X, Y: p.Y, Rotation: n.Rotation()}
}
