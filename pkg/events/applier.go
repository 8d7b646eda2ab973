package events

import (
	"fmt"

	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Applier consumes events.
type Applier interface {
	Apply(e Event) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(Event) error

func (f ApplierFunc) Apply(e Event) error { return f(e) }

// Tee applies each event to every applier in order and stops at the first error.
type Tee []Applier

func (t Tee) Apply(e Event) error {
	for _, a := range t {
		if err := a.Apply(e); err != nil {
			return err
		}
	}
	return nil
}

// NetworkApplier applies events to a topology.Network.
type NetworkApplier struct {
	Net *topology.Network
}

func (a NetworkApplier) Apply(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	net := a.Net
	switch e.Kind {
	case KindSpawn:
		node, err := topology.NewNode(e.Variant, e.Node, curve.V(e.X, e.Y), e.Rotation)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		return net.Add(node)
	case KindDestroy:
		return net.Destroy(e.Node)
	case KindMove:
		return net.Move(e.Node, curve.V(e.X, e.Y))
	case KindRotate:
		return net.Rotate(e.Node, e.Rotation)
	case KindLink:
		_, err := net.Link(e.Node, e.Peer)
		return err
	case KindUnlink:
		return net.Unlink(e.Node, e.Peer)
	case KindSlack:
		return net.SetSlack(topology.Slack(e.Slack), e.Nodes...)
	case KindColor:
		return net.SetColor(e.Color, e.Nodes...)
	case KindReset:
		return net.ResetLinks(e.Node)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
}
