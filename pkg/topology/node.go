// Package topology models cable endpoints and the links between them.
//
// Nodes belong to whatever simulation drives them. The geometry core only
// borrows them through the Node interface and must cope with a node being
// destroyed at any moment, so liveness is an atomic flag readable from any
// goroutine. The remaining mutable state is guarded by a per-node mutex.
package topology

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-cables/pkg/curve"
)

// NodeID identifies a node for its whole lifetime.
type NodeID = uuid.UUID

// NilID is the zero NodeID.
var NilID = uuid.Nil

// NewNodeID returns a fresh random NodeID.
func NewNodeID() NodeID {
	return uuid.New()
}

// ParseNodeID parses the canonical textual form of a NodeID.
func ParseNodeID(s string) (NodeID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilID, fmt.Errorf("parse node id %q: %w", s, err)
	}
	return id, nil
}

// Node is the capability set the geometry core needs from an endpoint.
type Node interface {
	ID() NodeID
	// ConnectionPoint is where cables attach, on the flat plane.
	ConnectionPoint() curve.Vec2
	Slack() Slack
	Color() CableColor
	IsDestroyed() bool
}

// Variant names the concrete node kinds.
type Variant string

const (
	VariantPole          Variant = "pole"
	VariantWallConnector Variant = "wall"
)

// base carries the state shared by all node variants.
type base struct {
	id        NodeID
	destroyed atomic.Bool

	mu       sync.RWMutex
	pos      curve.Vec2
	rotation Rotation
	slack    Slack
	color    CableColor
}

func newBase(id NodeID, pos curve.Vec2) base {
	if id == NilID {
		id = NewNodeID()
	}
	return base{id: id, pos: pos, slack: DefaultSlack, color: Copper}
}

func (b *base) ID() NodeID {
	return b.id
}

func (b *base) IsDestroyed() bool {
	return b.destroyed.Load()
}

// Destroy marks the node destroyed. It reports false if it already was.
func (b *base) Destroy() bool {
	return b.destroyed.CompareAndSwap(false, true)
}

// Position returns the node's draw position.
func (b *base) Position() curve.Vec2 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pos
}

// SetPosition moves the node.
func (b *base) SetPosition(p curve.Vec2) {
	b.mu.Lock()
	b.pos = p
	b.mu.Unlock()
}

// Rotation returns the node's facing.
func (b *base) Rotation() Rotation {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rotation
}

// SetRotation changes the node's facing.
func (b *base) SetRotation(r Rotation) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidRot, int(r))
	}
	b.mu.Lock()
	b.rotation = r
	b.mu.Unlock()
	return nil
}

func (b *base) Slack() Slack {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.slack
}

// SetSlack validates and stores a new slack value.
func (b *base) SetSlack(s Slack) error {
	snapped, err := ParseSlack(float64(s))
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.slack = snapped
	b.mu.Unlock()
	return nil
}

func (b *base) Color() CableColor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.color
}

// SetColor changes the cable colour selector.
func (b *base) SetColor(c CableColor) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidColor, int(c))
	}
	b.mu.Lock()
	b.color = c
	b.mu.Unlock()
	return nil
}

// Pole is a free-standing cable pole. Cables attach at its draw position.
type Pole struct {
	base
}

// NewPole creates a pole at pos. A nil id gets a random one.
func NewPole(id NodeID, pos curve.Vec2) *Pole {
	return &Pole{base: newBase(id, pos)}
}

func (p *Pole) ConnectionPoint() curve.Vec2 {
	return p.Position()
}

// Variant returns VariantPole.
func (p *Pole) Variant() Variant {
	return VariantPole
}

// wallOffsets are the attachment offsets of a wall connector per facing.
var wallOffsets = [4]curve.Vec2{
	North: {X: 0, Y: 0.6},
	East:  {X: 0.508, Y: 0.028},
	South: {X: 0, Y: -0.421},
	West:  {X: -0.508, Y: 0.028},
}

// WallConnector is mounted on a wall; its attachment point depends on which
// way it faces.
type WallConnector struct {
	base
}

// NewWallConnector creates a wall connector at pos facing rot.
func NewWallConnector(id NodeID, pos curve.Vec2, rot Rotation) *WallConnector {
	w := &WallConnector{base: newBase(id, pos)}
	if rot.Valid() {
		w.rotation = rot
	}
	return w
}

func (w *WallConnector) ConnectionPoint() curve.Vec2 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pos.Add(wallOffsets[w.rotation])
}

// Variant returns VariantWallConnector.
func (w *WallConnector) Variant() Variant {
	return VariantWallConnector
}

// Mutable is implemented by the node variants in this package. The network
// uses it to apply simulation changes.
type Mutable interface {
	Node
	Variant() Variant
	Destroy() bool
	Position() curve.Vec2
	SetPosition(curve.Vec2)
	Rotation() Rotation
	SetRotation(Rotation) error
	SetSlack(Slack) error
	SetColor(CableColor) error
}

var (
	_ Mutable = (*Pole)(nil)
	_ Mutable = (*WallConnector)(nil)
)

// NewNode builds a node of the given variant.
func NewNode(v Variant, id NodeID, pos curve.Vec2, rot Rotation) (Mutable, error) {
	switch v {
	case VariantPole, "":
		return NewPole(id, pos), nil
	case VariantWallConnector:
		return NewWallConnector(id, pos, rot), nil
	default:
		return nil, fmt.Errorf("unknown node variant %q", v)
	}
}
