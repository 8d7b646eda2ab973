package topology

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/dd0wney/cluso-cables/pkg/curve"
)

// Observer receives topology changes. Callbacks run on the goroutine that
// changed the network, after the network's own lock has been released.
type Observer interface {
	// OnLinkAdded fires once per side of a new link. isOwningSide is true
	// for the call where node is the link owner.
	OnLinkAdded(node, peer Node, isOwningSide bool)
	// OnLinkRemoved mirrors OnLinkAdded for removals.
	OnLinkRemoved(node, peer Node, isOwningSide bool)
	// OnLinksReset fires before the owner's links are announced again.
	OnLinksReset(owner Node)
	// OnLinksChanged fires when a parameter shared by all of owner's links
	// changed (slack). owned lists the current neighbours it owns.
	OnLinksChanged(owner Node, owned []Node)
	// OnNodeDestroyed fires after every link of the node has been removed.
	OnNodeDestroyed(node Node)
}

// Network is a registry of nodes and links that notifies observers.
type Network struct {
	mu        sync.RWMutex
	nodes     map[NodeID]Mutable
	links     map[pairKey]Link
	adjacency map[NodeID]map[NodeID]Role

	obsMu     sync.RWMutex
	observers []Observer
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		nodes:     make(map[NodeID]Mutable),
		links:     make(map[pairKey]Link),
		adjacency: make(map[NodeID]map[NodeID]Role),
	}
}

// Observe registers o for all future changes.
func (n *Network) Observe(o Observer) {
	n.obsMu.Lock()
	n.observers = append(n.observers, o)
	n.obsMu.Unlock()
}

func (n *Network) notify(fn func(Observer)) {
	n.obsMu.RLock()
	observers := append([]Observer(nil), n.observers...)
	n.obsMu.RUnlock()

	for _, o := range observers {
		fn(o)
	}
}

// Add registers a node.
func (n *Network) Add(node Mutable) error {
	if node == nil {
		return ErrNilNode
	}
	if node.IsDestroyed() {
		return fmt.Errorf("add %s: %w", node.ID(), ErrNodeDestroyed)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.nodes[node.ID()]; exists {
		return fmt.Errorf("add %s: %w", node.ID(), ErrNodeExists)
	}
	n.nodes[node.ID()] = node
	n.adjacency[node.ID()] = make(map[NodeID]Role)
	return nil
}

// Node looks up a live node.
func (n *Network) Node(id NodeID) (Mutable, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	node, ok := n.nodes[id]
	return node, ok
}

// Lookup is Node narrowed to the Node interface.
func (n *Network) Lookup(id NodeID) (Node, bool) {
	node, ok := n.Node(id)
	if !ok {
		return nil, false
	}
	return node, true
}

// Nodes returns all live nodes ordered by ID.
func (n *Network) Nodes() []Mutable {
	n.mu.RLock()
	nodes := make([]Mutable, 0, len(n.nodes))
	for _, node := range n.nodes {
		nodes = append(nodes, node)
	}
	n.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].ID(), nodes[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})
	return nodes
}

// Len returns the number of live nodes.
func (n *Network) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}

// Links returns every link.
func (n *Network) Links() []Link {
	n.mu.RLock()
	defer n.mu.RUnlock()

	links := make([]Link, 0, len(n.links))
	for _, l := range n.links {
		links = append(links, l)
	}
	return links
}

// LinkBetween returns the link joining a and b, if any.
func (n *Network) LinkBetween(a, b NodeID) (Link, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	l, ok := n.links[keyOf(a, b)]
	return l, ok
}

// Link connects owner to neighbor. owner computes the cable.
func (n *Network) Link(owner, neighbor NodeID) (Link, error) {
	if owner == neighbor {
		return Link{}, ErrSelfLink
	}

	n.mu.Lock()
	o, ok := n.nodes[owner]
	if !ok {
		n.mu.Unlock()
		return Link{}, fmt.Errorf("link owner %s: %w", owner, ErrNodeNotFound)
	}
	nb, ok := n.nodes[neighbor]
	if !ok {
		n.mu.Unlock()
		return Link{}, fmt.Errorf("link neighbor %s: %w", neighbor, ErrNodeNotFound)
	}
	key := keyOf(owner, neighbor)
	if _, exists := n.links[key]; exists {
		n.mu.Unlock()
		return Link{}, fmt.Errorf("link %s-%s: %w", owner, neighbor, ErrAlreadyLinked)
	}

	l := Link{Owner: owner, Neighbor: neighbor}
	n.links[key] = l
	n.adjacency[owner][neighbor] = RoleOwner
	n.adjacency[neighbor][owner] = RoleNeighbor
	n.mu.Unlock()

	n.notify(func(obs Observer) {
		obs.OnLinkAdded(o, nb, true)
		obs.OnLinkAdded(nb, o, false)
	})
	return l, nil
}

// Unlink removes the link between a and b in either direction.
func (n *Network) Unlink(a, b NodeID) error {
	n.mu.Lock()
	l, ok := n.links[keyOf(a, b)]
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("unlink %s-%s: %w", a, b, ErrNotLinked)
	}
	owner, neighbor := n.nodes[l.Owner], n.nodes[l.Neighbor]
	n.dropLinkLocked(l)
	n.mu.Unlock()

	n.notify(func(obs Observer) {
		obs.OnLinkRemoved(owner, neighbor, true)
		obs.OnLinkRemoved(neighbor, owner, false)
	})
	return nil
}

func (n *Network) dropLinkLocked(l Link) {
	delete(n.links, keyOf(l.Owner, l.Neighbor))
	delete(n.adjacency[l.Owner], l.Neighbor)
	delete(n.adjacency[l.Neighbor], l.Owner)
}

// Destroy marks the node destroyed, removes all of its links and forgets it.
// The destroyed flag is set before any observer hears about the removals.
func (n *Network) Destroy(id NodeID) error {
	n.mu.Lock()
	node, ok := n.nodes[id]
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("destroy %s: %w", id, ErrNodeNotFound)
	}
	node.Destroy()

	type removal struct {
		link            Link
		owner, neighbor Node
	}
	var removed []removal
	for peer := range n.adjacency[id] {
		l := n.links[keyOf(id, peer)]
		removed = append(removed, removal{link: l, owner: n.nodes[l.Owner], neighbor: n.nodes[l.Neighbor]})
		n.dropLinkLocked(l)
	}
	delete(n.adjacency, id)
	delete(n.nodes, id)
	n.mu.Unlock()

	n.notify(func(obs Observer) {
		for _, r := range removed {
			obs.OnLinkRemoved(r.owner, r.neighbor, true)
			obs.OnLinkRemoved(r.neighbor, r.owner, false)
		}
		obs.OnNodeDestroyed(node)
	})
	return nil
}

// OwnedNeighbors returns the live neighbours whose links id owns.
func (n *Network) OwnedNeighbors(id NodeID) []Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ownedLocked(id)
}

func (n *Network) ownedLocked(id NodeID) []Node {
	var owned []Node
	for peer, role := range n.adjacency[id] {
		if role != RoleOwner {
			continue
		}
		if nb, ok := n.nodes[peer]; ok && !nb.IsDestroyed() {
			owned = append(owned, nb)
		}
	}
	return owned
}

// Degree returns how many links touch id.
func (n *Network) Degree(id NodeID) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.adjacency[id])
}

// ResetLinks tells observers to drop everything id owns, then announces
// each owned link again.
func (n *Network) ResetLinks(id NodeID) error {
	n.mu.RLock()
	node, ok := n.nodes[id]
	var owned []Node
	if ok {
		owned = n.ownedLocked(id)
	}
	n.mu.RUnlock()
	if !ok {
		return fmt.Errorf("reset links %s: %w", id, ErrNodeNotFound)
	}

	n.notify(func(obs Observer) {
		obs.OnLinksReset(node)
		for _, nb := range owned {
			obs.OnLinkAdded(node, nb, true)
		}
	})
	return nil
}

// SetSlack applies slack to every listed node, as a selection-wide command
// would, and asks observers to regenerate each node's owned cables.
func (n *Network) SetSlack(slack Slack, ids ...NodeID) error {
	snapped, err := ParseSlack(float64(slack))
	if err != nil {
		return err
	}

	type change struct {
		owner Node
		owned []Node
	}
	var changes []change

	n.mu.RLock()
	for _, id := range ids {
		node, ok := n.nodes[id]
		if !ok {
			continue
		}
		if node.Slack() == snapped {
			continue
		}
		if err := node.SetSlack(snapped); err != nil {
			n.mu.RUnlock()
			return err
		}
		changes = append(changes, change{owner: node, owned: n.ownedLocked(id)})
	}
	n.mu.RUnlock()

	n.notify(func(obs Observer) {
		for _, c := range changes {
			obs.OnLinksChanged(c.owner, c.owned)
		}
	})
	return nil
}

// Refresh asks observers to regenerate every owned cable, for example after
// the cable options changed. It returns the number of owners notified.
func (n *Network) Refresh() int {
	type change struct {
		owner Node
		owned []Node
	}
	var changes []change

	n.mu.RLock()
	for id, node := range n.nodes {
		if node.IsDestroyed() {
			continue
		}
		if owned := n.ownedLocked(id); len(owned) > 0 {
			changes = append(changes, change{owner: node, owned: owned})
		}
	}
	n.mu.RUnlock()

	n.notify(func(obs Observer) {
		for _, c := range changes {
			obs.OnLinksChanged(c.owner, c.owned)
		}
	})
	return len(changes)
}

// SetColor changes the cable colour of every listed node. Geometry does not
// depend on colour so observers are not told.
func (n *Network) SetColor(c CableColor, ids ...NodeID) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidColor, int(c))
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, id := range ids {
		if node, ok := n.nodes[id]; ok {
			if err := node.SetColor(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Rotate turns a node and regenerates the cables attached to it, since its
// connection point may have moved.
func (n *Network) Rotate(id NodeID, r Rotation) error {
	return n.reposition(id, func(node Mutable) error { return node.SetRotation(r) })
}

// Move relocates a node and regenerates the cables attached to it.
func (n *Network) Move(id NodeID, to curve.Vec2) error {
	return n.reposition(id, func(node Mutable) error {
		node.SetPosition(to)
		return nil
	})
}

func (n *Network) reposition(id NodeID, apply func(Mutable) error) error {
	n.mu.RLock()
	node, ok := n.nodes[id]
	if !ok {
		n.mu.RUnlock()
		return fmt.Errorf("reposition %s: %w", id, ErrNodeNotFound)
	}
	if err := apply(node); err != nil {
		n.mu.RUnlock()
		return err
	}

	// Cables owned by this node and cables owned by its peers both end here.
	type change struct {
		owner Node
		owned []Node
	}
	changes := []change{{owner: node, owned: n.ownedLocked(id)}}
	for peer, role := range n.adjacency[id] {
		if role != RoleNeighbor {
			continue
		}
		if owner, ok := n.nodes[peer]; ok {
			changes = append(changes, change{owner: owner, owned: []Node{node}})
		}
	}
	n.mu.RUnlock()

	n.notify(func(obs Observer) {
		for _, c := range changes {
			if len(c.owned) > 0 {
				obs.OnLinksChanged(c.owner, c.owned)
			}
		}
	})
	return nil
}
