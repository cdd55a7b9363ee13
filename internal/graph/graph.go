// Directed component graph with runtime mutation
package graph

import (
	"fmt"
	"sort"
)

// RootID is the node that receives all ingress traffic.
const RootID = string(DNS)

// Placeholders accepted in EdgeSpec endpoints; both resolve to the new node id.
const (
	PlaceholderSource = "source"
	PlaceholderTarget = "target"
)

// Edge forwards a weighted fraction of accepted load from one node to another.
// An edge with Bypass set only carries load while that node is missing or inactive.
type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
	Bypass string  `json:"bypass,omitempty"`
}

// EdgeSpec describes an edge attached when a component is added.
type EdgeSpec struct {
	From   string  `json:"from" yaml:"from"`
	To     string  `json:"to" yaml:"to"`
	Weight float64 `json:"weight" yaml:"weight"`
	Bypass string  `json:"bypass,omitempty" yaml:"bypass,omitempty"`
}

// Graph owns the nodes, the edge list and the per-archetype id counters.
type Graph struct {
	Nodes    map[string]*Node `json:"nodes"`
	Edges    []Edge           `json:"edges"`
	Counters map[string]int   `json:"counters"`
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]*Node), Counters: make(map[string]int)}
}

// Clone returns a deep copy that shares no mutable state with g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Nodes:    make(map[string]*Node, len(g.Nodes)),
		Counters: make(map[string]int, len(g.Counters)),
	}
	for id, n := range g.Nodes {
		c.Nodes[id] = n.Clone()
	}
	if g.Edges != nil {
		c.Edges = make([]Edge, len(g.Edges))
		copy(c.Edges, g.Edges)
	}
	for k, v := range g.Counters {
		c.Counters[k] = v
	}
	return c
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// SortedIDs returns node ids in lexical order for deterministic iteration.
func (g *Graph) SortedIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByArchetype returns the nodes of an archetype ordered by instance number.
func (g *Graph) ByArchetype(a Archetype) []*Node {
	var out []*Node
	for _, id := range g.SortedIDs() {
		if n := g.Nodes[id]; n.Archetype == a {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Redundancy.Instance < out[j].Redundancy.Instance
	})
	return out
}

// Connect appends an edge when both endpoints exist. Weight is clamped to [0,1].
func (g *Graph) Connect(from, to string, weight float64) bool {
	return g.ConnectSpec(EdgeSpec{From: from, To: to, Weight: weight})
}

// ConnectSpec is Connect for a full edge description.
func (g *Graph) ConnectSpec(spec EdgeSpec) bool {
	from, to, weight := spec.From, spec.To, spec.Weight
	if _, ok := g.Nodes[from]; !ok {
		return false
	}
	if _, ok := g.Nodes[to]; !ok {
		return false
	}
	if weight < 0 {
		weight = 0
	} else if weight > 1 {
		weight = 1
	}
	g.Edges = append(g.Edges, Edge{From: from, To: to, Weight: weight, Bypass: spec.Bypass})
	return true
}

// nextID reserves the next id for a counter key. The first instance keeps the bare key.
func (g *Graph) nextID(key string) (string, int) {
	n := g.Counters[key]
	for {
		n++
		id := key
		if n > 1 {
			id = fmt.Sprintf("%s_%d", key, n)
		}
		if _, taken := g.Nodes[id]; !taken {
			g.Counters[key] = n
			return id, n
		}
	}
}

// AddComponent clones tpl under a fresh id and attaches the given edges.
// Edge endpoints named "source" or "target" resolve to the new node.
func (g *Graph) AddComponent(tpl *Node, edges []EdgeSpec) string {
	n := tpl.Clone()
	id, instance := g.nextID(string(tpl.Archetype))
	n.ID = id
	if instance > 1 {
		n.Name = fmt.Sprintf("%s %d", tpl.Name, instance)
	}
	n.Redundancy.Group = string(tpl.Archetype)
	n.Redundancy.Instance = instance
	n.Redundancy.Primary = instance == 1
	n.LoadIn, n.LoadOut, n.Utilization = 0, 0, 0
	g.Nodes[id] = n
	g.attach(id, edges)
	return id
}

func (g *Graph) attach(id string, edges []EdgeSpec) {
	resolve := func(s string) string {
		if s == PlaceholderSource || s == PlaceholderTarget {
			return id
		}
		return s
	}
	for _, e := range edges {
		g.ConnectSpec(EdgeSpec{From: resolve(e.From), To: resolve(e.To), Weight: e.Weight, Bypass: e.Bypass})
	}
}

// RemoveComponent deletes a node and every edge touching it.
func (g *Graph) RemoveComponent(id string) bool {
	n, ok := g.Nodes[id]
	if !ok {
		return false
	}
	delete(g.Nodes, id)
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.From != id && e.To != id {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
	key := n.Redundancy.Group
	if key == "" {
		key = string(n.Archetype)
	}
	if g.Counters[key] > 0 {
		g.Counters[key]--
	}
	return true
}

// RemoveHighestInstance removes the member of a redundancy group with the highest
// instance number. The last remaining instance is never removed.
func (g *Graph) RemoveHighestInstance(group string) (string, bool) {
	var victim *Node
	members := 0
	for _, id := range g.SortedIDs() {
		n := g.Nodes[id]
		if n.Redundancy.Group != group {
			continue
		}
		members++
		if victim == nil || n.Redundancy.Instance > victim.Redundancy.Instance {
			victim = n
		}
	}
	if victim == nil || members < 2 {
		return "", false
	}
	id := victim.ID
	return id, g.RemoveComponent(id)
}

// SplitService carves a new service node out of the template node and wires it
// behind the load balancer and in front of the cache and primary database.
func (g *Graph) SplitService(templateID string) (string, bool) {
	tpl, ok := g.Nodes[templateID]
	if !ok {
		return "", false
	}
	n := tpl.Clone()
	id, instance := g.nextID("service")
	n.ID = id
	n.Name = fmt.Sprintf("Service %d", instance)
	n.Capacity = tpl.Capacity * 0.5
	n.BaseLatency = tpl.BaseLatency * 0.8
	n.BaseError = tpl.BaseError * 0.7
	n.Health = 1
	n.Enabled, n.Locked = true, false
	n.Scaling.Current = n.Scaling.Min
	n.Redundancy = Redundancy{Group: "service", Instance: instance, Primary: instance == 1}
	n.LoadIn, n.LoadOut, n.Utilization = 0, 0, 0
	g.Nodes[id] = n
	g.attach(id, []EdgeSpec{
		{From: string(LoadBalancer), To: PlaceholderTarget, Weight: 0.3},
		{From: PlaceholderSource, To: string(Cache), Weight: 0.5},
		{From: PlaceholderSource, To: string(DBPrimary), Weight: 0.3},
	})
	return id, true
}
