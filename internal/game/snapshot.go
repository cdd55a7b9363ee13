package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"uptime-sim/internal/graph"
)

// ErrMissingArchitecture is returned when a snapshot has no node map.
var ErrMissingArchitecture = errors.New("snapshot has no architecture")

// nodePair encodes as [id, node].
type nodePair struct {
	ID   string
	Node *graph.Node
}

func (p nodePair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.ID, p.Node})
}

func (p *nodePair) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("node pair: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.ID); err != nil {
		return fmt.Errorf("node pair id: %w", err)
	}
	p.Node = &graph.Node{}
	if err := json.Unmarshal(raw[1], p.Node); err != nil {
		return fmt.Errorf("node pair %s: %w", p.ID, err)
	}
	return nil
}

// cooldownPair encodes as [actionId, timestamp].
type cooldownPair struct {
	ActionID string
	At       float64
}

func (p cooldownPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.ActionID, p.At})
}

func (p *cooldownPair) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("cooldown pair: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.ActionID); err != nil {
		return fmt.Errorf("cooldown pair id: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.At); err != nil {
		return fmt.Errorf("cooldown pair %s: %w", p.ActionID, err)
	}
	return nil
}

type architecture struct {
	Nodes    []nodePair     `json:"nodes"`
	Edges    []graph.Edge   `json:"edges"`
	Counters map[string]int `json:"counters"`
}

type stateAlias State

type snapshot struct {
	*stateAlias
	Architecture     *architecture  `json:"architecture"`
	Cooldowns        []cooldownPair `json:"cooldowns"`
	UnlockedFeatures []string       `json:"unlockedFeatures"`
}

// MarshalJSON encodes the state with map and set fields flattened to arrays.
// Pairs are sorted by key so equal states encode to equal bytes.
func (s *State) MarshalJSON() ([]byte, error) {
	snap := snapshot{stateAlias: (*stateAlias)(s)}
	if s.Graph != nil {
		arch := &architecture{Nodes: []nodePair{}, Edges: s.Graph.Edges, Counters: s.Graph.Counters}
		for _, id := range s.Graph.SortedIDs() {
			arch.Nodes = append(arch.Nodes, nodePair{ID: id, Node: s.Graph.Nodes[id]})
		}
		snap.Architecture = arch
	}
	snap.Cooldowns = []cooldownPair{}
	ids := make([]string, 0, len(s.Cooldowns))
	for id := range s.Cooldowns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		snap.Cooldowns = append(snap.Cooldowns, cooldownPair{ActionID: id, At: s.Cooldowns[id]})
	}
	snap.UnlockedFeatures = []string{}
	for f, on := range s.UnlockedFeatures {
		if on {
			snap.UnlockedFeatures = append(snap.UnlockedFeatures, f)
		}
	}
	sort.Strings(snap.UnlockedFeatures)
	return json.Marshal(snap)
}

// UnmarshalJSON rebuilds the maps and sets flattened by MarshalJSON.
func (s *State) UnmarshalJSON(b []byte) error {
	snap := snapshot{stateAlias: (*stateAlias)(s)}
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	if snap.Architecture == nil || snap.Architecture.Nodes == nil {
		return ErrMissingArchitecture
	}
	g := &graph.Graph{
		Nodes:    make(map[string]*graph.Node, len(snap.Architecture.Nodes)),
		Edges:    snap.Architecture.Edges,
		Counters: snap.Architecture.Counters,
	}
	if g.Counters == nil {
		g.Counters = map[string]int{}
	}
	for _, p := range snap.Architecture.Nodes {
		if _, dup := g.Nodes[p.ID]; dup {
			return fmt.Errorf("snapshot: duplicate node %q", p.ID)
		}
		g.Nodes[p.ID] = p.Node
	}
	s.Graph = g
	s.Cooldowns = make(map[string]float64, len(snap.Cooldowns))
	for _, p := range snap.Cooldowns {
		s.Cooldowns[p.ActionID] = p.At
	}
	s.UnlockedFeatures = make(map[string]bool, len(snap.UnlockedFeatures))
	for _, f := range snap.UnlockedFeatures {
		s.UnlockedFeatures[f] = true
	}
	s.Normalize()
	return nil
}

// Serialize encodes a state snapshot.
func Serialize(s *State) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("serialize state: %w", err)
	}
	return b, nil
}

// Deserialize decodes a snapshot produced by Serialize.
func Deserialize(b []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("deserialize state: %w", err)
	}
	return &s, nil
}
