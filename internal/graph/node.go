// Component nodes of the service architecture
package graph

import (
	"encoding/json"
	"fmt"
	"math"

	"uptime-sim/internal/formula"
)

// Archetype identifies a static component template.
type Archetype string

const (
	DNS           Archetype = "dns"
	CDN           Archetype = "cdn"
	WAF           Archetype = "waf"
	LoadBalancer  Archetype = "lb"
	Gateway       Archetype = "gateway"
	Auth          Archetype = "auth"
	App           Archetype = "app"
	Cache         Archetype = "cache"
	Queue         Archetype = "queue"
	Worker        Archetype = "worker"
	DBPrimary     Archetype = "db_primary"
	DBReplica     Archetype = "db_replica"
	Storage       Archetype = "storage"
	Search        Archetype = "search"
	Observability Archetype = "observability"
)

// Archetypes lists every archetype in catalog order.
var Archetypes = []Archetype{
	DNS, CDN, WAF, LoadBalancer, Gateway, Auth, App, Cache, Queue, Worker,
	DBPrimary, DBReplica, Storage, Search, Observability,
}

// Mode is the operational state derived from health and utilization.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeDegraded Mode = "degraded"
	ModeDown     Mode = "down"
)

// Feature is a per-node capability toggle.
type Feature string

const (
	FeatureAutoscaling    Feature = "autoscaling"
	FeatureCircuitBreaker Feature = "circuit_breaker"
	FeatureRateLimit      Feature = "rate_limit"
	FeatureReplication    Feature = "replication"
	FeatureTLS            Feature = "tls"
)

// Scaling bounds the instance multiplier of a node.
type Scaling struct {
	Min           int     `json:"min"`
	Max           int     `json:"max"`
	Current       int     `json:"current"`
	CooldownUntil float64 `json:"cooldown_until"`
}

// Set moves Current to v clamped into [Min, Max] and reports whether it changed.
func (s *Scaling) Set(v int) bool {
	if v < s.Min {
		v = s.Min
	}
	if v > s.Max {
		v = s.Max
	}
	if v == s.Current {
		return false
	}
	s.Current = v
	return true
}

// Redundancy identifies a node inside a group of interchangeable instances.
type Redundancy struct {
	Group    string `json:"group,omitempty"`
	Primary  bool   `json:"primary,omitempty"`
	Instance int    `json:"instance"`
}

// Node is one infrastructure element.
type Node struct {
	ID            string           `json:"id"`
	Archetype     Archetype        `json:"archetype"`
	Name          string           `json:"name"`
	Capacity      float64          `json:"capacity"`
	BaseLatency   float64          `json:"base_latency"`
	BaseError     float64          `json:"base_error"`
	Reliability   float64          `json:"reliability"`
	Security      float64          `json:"security"`
	Health        float64          `json:"health"`
	Utilization   float64          `json:"utilization"`
	Latency       float64          `json:"latency"`
	ErrorRate     float64          `json:"error_rate"`
	LoadIn        float64          `json:"load_in"`
	LoadOut       float64          `json:"load_out"`
	Mode          Mode             `json:"mode"`
	Enabled       bool             `json:"enabled"`
	Locked        bool             `json:"locked"`
	Scaling       Scaling          `json:"scaling"`
	CostPerSecond float64          `json:"cost_per_second"`
	Features      map[Feature]bool `json:"features"`
	Redundancy    Redundancy       `json:"redundancy"`
	Specifics     Specifics        `json:"-"`
}

// Active reports whether the node takes part in load propagation.
func (n *Node) Active() bool { return n.Enabled && !n.Locked }

// Has reports whether a feature flag is on.
func (n *Node) Has(f Feature) bool { return n.Features[f] }

// EffectiveCapacity is capacity times the current instance multiplier.
func (n *Node) EffectiveCapacity() float64 {
	return n.Capacity * float64(n.Scaling.Current)
}

// BilledCost is the per-second cost of the node at its current scale.
func (n *Node) BilledCost() float64 {
	return n.CostPerSecond * float64(n.Scaling.Current)
}

// DeriveMode computes the operational mode from health and utilization.
func DeriveMode(health, util float64) Mode {
	switch {
	case health < 0.3 || util > 3:
		return ModeDown
	case health < 0.7 || util > 1.5:
		return ModeDegraded
	default:
		return ModeNormal
	}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Features != nil {
		c.Features = make(map[Feature]bool, len(n.Features))
		for k, v := range n.Features {
			c.Features[k] = v
		}
	}
	c.Specifics = CloneSpecifics(n.Specifics)
	return &c
}

type nodeAlias Node

type nodeJSON struct {
	*nodeAlias
	Specifics *specificsEnvelope `json:"specifics"`
}

// MarshalJSON encodes the node with its tagged specifics.
func (n *Node) MarshalJSON() ([]byte, error) {
	env, err := wrapSpecifics(n.Specifics)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodeJSON{nodeAlias: (*nodeAlias)(n), Specifics: env})
}

// UnmarshalJSON decodes a node and its tagged specifics.
func (n *Node) UnmarshalJSON(b []byte) error {
	aux := nodeJSON{nodeAlias: (*nodeAlias)(n)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s, err := unwrapSpecifics(aux.Specifics)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}
	n.Specifics = s
	return nil
}

// ApplyDelta adjusts a node figure by name. Base figures (capacity, latency,
// error_rate, health, security, reliability) are handled here and everything
// else is forwarded to the archetype specifics. It reports false for unknown keys.
func (n *Node) ApplyDelta(key string, v float64) bool {
	switch key {
	case "capacity":
		n.Capacity = math.Max(1, n.Capacity+v)
	case "latency":
		n.BaseLatency = math.Max(1, n.BaseLatency+v)
	case "error_rate":
		n.BaseError = formula.Clamp01(n.BaseError + v)
	case "health":
		n.Health = formula.Clamp01(n.Health + v)
	case "security":
		n.Security = formula.Clamp01(n.Security + v)
	case "reliability":
		n.Reliability = formula.Clamp01(n.Reliability + v)
	default:
		return ApplyDelta(n.Specifics, key, v)
	}
	return true
}
