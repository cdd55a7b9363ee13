package graph

import (
	"math"

	"uptime-sim/internal/formula"
)

// Propagate pushes ingress RPS breadth-first from the root node and recomputes
// utilization, latency, error rate and mode of every reachable node.
// Inactive nodes and the edges touching them carry no load. When the root is
// missing or inactive nothing propagates and every utilization is zero.
func (g *Graph) Propagate(ingress float64, p formula.Params) {
	ids := g.SortedIDs()
	for _, id := range ids {
		n := g.Nodes[id]
		n.LoadIn, n.LoadOut = 0, 0
		n.Utilization = 0
	}

	root, ok := g.Nodes[RootID]
	if !ok || !root.Active() {
		for _, id := range ids {
			g.Nodes[id].evaluate(0, p)
		}
		return
	}

	out := make(map[string][]Edge, len(g.Nodes))
	for _, e := range g.Edges {
		if e.Bypass != "" {
			if via, ok := g.Nodes[e.Bypass]; ok && via.Active() {
				continue
			}
		}
		out[e.From] = append(out[e.From], e)
	}

	root.LoadIn = math.Max(0, ingress)
	visited := map[string]bool{RootID: true}
	evaluatedAt := make(map[string]float64, len(g.Nodes))
	queue := []string{RootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := g.Nodes[id]
		n.evaluate(n.LoadIn, p)
		evaluatedAt[id] = n.LoadIn
		served := n.LoadIn * (1 - n.ErrorRate) * (1 - Offload(n.Specifics))
		for _, e := range out[id] {
			t, ok := g.Nodes[e.To]
			if !ok || !t.Active() {
				continue
			}
			fwd := served * e.Weight
			t.LoadIn += fwd
			n.LoadOut += fwd
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}

	// Late arrivals from nodes visited after their target are accounted for
	// in the target's utilization but not forwarded again.
	for _, id := range ids {
		n := g.Nodes[id]
		if !n.Active() {
			n.LoadIn, n.LoadOut = 0, 0
			n.evaluate(0, p)
			continue
		}
		if at, seen := evaluatedAt[id]; !seen || at != n.LoadIn {
			n.evaluate(n.LoadIn, p)
		}
	}
}

// evaluate recomputes derived metrics for a load. Load shed by the rate limiter
// is folded into the error rate so forwarding stays loadIn x (1 - errorRate).
func (n *Node) evaluate(load float64, p formula.Params) {
	n.Health = formula.Clamp01(n.Health)
	if !n.Active() {
		n.Utilization = 0
		n.Latency = n.BaseLatency
		n.ErrorRate = formula.Clamp01(n.BaseError)
		n.Mode = DeriveMode(n.Health, 0)
		return
	}
	accepted := load
	capacity := n.EffectiveCapacity()
	if n.Has(FeatureRateLimit) && capacity > 0 {
		accepted = math.Min(load, capacity*1.2)
	}
	if capacity > 0 {
		n.Utilization = accepted / capacity
	} else {
		n.Utilization = 0
	}
	factor := formula.LatencyFactor(n.Utilization, p)
	if n.Has(FeatureCircuitBreaker) && factor > p.CircuitBreakerFactor {
		factor = p.CircuitBreakerFactor
	}
	n.Latency = n.BaseLatency * factor
	errRate := formula.ErrorRate(n.BaseError, n.Utilization, n.Health, p)
	if n.Health <= 0 {
		errRate = 1
	}
	if load > 0 && accepted < load {
		errRate = 1 - (1-errRate)*(accepted/load)
	}
	n.ErrorRate = formula.Clamp01(errRate)
	n.Mode = DeriveMode(n.Health, n.Utilization)
}

// Autoscale adjusts scaling.current on nodes with the autoscaling feature.
// now is simulated seconds; cooldown is the wait between adjustments.
func (g *Graph) Autoscale(now, cooldown float64) []string {
	var changed []string
	for _, id := range g.SortedIDs() {
		n := g.Nodes[id]
		if !n.Active() || !n.Has(FeatureAutoscaling) || now < n.Scaling.CooldownUntil {
			continue
		}
		target := n.Scaling.Current
		switch {
		case n.Utilization > 0.85:
			target++
		case n.Utilization < 0.3:
			target--
		}
		if n.Scaling.Set(target) {
			n.Scaling.CooldownUntil = now + cooldown
			changed = append(changed, id)
		}
	}
	return changed
}

// Advance moves archetype-specific metrics forward after propagation.
func (g *Graph) Advance(dt float64) {
	for _, id := range g.SortedIDs() {
		if n := g.Nodes[id]; n.Active() {
			advanceSpecifics(n, dt)
		}
	}
}
