package engine

import (
	"fmt"
	"math"
	"sort"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/formula"
	"uptime-sim/internal/game"
	"uptime-sim/internal/graph"
)

// ResolveTarget picks the node an action acts on. An incident target wins when
// the action has no fixed archetype or the incident sits on that archetype.
// Otherwise the primary instance of the action's archetype is used.
func ResolveTarget(st *game.State, def catalog.ActionDef, inc *game.Incident) string {
	if inc != nil {
		if n, ok := st.Node(inc.Target); ok && (def.Target == "" || n.Archetype == def.Target) {
			return inc.Target
		}
	}
	if def.Target == "" {
		return ""
	}
	if _, ok := st.Node(string(def.Target)); ok {
		return string(def.Target)
	}
	if nodes := st.Graph.ByArchetype(def.Target); len(nodes) > 0 {
		return nodes[0].ID
	}
	return ""
}

// Effectiveness is how much an action mitigates an incident, 0 when it does not apply.
func Effectiveness(cat *catalog.Catalog, def catalog.ActionDef, inc *game.Incident) float64 {
	if inc == nil {
		return 0
	}
	if !inc.Generated() {
		if idef, ok := cat.Incident(inc.DefinitionID); ok {
			if e, ok := idef.Remediations[def.ID]; ok {
				return e
			}
		}
	}
	if def.MitigatesCategory(inc.Category) {
		return def.Mitigation
	}
	return 0
}

// ApplyEffects lands an action's effects on the state. Node effects are skipped
// when the action needs a target and the target no longer exists.
func ApplyEffects(st *game.State, cat *catalog.Catalog, def catalog.ActionDef, target string) {
	e := def.Effects
	n, hasNode := st.Node(target)
	if hasNode {
		applyNodeEffects(n, e)
	}

	if e.Unlock != "" {
		if u, ok := st.Node(e.Unlock); ok && u.Locked {
			u.Locked = false
			st.Log("unlock", fmt.Sprintf("%s online", u.Name), u.ID, "")
		}
	}
	if e.AddComponent != "" {
		if adef, ok := cat.Archetype(e.AddComponent); ok {
			tpl := adef.Template()
			tpl.Locked = false
			id := st.Graph.AddComponent(tpl, e.AddEdges)
			st.Log("architecture", fmt.Sprintf("added %s", id), id, "")
		}
	}
	if e.RemoveComponent != "" {
		if id, ok := st.Graph.RemoveHighestInstance(string(e.RemoveComponent)); ok {
			st.Log("architecture", fmt.Sprintf("removed %s", id), id, "")
		}
	}
	if e.SplitService && hasNode {
		if id, ok := st.Graph.SplitService(target); ok {
			st.Log("architecture", fmt.Sprintf("split %s out of %s", id, target), id, "")
		}
	}

	st.TechDebt = clampStress(st.TechDebt + e.TechDebt)
	st.Reputation = clampStress(st.Reputation + e.Reputation)
	st.AlertFatigue = clampStress(st.AlertFatigue + e.AlertFatigue)
	st.Burnout = clampStress(st.Burnout + e.Burnout)
	st.Observability = formula.Clamp01(st.Observability + e.Observability)
	if e.PricingMult > 0 {
		st.Pricing *= e.PricingMult
	}
	if e.Marketing > 0 {
		st.MarketingMultiplier = math.Max(st.MarketingMultiplier, e.Marketing)
	}
	if e.UnlockFeature != "" {
		st.UnlockedFeatures[e.UnlockFeature] = true
	}
}

func applyNodeEffects(n *graph.Node, e catalog.Effects) {
	if e.ScaleDelta != 0 {
		n.Scaling.Set(n.Scaling.Current + e.ScaleDelta)
	}
	if e.CapacityMult > 0 {
		n.Capacity *= e.CapacityMult
	}
	if e.LatencyMult > 0 {
		n.BaseLatency *= e.LatencyMult
	}
	if e.ErrorMult > 0 {
		n.BaseError = formula.Clamp01(n.BaseError * e.ErrorMult)
	}
	if e.HealthRestore > 0 {
		n.Health = formula.Clamp01(n.Health + e.HealthRestore)
		n.Mode = graph.DeriveMode(n.Health, n.Utilization)
	}
	n.Security = formula.Clamp01(n.Security + e.SecurityDelta)
	n.Reliability = formula.Clamp01(n.Reliability + e.ReliabilityDelta)
	for _, k := range sortedKeys(e.MetricDeltas) {
		n.ApplyDelta(k, e.MetricDeltas[k])
	}
	if e.EnableFeature != "" {
		if n.Features == nil {
			n.Features = map[graph.Feature]bool{}
		}
		n.Features[e.EnableFeature] = true
	}
}

// ApplyMetricDeltas applies free-form deltas to a node, ignoring a missing node.
func ApplyMetricDeltas(st *game.State, target string, deltas map[string]float64) {
	n, ok := st.Node(target)
	if !ok {
		return
	}
	for _, k := range sortedKeys(deltas) {
		n.ApplyDelta(k, deltas[k])
	}
}

func clampStress(v float64) float64 { return formula.Clamp(v, 0, 100) }

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
