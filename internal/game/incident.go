package game

import (
	"fmt"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/formula"
)

// NewIncident instantiates a catalog definition against a target node.
func NewIncident(def catalog.IncidentDef, id, target string, now float64) *Incident {
	inc := &Incident{
		ID:           id,
		DefinitionID: def.ID,
		Name:         def.Name,
		Description:  def.Description,
		Category:     def.Category,
		Severity:     def.Severity,
		Target:       target,
		StartedAt:    now,
		Outage:       NewTimer(def.OutageAfter),
		Effects:      def.Effects,
	}
	inc.Effects.MetricDeltas = cloneFloats(def.Effects.MetricDeltas)
	if def.Escalation != nil {
		inc.Escalation = NewTimer(def.Escalation.After)
		inc.EscalatesTo = def.Escalation.To
	}
	if def.AutoResolve > 0 {
		inc.AutoResolveAt = now + def.AutoResolve
	}
	if def.Reward != nil {
		r := *def.Reward
		inc.Reward = &r
	}
	return inc
}

// AddIncident appends an incident, links it to incidents on the same target
// with a compatible category that started within window seconds, applies its
// one-shot metric deltas and records the target.
func (s *State) AddIncident(inc *Incident, window float64) {
	for _, other := range s.Incidents {
		if other.Target != inc.Target || !catalog.Compatible(other.Category, inc.Category) {
			continue
		}
		if inc.StartedAt-other.StartedAt > window || other.StartedAt-inc.StartedAt > window {
			continue
		}
		other.Related = appendUnique(other.Related, inc.ID)
		inc.Related = appendUnique(inc.Related, other.ID)
	}
	if n, ok := s.Node(inc.Target); ok {
		for _, k := range sortedKeys(inc.Effects.MetricDeltas) {
			n.ApplyDelta(k, inc.Effects.MetricDeltas[k])
		}
	}
	inc.MitigationProgress = inc.MitigationLevel
	s.Incidents = append(s.Incidents, inc)
	s.TrackTarget(inc.Target)
	s.Log("incident", fmt.Sprintf("%s %s on %s", inc.Severity, inc.Name, inc.Target), inc.Target, inc.ID)
}

// Mitigate banks mitigation on an incident and every incident related to it.
// Levels never decrease and saturate at 1. When the origin reaches 1 its
// related incidents are fully mitigated too.
func (s *State) Mitigate(id string, amount float64) bool {
	inc, ok := s.Incident(id)
	if !ok {
		return false
	}
	amount = formula.Clamp01(amount)
	inc.MitigationLevel = formula.Clamp01(inc.MitigationLevel + amount)
	for _, rid := range inc.Related {
		if r, ok := s.Incident(rid); ok {
			r.MitigationLevel = formula.Clamp01(r.MitigationLevel + amount)
			if inc.MitigationLevel >= 1 {
				r.MitigationLevel = 1
			}
		}
	}
	return true
}

// DuplicateOf returns an active incident with the same name on the same target
// that started within window seconds of now.
func (s *State) DuplicateOf(name, target string, now, window float64) (*Incident, bool) {
	for _, inc := range s.Incidents {
		if inc.Name == name && inc.Target == target && now-inc.StartedAt <= window {
			return inc, true
		}
	}
	return nil, false
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// GeneratedIncident is an incident proposed from outside the catalog.
type GeneratedIncident struct {
	ID          string                  `json:"id,omitempty"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Severity    catalog.Severity        `json:"severity"`
	Category    string                  `json:"category"`
	Target      string                  `json:"target"`
	Logs        []string                `json:"logs,omitempty"`
	Effects     catalog.IncidentEffects `json:"effects"`
	Suggested   []SuggestedAction       `json:"suggested,omitempty"`
	AutoResolve float64                 `json:"autoResolveSeconds,omitempty"`
	OutageAfter float64                 `json:"outageSeconds,omitempty"`
}

// Validate checks the fields an incident cannot live without.
func (g *GeneratedIncident) Validate() error {
	switch {
	case g.Name == "":
		return fmt.Errorf("generated incident: missing name")
	case g.Target == "":
		return fmt.Errorf("generated incident %q: missing target", g.Name)
	case !g.Severity.Valid():
		return fmt.Errorf("generated incident %q: invalid severity %q", g.Name, g.Severity)
	}
	for _, s := range g.Suggested {
		if s.Name == "" || s.Cost < 0 || s.Duration < 0 {
			return fmt.Errorf("generated incident %q: invalid suggestion %+v", g.Name, s)
		}
	}
	return nil
}

// Incident turns the payload into a live incident starting now.
func (g *GeneratedIncident) Incident(id string, now float64) *Incident {
	inc := &Incident{
		ID:           id,
		DefinitionID: GeneratedDefinition,
		Name:         g.Name,
		Description:  g.Description,
		Category:     g.Category,
		Severity:     g.Severity,
		Target:       g.Target,
		StartedAt:    now,
		Outage:       NewTimer(g.OutageAfter),
		Effects:      g.Effects,
		Logs:         cloneStrings(g.Logs),
	}
	inc.Effects.MetricDeltas = cloneFloats(g.Effects.MetricDeltas)
	if g.AutoResolve > 0 {
		inc.AutoResolveAt = now + g.AutoResolve
	}
	if g.Suggested != nil {
		inc.Suggested = make([]SuggestedAction, len(g.Suggested))
		for i, s := range g.Suggested {
			s.MetricDeltas = cloneFloats(s.MetricDeltas)
			inc.Suggested[i] = s
		}
	}
	if g.Category == catalog.CategoryOpportunity {
		inc.Reward = &catalog.Reward{Users: 100, Reputation: 2}
	}
	return inc
}

// Suggestion finds a suggested remediation by name.
func (i *Incident) Suggestion(name string) (SuggestedAction, bool) {
	for _, s := range i.Suggested {
		if s.Name == name {
			return s, true
		}
	}
	return SuggestedAction{}, false
}
