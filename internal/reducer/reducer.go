package reducer

import (
	"fmt"
	"math"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/engine"
	"uptime-sim/internal/formula"
	"uptime-sim/internal/game"
	"uptime-sim/internal/rng"
)

// Speed bounds accepted by SetSpeed.
const (
	MinSpeed = 0.25
	MaxSpeed = 10
)

// ExternalActionID is the action id recorded for collaborator-suggested fixes.
const ExternalActionID = "external"

// Reduce applies cmd to st and returns the resulting state. Invalid commands
// return st itself so callers can detect a rejection by pointer equality.
// st is never modified.
func Reduce(st *game.State, cmd Command, src rng.Source, env *engine.Env) *game.State {
	if st == nil || cmd == nil {
		return st
	}
	switch c := cmd.(type) {
	case TogglePause:
		s := st.Clone()
		s.Paused = !s.Paused
		return s
	case SetSpeed:
		if math.IsNaN(c.Speed) {
			return st
		}
		s := st.Clone()
		s.Speed = formula.Clamp(c.Speed, MinSpeed, MaxSpeed)
		return s
	case LoadState:
		if c.State == nil || c.State.Graph == nil {
			return st
		}
		s := c.State.Clone()
		s.Normalize()
		return s
	}
	if st.GameOver {
		return st
	}
	switch c := cmd.(type) {
	case ExecuteAction:
		return executeAction(st, c.ActionID, c.IncidentID, false, src, env)
	case MitigateIncident:
		return executeAction(st, c.ActionID, c.IncidentID, true, src, env)
	case ExecuteExternalAction:
		return executeExternal(st, c, src, env)
	case SpawnExternalIncident:
		return spawnExternal(st, c.Incident, src, env)
	case TrackIncidentTarget:
		if _, ok := st.Node(c.NodeID); !ok {
			return st
		}
		s := st.Clone()
		s.TrackTarget(c.NodeID)
		return s
	}
	return st
}

// CanExecute reports whether an action may run now, and why not.
func CanExecute(st *game.State, def catalog.ActionDef, inc *game.Incident) error {
	if def.Cost > st.Cash {
		return fmt.Errorf("%s costs %.0f, cash is %.0f", def.ID, def.Cost, st.Cash)
	}
	if last, ok := st.Cooldowns[def.ID]; ok && st.Elapsed-last < def.Cooldown {
		return fmt.Errorf("%s cooling down for %.0fs", def.ID, def.Cooldown-(st.Elapsed-last))
	}
	r := def.Requires
	if r.Node != "" {
		if n, ok := st.Node(r.Node); !ok || !n.Active() {
			return fmt.Errorf("%s needs %s running", def.ID, r.Node)
		}
	}
	if r.LockedNode != "" {
		if n, ok := st.Node(r.LockedNode); !ok || !n.Locked {
			return fmt.Errorf("%s already unlocked", r.LockedNode)
		}
	}
	if r.Incident && inc == nil {
		return fmt.Errorf("%s needs an incident", def.ID)
	}
	target := engine.ResolveTarget(st, def, inc)
	if def.Target != "" && target == "" {
		return fmt.Errorf("%s has no %s to act on", def.ID, def.Target)
	}
	if r.Feature != "" || r.MissingFeature != "" {
		n, ok := st.Node(target)
		if !ok {
			return fmt.Errorf("%s has no target", def.ID)
		}
		if r.Feature != "" && !n.Has(r.Feature) {
			return fmt.Errorf("%s needs %s on %s", def.ID, r.Feature, target)
		}
		if r.MissingFeature != "" && n.Has(r.MissingFeature) {
			return fmt.Errorf("%s already has %s", target, r.MissingFeature)
		}
	}
	return nil
}

func executeAction(st *game.State, actionID, incidentID string, mustMitigate bool, src rng.Source, env *engine.Env) *game.State {
	def, ok := env.Catalog.Action(actionID)
	if !ok {
		return st
	}
	var inc *game.Incident
	if incidentID != "" {
		if inc, ok = st.Incident(incidentID); !ok {
			return st
		}
	} else if mustMitigate {
		return st
	}
	amount := engine.Effectiveness(env.Catalog, def, inc)
	if mustMitigate && amount <= 0 {
		return st
	}
	if err := CanExecute(st, def, inc); err != nil {
		return st
	}

	s := st.Clone()
	target := engine.ResolveTarget(s, def, inc)
	s.Cash -= def.Cost
	s.Cooldowns[def.ID] = s.Elapsed
	duration := def.Duration * formula.MTTRMultiplier(s.AlertFatigue, s.Burnout, s.Observability)

	if duration <= 0 {
		engine.ApplyEffects(s, env.Catalog, def, target)
		if inc != nil && amount > 0 {
			s.Mitigate(incidentID, amount)
		}
		s.Log("action", fmt.Sprintf("%s done", def.Name), target, incidentID)
		return s
	}

	remaining := 0.0
	if inc != nil && amount > 0 {
		bump := amount * env.Tuning.MitigationHopeBump
		s.Mitigate(incidentID, bump)
		remaining = amount - bump
	}
	s.Actions = append(s.Actions, &game.ActionInProgress{
		ID:         game.NewID(src),
		ActionID:   def.ID,
		Name:       def.Name,
		Target:     target,
		IncidentID: incidentID,
		StartedAt:  s.Elapsed,
		EndsAt:     s.Elapsed + duration,
		Mitigation: remaining,
	})
	s.Log("action", fmt.Sprintf("%s started, %.0fs to go", def.Name, duration), target, incidentID)
	return s
}

func executeExternal(st *game.State, c ExecuteExternalAction, src rng.Source, env *engine.Env) *game.State {
	if c.Name == "" || c.Cost < 0 || c.Duration < 0 || c.Cost > st.Cash || math.IsNaN(c.Cost) || math.IsNaN(c.Duration) {
		return st
	}
	var inc *game.Incident
	if c.IncidentID != "" {
		var ok bool
		if inc, ok = st.Incident(c.IncidentID); !ok {
			return st
		}
	}

	s := st.Clone()
	amount := 0.0
	target := ""
	var deltas map[string]float64
	if inc != nil {
		inc, _ = s.Incident(c.IncidentID)
		target = inc.Target
		amount = env.Tuning.ExternalEffectiveness
		if sug, ok := inc.Suggestion(c.Name); ok {
			amount = sug.Effectiveness
			deltas = sug.MetricDeltas
		}
	}
	s.Cash -= c.Cost
	duration := c.Duration * formula.MTTRMultiplier(s.AlertFatigue, s.Burnout, s.Observability)

	if duration <= 0 {
		engine.ApplyMetricDeltas(s, target, deltas)
		if inc != nil {
			s.Mitigate(c.IncidentID, amount)
		}
		s.Log("action", fmt.Sprintf("%s done", c.Name), target, c.IncidentID)
		return s
	}

	remaining := 0.0
	if inc != nil {
		bump := amount * env.Tuning.MitigationHopeBump
		s.Mitigate(c.IncidentID, bump)
		remaining = amount - bump
	}
	a := &game.ActionInProgress{
		ID:         game.NewID(src),
		ActionID:   ExternalActionID,
		Name:       c.Name,
		External:   true,
		Target:     target,
		IncidentID: c.IncidentID,
		StartedAt:  s.Elapsed,
		EndsAt:     s.Elapsed + duration,
		Mitigation: remaining,
	}
	if len(deltas) > 0 {
		a.MetricDeltas = make(map[string]float64, len(deltas))
		for k, v := range deltas {
			a.MetricDeltas[k] = v
		}
	}
	s.Actions = append(s.Actions, a)
	s.Log("action", fmt.Sprintf("%s started, %.0fs to go", c.Name, duration), target, c.IncidentID)
	return s
}

func spawnExternal(st *game.State, g game.GeneratedIncident, src rng.Source, env *engine.Env) *game.State {
	if err := g.Validate(); err != nil {
		return st
	}
	n, ok := st.Node(g.Target)
	if !ok || !n.Active() {
		return st
	}
	if _, dup := st.DuplicateOf(g.Name, g.Target, st.Elapsed, env.Tuning.LinkWindow); dup {
		return st
	}
	id := g.ID
	if _, taken := st.Incident(id); id == "" || taken {
		id = game.NewID(src)
	}
	s := st.Clone()
	s.AddIncident(g.Incident(id, s.Elapsed), env.Tuning.LinkWindow)
	return s
}
