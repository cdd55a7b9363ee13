package engine

import (
	"fmt"
	"math"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/formula"
	"uptime-sim/internal/game"
	"uptime-sim/internal/graph"
	"uptime-sim/internal/rng"
)

// Game over reasons.
const (
	ReasonBankruptcy = "Bankruptcy: cash fell below the credit line"
	ReasonReputation = "Reputation collapse: nobody trusts the service anymore"
	ReasonMeltdown   = "Total meltdown: critical incidents everywhere and nothing is up"
)

// criticalNodes must be healthy for a tick to count as up.
var criticalNodes = []string{"dns", "app", "db_primary"}

// Tick advances the state by dt simulated seconds and returns the new state.
// The input is never modified. Paused or finished games are returned as is.
func Tick(st *game.State, src rng.Source, dt float64, env *Env) *game.State {
	if st == nil || st.Paused || st.GameOver || dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return st
	}
	s := st.Clone()
	t := &ticker{s: s, src: src, dt: dt, env: env}
	s.Elapsed += dt

	t.advanceClock()
	t.propagate()
	t.applyIncidentEffects()
	t.aggregate()
	t.trackUptime()
	t.settleEconomy()
	t.spawnIncidents()
	t.resolveIncidents()
	t.advanceActions()
	t.checkGameOver()
	t.updateStress()
	return s
}

type ticker struct {
	s   *game.State
	src rng.Source
	dt  float64
	env *Env
	up  bool
}

func (t *ticker) advanceClock() {
	s := t.s
	s.Hour += t.dt * t.env.Tuning.TimeScale / 3600
	for s.Hour >= 24 {
		s.Hour -= 24
		s.Day++
	}
}

func (t *ticker) propagate() {
	s, p := t.s, t.env.Params
	s.Ingress = formula.IngressRPS(s.Users, s.Hour, p)
	s.Graph.Propagate(s.Ingress, p)
	for _, id := range s.Graph.Autoscale(s.Elapsed, t.env.Tuning.AutoscaleCooldown) {
		n := s.Graph.Nodes[id]
		s.Log("autoscale", fmt.Sprintf("%s scaled to %d", id, n.Scaling.Current), id, "")
	}
	s.Graph.Advance(t.dt)
}

// applyIncidentEffects degrades targets, counts down escalation and outage
// timers and lets untouched nodes recover.
func (t *ticker) applyIncidentEffects() {
	s, tu := t.s, t.env.Tuning
	var escalated []*game.Incident
	for _, inc := range s.Incidents {
		damping := 1 - inc.MitigationLevel*tu.MitigationDamping
		n, ok := s.Node(inc.Target)
		if ok && n.Active() {
			e := inc.Effects
			n.Utilization *= scaled(e.UtilMult, damping)
			n.Latency *= scaled(e.LatencyMult, damping)
			n.ErrorRate = formula.Clamp01(n.ErrorRate * scaled(e.ErrorMult, damping))
			n.Health = formula.Clamp01(n.Health - e.HealthDecay*damping*t.dt)
			if n.Health <= 0 {
				n.ErrorRate = 1
			}
			n.Mode = graph.DeriveMode(n.Health, n.Utilization)
		}

		timerDt := t.dt * damping
		if inc.Escalation.Advance(timerDt) {
			if def, ok := t.env.Catalog.Incident(inc.EscalatesTo); ok {
				next := game.NewIncident(def, game.NewID(t.src), inc.Target, s.Elapsed)
				if next.Severity.Weight() < inc.Severity.Weight() {
					next.Severity = inc.Severity
				}
				escalated = append(escalated, next)
			}
		}
		if inc.Outage.Advance(timerDt) && ok {
			n.Health = 0
			n.ErrorRate = 1
			n.Mode = graph.ModeDown
			s.Log("outage", fmt.Sprintf("%s is down: %s", n.Name, inc.Name), n.ID, inc.ID)
		}
	}
	for _, next := range escalated {
		s.AddIncident(next, tu.LinkWindow)
	}

	for _, id := range s.Graph.SortedIDs() {
		n := s.Graph.Nodes[id]
		if !n.Active() || n.Mode == graph.ModeDown || s.HasIncidentOn(id) {
			continue
		}
		n.Health = formula.Clamp01(n.Health + tu.HealthRecovery*t.dt)
		n.Mode = graph.DeriveMode(n.Health, n.Utilization)
	}
}

// scaled damps a multiplier toward 1. A zero multiplier means "no effect".
func scaled(mult, damping float64) float64 {
	if mult == 0 {
		return 1
	}
	return 1 + (mult-1)*damping
}

func (t *ticker) aggregate() {
	s := t.s
	var errSum, latSum float64
	count := 0
	for _, id := range s.Graph.SortedIDs() {
		n := s.Graph.Nodes[id]
		if !n.Active() || n.Archetype == graph.Observability {
			continue
		}
		errSum += n.ErrorRate
		latSum += n.Latency
		count++
	}
	if count == 0 {
		s.ErrorRate, s.LatencyP95 = 0, 0
		return
	}
	s.ErrorRate = formula.Clamp01(errSum / float64(count))
	s.LatencyP95 = latSum / float64(count)
}

func (t *ticker) trackUptime() {
	s, tu := t.s, t.env.Tuning
	up := s.ErrorRate < tu.UpErrorCeiling && s.LatencyP95 < tu.UpLatencyCeilingMs
	for _, id := range criticalNodes {
		n, ok := s.Node(id)
		if !ok || !n.Active() || n.Mode == graph.ModeDown {
			up = false
			break
		}
	}
	t.up = up
	s.UptimeWindow.Push(up)
	s.Uptime = s.UptimeWindow.Mean()
	if up {
		s.UptimeStreak += t.dt
		s.BestStreak = math.Max(s.BestStreak, s.UptimeStreak)
	} else {
		s.UptimeStreak = 0
	}
}

func (t *ticker) settleEconomy() {
	s, p, tu := t.s, t.env.Params, t.env.Tuning
	s.Revenue = formula.Revenue(s.Users, s.Pricing, s.Reputation, s.Uptime, p)
	costs := 0.0
	for _, id := range s.Graph.SortedIDs() {
		if n := s.Graph.Nodes[id]; n.Active() {
			costs += n.BilledCost()
		}
	}
	s.Costs = costs
	s.Cash += (s.Revenue - s.Costs) * t.dt

	growth := formula.GrowthRate(s.Reputation, s.LatencyP95, s.ErrorRate, s.MarketingMultiplier, p)
	churn := formula.ChurnRate(!t.up, s.LatencyP95, s.ErrorRate, p)
	s.Users = math.Max(0, s.Users+s.Users*(growth-churn)*t.dt)
	s.PeakUsers = math.Max(s.PeakUsers, s.Users)

	severity := 0
	for _, inc := range s.Incidents {
		if inc.Category != catalog.CategoryOpportunity {
			severity += inc.Severity.Weight()
		}
	}
	s.Reputation = clampStress(s.Reputation + formula.ReputationDelta(s.Uptime, s.ErrorRate, severity, p)*t.dt)
	if s.Reputation <= 0 {
		s.ReputationZeroSeconds += t.dt
	} else {
		s.ReputationZeroSeconds = 0
	}

	if s.MarketingMultiplier > 1 {
		s.MarketingMultiplier = math.Max(1, s.MarketingMultiplier-tu.MarketingDecay*t.dt)
	}
	s.Difficulty = formula.DifficultyMultiplier(s.Elapsed, s.PeakUsers, p)
}

// spawnIncidents rolls every catalog definition once. Definitions are visited
// in id order and targets in node id order so the draws replay with the seed.
func (t *ticker) spawnIncidents() {
	s, cat, tu := t.s, t.env.Catalog, t.env.Tuning
	for _, id := range cat.IncidentIDs() {
		def := cat.Incidents[id]
		if def.RatePerMinute <= 0 {
			continue
		}
		eligible := t.eligibleTargets(def)
		if len(eligible) == 0 {
			continue
		}
		target := eligible[t.src.Pick(len(eligible))]
		hazard := formula.HazardMultiplier(s.Difficulty, target.Utilization, target.ErrorRate, s.TechDebt, target.Security, t.env.Params)
		chance := def.RatePerMinute * tu.IncidentRateScale * hazard * t.dt / 60
		if !t.src.Bool(chance) {
			continue
		}
		s.AddIncident(game.NewIncident(def, game.NewID(t.src), target.ID, s.Elapsed), tu.LinkWindow)
	}
}

func (t *ticker) eligibleTargets(def catalog.IncidentDef) []*graph.Node {
	s, w := t.s, def.When
	var out []*graph.Node
	for _, id := range s.Graph.SortedIDs() {
		n := s.Graph.Nodes[id]
		if !n.Active() || !def.TargetsArchetype(n.Archetype) {
			continue
		}
		if w.MinUtil > 0 && n.Utilization < w.MinUtil {
			continue
		}
		if w.MaxUtil > 0 && n.Utilization > w.MaxUtil {
			continue
		}
		if w.DisabledFeature != "" && n.Has(w.DisabledFeature) {
			continue
		}
		if s.TechDebt < w.MinTechDebt || n.ErrorRate < w.MinErrorRate {
			continue
		}
		if t.alreadyBurning(def.ID, id) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (t *ticker) alreadyBurning(defID, target string) bool {
	for _, inc := range t.s.Incidents {
		if inc.DefinitionID == defID && inc.Target == target {
			return true
		}
	}
	return false
}

func (t *ticker) resolveIncidents() {
	s := t.s
	kept := s.Incidents[:0:0]
	for _, inc := range s.Incidents {
		mitigated := inc.MitigationLevel >= 1
		expired := inc.AutoResolveAt > 0 && s.Elapsed > inc.AutoResolveAt
		if !mitigated && !expired {
			kept = append(kept, inc)
			continue
		}
		s.ResolvedIncidents++
		how := "expired"
		if mitigated {
			how = "mitigated"
			if r := inc.Reward; r != nil {
				s.Users += r.Users
				s.PeakUsers = math.Max(s.PeakUsers, s.Users)
				s.Reputation = clampStress(s.Reputation + r.Reputation)
				s.Cash += r.Cash
			}
		}
		s.Log("resolved", fmt.Sprintf("%s on %s %s", inc.Name, inc.Target, how), inc.Target, inc.ID)
	}
	s.Incidents = kept
}

// advanceActions updates progress and finalizes actions whose end time passed.
// A finished action whose node or incident vanished finalizes as a no-op.
func (t *ticker) advanceActions() {
	s, cat := t.s, t.env.Catalog
	kept := s.Actions[:0:0]
	for _, a := range s.Actions {
		if span := a.EndsAt - a.StartedAt; span > 0 {
			a.Progress = formula.Clamp01((s.Elapsed - a.StartedAt) / span)
		} else {
			a.Progress = 1
		}
		if s.Elapsed < a.EndsAt {
			kept = append(kept, a)
			continue
		}
		if _, ok := s.Node(a.Target); a.Target != "" && !ok {
			s.Log("action", fmt.Sprintf("%s finished without a target", a.Name), a.Target, a.IncidentID)
			continue
		}
		if a.External {
			ApplyMetricDeltas(s, a.Target, a.MetricDeltas)
		} else if def, ok := cat.Action(a.ActionID); ok {
			ApplyEffects(s, cat, def, a.Target)
		}
		if a.IncidentID != "" {
			s.Mitigate(a.IncidentID, a.Mitigation)
		}
		s.Log("action", fmt.Sprintf("%s finished", a.Name), a.Target, a.IncidentID)
	}
	s.Actions = kept

	for _, inc := range s.Incidents {
		inc.MitigationProgress = inc.MitigationLevel
	}
	for _, a := range s.Actions {
		if inc, ok := s.Incident(a.IncidentID); ok {
			inc.MitigationProgress = formula.Clamp01(inc.MitigationProgress + a.Mitigation*a.Progress)
		}
	}
}

func (t *ticker) checkGameOver() {
	s, tu := t.s, t.env.Tuning
	switch {
	case s.Cash < tu.BankruptcyThreshold:
		s.GameOver, s.GameOverReason = true, ReasonBankruptcy
	case s.ReputationZeroSeconds >= tu.ReputationGrace:
		s.GameOver, s.GameOverReason = true, ReasonReputation
	case s.CountSeverity(catalog.SeverityCrit) >= tu.CritLimit && s.Uptime < 0.5 && s.UptimeStreak == 0:
		s.GameOver, s.GameOverReason = true, ReasonMeltdown
	}
	if s.GameOver {
		s.Log("game_over", s.GameOverReason, "", "")
	}
}

func (t *ticker) updateStress() {
	s, tu := t.s, t.env.Tuning
	active := float64(len(s.Incidents))
	crit := float64(s.CountSeverity(catalog.SeverityCrit))

	s.AlertFatigue = clampStress(s.AlertFatigue + (tu.FatiguePerIncident*active-tu.FatigueRecovery)*t.dt)
	burn := tu.BurnoutPerCrit*crit - tu.BurnoutRecovery
	if s.AlertFatigue > 50 {
		burn += tu.BurnoutFromFatigue
	}
	s.Burnout = clampStress(s.Burnout + burn*t.dt)
	s.TechDebt = clampStress(s.TechDebt + tu.TechDebtGrowth*(1+0.1*active)*t.dt)
}
