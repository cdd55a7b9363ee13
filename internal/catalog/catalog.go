// Package catalog holds the static definition tables: component archetypes,
// player actions and incident definitions. Tables are immutable once loaded.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"uptime-sim/internal/formula"
	"uptime-sim/internal/graph"
)

// Severity of an incident, fixed at spawn.
type Severity string

const (
	SeverityInfo Severity = "INFO"
	SeverityWarn Severity = "WARN"
	SeverityCrit Severity = "CRIT"
)

// Weight returns the reputation penalty weight of a severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityCrit:
		return formula.SeverityWeightCrit
	case SeverityWarn:
		return formula.SeverityWeightWarn
	case SeverityInfo:
		return formula.SeverityWeightInfo
	default:
		return 0
	}
}

// Valid reports whether s is one of the three known severities.
func (s Severity) Valid() bool { return s.Weight() > 0 }

// Incident categories.
const (
	CategoryPerformance  = "performance"
	CategoryAvailability = "availability"
	CategoryCapacity     = "capacity"
	CategorySecurity     = "security"
	CategoryData         = "data"
	CategoryOpportunity  = "opportunity"
)

var compatibleCategories = map[string]string{
	CategoryPerformance:  CategoryCapacity,
	CategoryCapacity:     CategoryPerformance,
	CategoryAvailability: CategoryData,
	CategoryData:         CategoryAvailability,
}

// Compatible reports whether two incident categories can share a root cause.
func Compatible(a, b string) bool {
	return a == b || compatibleCategories[a] == b
}

// ArchetypeDef is the static template of a component type.
type ArchetypeDef struct {
	Archetype     graph.Archetype `yaml:"archetype"`
	Name          string          `yaml:"name"`
	Capacity      float64         `yaml:"capacity"`
	BaseLatency   float64         `yaml:"base_latency"`
	BaseError     float64         `yaml:"base_error"`
	Reliability   float64         `yaml:"reliability"`
	Security      float64         `yaml:"security"`
	CostPerSecond float64         `yaml:"cost_per_second"`
	MinScale      int             `yaml:"min_scale"`
	MaxScale      int             `yaml:"max_scale"`
	Features      []graph.Feature `yaml:"features"`
	Locked        bool            `yaml:"locked"`
}

// Template builds a fresh node from the archetype definition.
func (d ArchetypeDef) Template() *graph.Node {
	features := make(map[graph.Feature]bool, len(d.Features))
	for _, f := range d.Features {
		features[f] = true
	}
	return &graph.Node{
		ID:            string(d.Archetype),
		Archetype:     d.Archetype,
		Name:          d.Name,
		Capacity:      d.Capacity,
		BaseLatency:   d.BaseLatency,
		BaseError:     d.BaseError,
		Reliability:   d.Reliability,
		Security:      d.Security,
		Health:        1,
		Latency:       d.BaseLatency,
		ErrorRate:     d.BaseError,
		Mode:          graph.ModeNormal,
		Enabled:       true,
		Locked:        d.Locked,
		Scaling:       graph.Scaling{Min: d.MinScale, Max: d.MaxScale, Current: d.MinScale},
		CostPerSecond: d.CostPerSecond,
		Features:      features,
		Redundancy:    graph.Redundancy{Group: string(d.Archetype), Primary: true, Instance: 1},
		Specifics:     graph.DefaultSpecifics(d.Archetype),
	}
}

// Requirements gate whether an action may run.
type Requirements struct {
	Node           string        `yaml:"node,omitempty"`
	LockedNode     string        `yaml:"locked_node,omitempty"`
	Feature        graph.Feature `yaml:"feature,omitempty"`
	MissingFeature graph.Feature `yaml:"missing_feature,omitempty"`
	Incident       bool          `yaml:"incident,omitempty"`
}

// Effects lists what an action changes when it lands. Zero values mean "no change";
// multipliers of 0 are ignored.
type Effects struct {
	ScaleDelta       int                `yaml:"scale_delta,omitempty"`
	CapacityMult     float64            `yaml:"capacity_mult,omitempty"`
	LatencyMult      float64            `yaml:"latency_mult,omitempty"`
	ErrorMult        float64            `yaml:"error_mult,omitempty"`
	HealthRestore    float64            `yaml:"health_restore,omitempty"`
	SecurityDelta    float64            `yaml:"security_delta,omitempty"`
	ReliabilityDelta float64            `yaml:"reliability_delta,omitempty"`
	TechDebt         float64            `yaml:"tech_debt,omitempty"`
	Reputation       float64            `yaml:"reputation,omitempty"`
	AlertFatigue     float64            `yaml:"alert_fatigue,omitempty"`
	Burnout          float64            `yaml:"burnout,omitempty"`
	Observability    float64            `yaml:"observability,omitempty"`
	PricingMult      float64            `yaml:"pricing_mult,omitempty"`
	Marketing        float64            `yaml:"marketing,omitempty"`
	MetricDeltas     map[string]float64 `yaml:"metric_deltas,omitempty"`
	Unlock           string             `yaml:"unlock,omitempty"`
	EnableFeature    graph.Feature      `yaml:"enable_feature,omitempty"`
	UnlockFeature    string             `yaml:"unlock_feature,omitempty"`
	AddComponent     graph.Archetype    `yaml:"add_component,omitempty"`
	AddEdges         []graph.EdgeSpec   `yaml:"add_edges,omitempty"`
	RemoveComponent  graph.Archetype    `yaml:"remove_component,omitempty"`
	SplitService     bool               `yaml:"split_service,omitempty"`
}

// ActionDef is a player action.
type ActionDef struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Category    string          `yaml:"category"`
	Cost        float64         `yaml:"cost"`
	Duration    float64         `yaml:"duration"`
	Cooldown    float64         `yaml:"cooldown"`
	Target      graph.Archetype `yaml:"target,omitempty"`
	Requires    Requirements    `yaml:"requires,omitempty"`
	Effects     Effects         `yaml:"effects,omitempty"`
	Mitigation  float64         `yaml:"mitigation,omitempty"`
	Mitigates   []string        `yaml:"mitigates,omitempty"`
}

// MitigatesCategory reports whether the action is a generic fix for a category.
func (a ActionDef) MitigatesCategory(category string) bool {
	for _, c := range a.Mitigates {
		if c == category {
			return true
		}
	}
	return false
}

// Preconditions restrict which nodes an incident may strike.
type Preconditions struct {
	MinUtil         float64       `yaml:"min_util,omitempty"`
	MaxUtil         float64       `yaml:"max_util,omitempty"`
	DisabledFeature graph.Feature `yaml:"disabled_feature,omitempty"`
	MinTechDebt     float64       `yaml:"min_tech_debt,omitempty"`
	MinErrorRate    float64       `yaml:"min_error_rate,omitempty"`
}

// IncidentEffects describes how an incident degrades its target.
// Multipliers of 0 are treated as 1.
type IncidentEffects struct {
	UtilMult     float64            `yaml:"util_mult,omitempty" json:"utilization_multiplier,omitempty"`
	LatencyMult  float64            `yaml:"latency_mult,omitempty" json:"latency_multiplier,omitempty"`
	ErrorMult    float64            `yaml:"error_mult,omitempty" json:"error_multiplier,omitempty"`
	HealthDecay  float64            `yaml:"health_decay,omitempty" json:"health_decay_per_second,omitempty"`
	MetricDeltas map[string]float64 `yaml:"metric_deltas,omitempty" json:"metric_deltas,omitempty"`
}

// Escalation upgrades an incident into a more severe definition after a delay.
type Escalation struct {
	After float64 `yaml:"after"`
	To    string  `yaml:"to"`
}

// Reward is granted when an opportunity incident is fully mitigated.
type Reward struct {
	Users      float64 `yaml:"users,omitempty"`
	Reputation float64 `yaml:"reputation,omitempty"`
	Cash       float64 `yaml:"cash,omitempty"`
}

// IncidentDef is a static incident definition.
type IncidentDef struct {
	ID            string             `yaml:"id"`
	Name          string             `yaml:"name"`
	Description   string             `yaml:"description"`
	Category      string             `yaml:"category"`
	Severity      Severity           `yaml:"severity"`
	Targets       []graph.Archetype  `yaml:"targets"`
	When          Preconditions      `yaml:"when,omitempty"`
	RatePerMinute float64            `yaml:"rate_per_minute"`
	Effects       IncidentEffects    `yaml:"effects,omitempty"`
	Escalation    *Escalation        `yaml:"escalation,omitempty"`
	OutageAfter   float64            `yaml:"outage_after,omitempty"`
	AutoResolve   float64            `yaml:"auto_resolve,omitempty"`
	Remediations  map[string]float64 `yaml:"remediations,omitempty"`
	Reward        *Reward            `yaml:"reward,omitempty"`
}

// TargetsArchetype reports whether the incident may strike an archetype.
func (d IncidentDef) TargetsArchetype(a graph.Archetype) bool {
	for _, t := range d.Targets {
		if t == a {
			return true
		}
	}
	return false
}

// Catalog bundles every static table.
type Catalog struct {
	Archetypes map[graph.Archetype]ArchetypeDef
	Topology   []graph.EdgeSpec
	Actions    map[string]ActionDef
	Incidents  map[string]IncidentDef
}

// Archetype returns the definition of an archetype.
func (c *Catalog) Archetype(a graph.Archetype) (ArchetypeDef, bool) {
	d, ok := c.Archetypes[a]
	return d, ok
}

// Action returns an action definition by id.
func (c *Catalog) Action(id string) (ActionDef, bool) {
	d, ok := c.Actions[id]
	return d, ok
}

// Incident returns an incident definition by id.
func (c *Catalog) Incident(id string) (IncidentDef, bool) {
	d, ok := c.Incidents[id]
	return d, ok
}

// ActionIDs returns action ids in lexical order.
func (c *Catalog) ActionIDs() []string { return sortedKeys(c.Actions) }

// IncidentIDs returns incident ids in lexical order.
func (c *Catalog) IncidentIDs() []string { return sortedKeys(c.Incidents) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks cross references between tables.
func (c *Catalog) Validate() error {
	for _, a := range graph.Archetypes {
		if _, ok := c.Archetypes[a]; !ok {
			return fmt.Errorf("archetype %s missing", a)
		}
	}
	for _, id := range c.IncidentIDs() {
		d := c.Incidents[id]
		if !d.Severity.Valid() {
			return fmt.Errorf("incident %s: invalid severity %q", id, d.Severity)
		}
		if d.Escalation != nil {
			if _, ok := c.Incidents[d.Escalation.To]; !ok {
				return fmt.Errorf("incident %s: escalates to unknown %q", id, d.Escalation.To)
			}
		}
		for act := range d.Remediations {
			if _, ok := c.Actions[act]; !ok {
				return fmt.Errorf("incident %s: unknown remediation %q", id, act)
			}
		}
	}
	for _, id := range c.ActionIDs() {
		a := c.Actions[id]
		if a.Cost < 0 || a.Duration < 0 || a.Cooldown < 0 {
			return fmt.Errorf("action %s: negative cost, duration or cooldown", id)
		}
	}
	return nil
}

// Overlay is the YAML shape accepted by Load.
type Overlay struct {
	Actions   []ActionDef   `yaml:"actions"`
	Incidents []IncidentDef `yaml:"incidents"`
}

// Load reads a YAML overlay and merges it over the built-in tables.
// Entries replace built-ins with the same id.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var ov Overlay
	if err := yaml.Unmarshal(b, &ov); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := BuiltIn()
	for _, a := range ov.Actions {
		if a.ID == "" {
			return nil, fmt.Errorf("parse catalog: action without id")
		}
		c.Actions[a.ID] = a
	}
	for _, d := range ov.Incidents {
		if d.ID == "" {
			return nil, fmt.Errorf("parse catalog: incident without id")
		}
		c.Incidents[d.ID] = d
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return c, nil
}

// BuiltIn returns the stock catalog.
func BuiltIn() *Catalog {
	return &Catalog{
		Archetypes: builtInArchetypes(),
		Topology:   builtInTopology(),
		Actions:    builtInActions(),
		Incidents:  builtInIncidents(),
	}
}
