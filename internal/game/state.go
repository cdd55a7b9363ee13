// Package game defines the session state threaded through the engine and reducer.
//
// A State is treated as a value: every transition clones it first and returns
// the clone, so a State handed out is never mutated afterwards.
package game

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/graph"
	"uptime-sim/internal/rng"
)

const (
	// GeneratedDefinition marks incidents produced by the collaborator.
	GeneratedDefinition = "ai_generated"
	// UptimeWindowSize is the number of samples in the rolling uptime window.
	UptimeWindowSize = 300
	// MaxEvents bounds the event log.
	MaxEvents = 50
	// MaxRecentTargets bounds the recently targeted node history.
	MaxRecentTargets = 5
)

// Timer counts down simulated seconds. A disarmed timer never fires.
type Timer struct {
	Armed     bool    `json:"armed"`
	Remaining float64 `json:"remaining"`
}

// NewTimer returns an armed timer, or a disarmed one for non-positive durations.
func NewTimer(seconds float64) Timer {
	if seconds <= 0 {
		return Timer{}
	}
	return Timer{Armed: true, Remaining: seconds}
}

// Advance counts the timer down and reports whether it fired on this call.
// A fired timer is disarmed.
func (t *Timer) Advance(dt float64) bool {
	if !t.Armed {
		return false
	}
	t.Remaining -= dt
	if t.Remaining <= 0 {
		t.Armed = false
		t.Remaining = 0
		return true
	}
	return false
}

// SuggestedAction is a collaborator-proposed remediation.
type SuggestedAction struct {
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	Cost          float64            `json:"cost"`
	Duration      float64            `json:"duration"`
	Effectiveness float64            `json:"effectiveness"`
	MetricDeltas  map[string]float64 `json:"metricDeltas,omitempty"`
}

// Incident is a live incident bound to one target node.
type Incident struct {
	ID                 string                  `json:"id"`
	DefinitionID       string                  `json:"definitionId"`
	Name               string                  `json:"name"`
	Description        string                  `json:"description"`
	Category           string                  `json:"category"`
	Severity           catalog.Severity        `json:"severity"`
	Target             string                  `json:"target"`
	StartedAt          float64                 `json:"startedAt"`
	Escalation         Timer                   `json:"escalation"`
	EscalatesTo        string                  `json:"escalatesTo,omitempty"`
	Outage             Timer                   `json:"outage"`
	AutoResolveAt      float64                 `json:"autoResolveAt"`
	MitigationLevel    float64                 `json:"mitigationLevel"`
	MitigationProgress float64                 `json:"mitigationProgress"`
	Related            []string                `json:"related"`
	Effects            catalog.IncidentEffects `json:"effects"`
	Logs               []string                `json:"logs"`
	Suggested          []SuggestedAction       `json:"suggested"`
	Reward             *catalog.Reward         `json:"reward,omitempty"`
}

// Generated reports whether the incident came from the collaborator.
func (i *Incident) Generated() bool { return i.DefinitionID == GeneratedDefinition }

// Clone deep-copies the incident.
func (i *Incident) Clone() *Incident {
	c := *i
	c.Related = cloneStrings(i.Related)
	c.Logs = cloneStrings(i.Logs)
	c.Effects.MetricDeltas = cloneFloats(i.Effects.MetricDeltas)
	if i.Suggested != nil {
		c.Suggested = make([]SuggestedAction, len(i.Suggested))
		for k, s := range i.Suggested {
			s.MetricDeltas = cloneFloats(s.MetricDeltas)
			c.Suggested[k] = s
		}
	}
	if i.Reward != nil {
		r := *i.Reward
		c.Reward = &r
	}
	return &c
}

// ActionInProgress is a scheduled action waiting for its end time.
type ActionInProgress struct {
	ID           string             `json:"id"`
	ActionID     string             `json:"actionId"`
	Name         string             `json:"name"`
	External     bool               `json:"external"`
	Target       string             `json:"target,omitempty"`
	IncidentID   string             `json:"incidentId,omitempty"`
	StartedAt    float64            `json:"startedAt"`
	EndsAt       float64            `json:"endsAt"`
	Progress     float64            `json:"progress"`
	Mitigation   float64            `json:"mitigation"`
	MetricDeltas map[string]float64 `json:"metricDeltas,omitempty"`
}

// Clone deep-copies the action.
func (a *ActionInProgress) Clone() *ActionInProgress {
	c := *a
	c.MetricDeltas = cloneFloats(a.MetricDeltas)
	return &c
}

// Event is one entry in the bounded session log.
type Event struct {
	Seq      int     `json:"seq"`
	At       float64 `json:"at"`
	Kind     string  `json:"kind"`
	Message  string  `json:"message"`
	Node     string  `json:"node,omitempty"`
	Incident string  `json:"incident,omitempty"`
}

// UptimeRing is a fixed-size ring of 0/1 availability samples.
type UptimeRing struct {
	Samples []int `json:"samples"`
	Next    int   `json:"next"`
	Sum     int   `json:"sum"`
}

// Push records a sample, dropping the oldest once the ring is full.
func (r *UptimeRing) Push(up bool) {
	v := 0
	if up {
		v = 1
	}
	if len(r.Samples) < UptimeWindowSize {
		r.Samples = append(r.Samples, v)
		r.Sum += v
		r.Next = len(r.Samples) % UptimeWindowSize
		return
	}
	r.Sum += v - r.Samples[r.Next]
	r.Samples[r.Next] = v
	r.Next = (r.Next + 1) % UptimeWindowSize
}

// Mean is the fraction of up samples. An empty ring counts as fully up.
func (r *UptimeRing) Mean() float64 {
	if len(r.Samples) == 0 {
		return 1
	}
	return float64(r.Sum) / float64(len(r.Samples))
}

// State is the whole session.
type State struct {
	Seed        string  `json:"seed"`
	Draws       uint64  `json:"draws"`
	StartedAtMs int64   `json:"startedAtMs"`
	Elapsed     float64 `json:"elapsed"`
	Day         int     `json:"day"`
	Hour        float64 `json:"hour"`
	Paused      bool    `json:"paused"`
	Speed       float64 `json:"speed"`

	Graph *graph.Graph `json:"-"`

	Users               float64 `json:"users"`
	PeakUsers           float64 `json:"peakUsers"`
	Cash                float64 `json:"cash"`
	Revenue             float64 `json:"revenue"`
	Costs               float64 `json:"costs"`
	Pricing             float64 `json:"pricing"`
	Reputation          float64 `json:"reputation"`
	MarketingMultiplier float64 `json:"marketingMultiplier"`

	Ingress      float64    `json:"ingress"`
	ErrorRate    float64    `json:"errorRate"`
	LatencyP95   float64    `json:"latencyP95"`
	Uptime       float64    `json:"uptime"`
	UptimeWindow UptimeRing `json:"uptimeWindow"`
	UptimeStreak float64    `json:"uptimeStreak"`
	BestStreak   float64    `json:"bestStreak"`
	Difficulty   float64    `json:"difficulty"`

	TechDebt      float64 `json:"techDebt"`
	AlertFatigue  float64 `json:"alertFatigue"`
	Burnout       float64 `json:"burnout"`
	Observability float64 `json:"observability"`

	Incidents         []*Incident         `json:"incidents"`
	Actions           []*ActionInProgress `json:"actions"`
	Cooldowns         map[string]float64  `json:"-"`
	ResolvedIncidents int                 `json:"resolvedIncidents"`
	RecentTargets     []string            `json:"recentTargets"`

	ReputationZeroSeconds float64 `json:"reputationZeroSeconds"`
	GameOver              bool    `json:"gameOver"`
	GameOverReason        string  `json:"gameOverReason"`

	Events           []Event         `json:"events"`
	EventSeq         int             `json:"eventSeq"`
	UnlockedFeatures map[string]bool `json:"-"`
}

// Options seed a new session.
type Options struct {
	Seed        string  `yaml:"seed"`
	StartedAtMs int64   `yaml:"-"`
	Cash        float64 `yaml:"cash"`
	Users       float64 `yaml:"users"`
	Pricing     float64 `yaml:"pricing"`
	Reputation  float64 `yaml:"reputation"`
	StartHour   float64 `yaml:"start_hour"`
}

// DefaultOptions returns the stock starting position.
func DefaultOptions() Options {
	return Options{Seed: "uptime", Cash: 10000, Users: 1000, Pricing: 1.5, Reputation: 50, StartHour: 8}
}

// NewGame builds the opening state from the catalog.
func NewGame(cat *catalog.Catalog, opts Options) *State {
	g := graph.New()
	for _, a := range graph.Archetypes {
		if def, ok := cat.Archetype(a); ok {
			g.AddComponent(def.Template(), nil)
		}
	}
	for _, e := range cat.Topology {
		g.ConnectSpec(e)
	}
	st := &State{
		Seed:                opts.Seed,
		StartedAtMs:         opts.StartedAtMs,
		Day:                 1,
		Hour:                opts.StartHour,
		Speed:               1,
		Graph:               g,
		Users:               opts.Users,
		PeakUsers:           opts.Users,
		Cash:                opts.Cash,
		Pricing:             opts.Pricing,
		Reputation:          opts.Reputation,
		MarketingMultiplier: 1,
		Uptime:              1,
		Difficulty:          1,
		Incidents:           []*Incident{},
		Actions:             []*ActionInProgress{},
		Cooldowns:           map[string]float64{},
		RecentTargets:       []string{},
		Events:              []Event{},
		UnlockedFeatures:    map[string]bool{},
	}
	st.Log("session", fmt.Sprintf("session started with seed %q", opts.Seed), "", "")
	return st
}

// Now is the simulated wall clock in milliseconds.
func (s *State) Now() int64 {
	return s.StartedAtMs + int64(s.Elapsed*1000)
}

// Clone deep-copies the state.
func (s *State) Clone() *State {
	c := *s
	if s.Graph != nil {
		c.Graph = s.Graph.Clone()
	}
	c.UptimeWindow.Samples = cloneInts(s.UptimeWindow.Samples)
	if s.Incidents != nil {
		c.Incidents = make([]*Incident, len(s.Incidents))
		for i, inc := range s.Incidents {
			c.Incidents[i] = inc.Clone()
		}
	}
	if s.Actions != nil {
		c.Actions = make([]*ActionInProgress, len(s.Actions))
		for i, a := range s.Actions {
			c.Actions[i] = a.Clone()
		}
	}
	c.Cooldowns = cloneFloats(s.Cooldowns)
	c.RecentTargets = cloneStrings(s.RecentTargets)
	if s.Events != nil {
		c.Events = make([]Event, len(s.Events))
		copy(c.Events, s.Events)
	}
	if s.UnlockedFeatures != nil {
		c.UnlockedFeatures = make(map[string]bool, len(s.UnlockedFeatures))
		for k, v := range s.UnlockedFeatures {
			c.UnlockedFeatures[k] = v
		}
	}
	return &c
}

// Normalize replaces nil collections with empty ones so transitions can
// write to them.
func (s *State) Normalize() {
	if s.Incidents == nil {
		s.Incidents = []*Incident{}
	}
	if s.Actions == nil {
		s.Actions = []*ActionInProgress{}
	}
	if s.Cooldowns == nil {
		s.Cooldowns = map[string]float64{}
	}
	if s.RecentTargets == nil {
		s.RecentTargets = []string{}
	}
	if s.Events == nil {
		s.Events = []Event{}
	}
	if s.UnlockedFeatures == nil {
		s.UnlockedFeatures = map[string]bool{}
	}
	if s.Graph != nil {
		if s.Graph.Nodes == nil {
			s.Graph.Nodes = map[string]*graph.Node{}
		}
		if s.Graph.Counters == nil {
			s.Graph.Counters = map[string]int{}
		}
	}
}

// Log appends an event, keeping the newest MaxEvents entries.
func (s *State) Log(kind, msg, node, incident string) {
	s.EventSeq++
	s.Events = append(s.Events, Event{Seq: s.EventSeq, At: s.Elapsed, Kind: kind, Message: msg, Node: node, Incident: incident})
	if over := len(s.Events) - MaxEvents; over > 0 {
		s.Events = append([]Event(nil), s.Events[over:]...)
	}
}

// Incident finds an active incident by id.
func (s *State) Incident(id string) (*Incident, bool) {
	for _, inc := range s.Incidents {
		if inc.ID == id {
			return inc, true
		}
	}
	return nil, false
}

// Node finds a node by id.
func (s *State) Node(id string) (*graph.Node, bool) {
	if s.Graph == nil {
		return nil, false
	}
	return s.Graph.Node(id)
}

// TrackTarget remembers a targeted node id, newest last.
func (s *State) TrackTarget(id string) {
	kept := s.RecentTargets[:0:0]
	for _, t := range s.RecentTargets {
		if t != id {
			kept = append(kept, t)
		}
	}
	kept = append(kept, id)
	if over := len(kept) - MaxRecentTargets; over > 0 {
		kept = kept[over:]
	}
	s.RecentTargets = kept
}

// CountSeverity counts active incidents of a severity.
func (s *State) CountSeverity(sev catalog.Severity) int {
	n := 0
	for _, inc := range s.Incidents {
		if inc.Severity == sev {
			n++
		}
	}
	return n
}

// HasIncidentOn reports whether any active incident targets the node.
func (s *State) HasIncidentOn(node string) bool {
	for _, inc := range s.Incidents {
		if inc.Target == node {
			return true
		}
	}
	return false
}

// NewID draws a uuid from the session random source so ids replay with the seed.
func NewID(src rng.Source) string {
	id, err := uuid.NewRandomFromReader(src)
	if err != nil {
		return fmt.Sprintf("id-%d", src.Intn(1<<30))
	}
	return id.String()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}

func cloneFloats(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
