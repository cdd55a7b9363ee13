// Package engine advances a game state by one tick.
package engine

import (
	"uptime-sim/internal/catalog"
	"uptime-sim/internal/formula"
)

// Tuning holds the engine constants that are not part of the metric formulas.
type Tuning struct {
	TimeScale             float64 `yaml:"time_scale"`
	UpErrorCeiling        float64 `yaml:"up_error_ceiling"`
	UpLatencyCeilingMs    float64 `yaml:"up_latency_ceiling_ms"`
	LinkWindow            float64 `yaml:"link_window"`
	MitigationDamping     float64 `yaml:"mitigation_damping"`
	HealthRecovery        float64 `yaml:"health_recovery"`
	AutoscaleCooldown     float64 `yaml:"autoscale_cooldown"`
	BankruptcyThreshold   float64 `yaml:"bankruptcy_threshold"`
	ReputationGrace       float64 `yaml:"reputation_grace"`
	CritLimit             int     `yaml:"crit_limit"`
	IncidentRateScale     float64 `yaml:"incident_rate_scale"`
	MarketingDecay        float64 `yaml:"marketing_decay"`
	FatiguePerIncident    float64 `yaml:"fatigue_per_incident"`
	FatigueRecovery       float64 `yaml:"fatigue_recovery"`
	BurnoutPerCrit        float64 `yaml:"burnout_per_crit"`
	BurnoutFromFatigue    float64 `yaml:"burnout_from_fatigue"`
	BurnoutRecovery       float64 `yaml:"burnout_recovery"`
	TechDebtGrowth        float64 `yaml:"tech_debt_growth"`
	MitigationHopeBump    float64 `yaml:"mitigation_hope_bump"`
	ExternalEffectiveness float64 `yaml:"external_effectiveness"`
}

// DefaultTuning returns the stock engine constants.
func DefaultTuning() Tuning {
	return Tuning{
		TimeScale:             60,
		UpErrorCeiling:        0.1,
		UpLatencyCeilingMs:    2000,
		LinkWindow:            60,
		MitigationDamping:     0.7,
		HealthRecovery:        0.002,
		AutoscaleCooldown:     60,
		BankruptcyThreshold:   -2000,
		ReputationGrace:       120,
		CritLimit:             3,
		IncidentRateScale:     1,
		MarketingDecay:        0.0005,
		FatiguePerIncident:    0.05,
		FatigueRecovery:       0.02,
		BurnoutPerCrit:        0.03,
		BurnoutFromFatigue:    0.01,
		BurnoutRecovery:       0.01,
		TechDebtGrowth:        0.001,
		MitigationHopeBump:    0.3,
		ExternalEffectiveness: 0.5,
	}
}

// Env bundles what a tick needs besides the state and the random source.
type Env struct {
	Catalog *catalog.Catalog
	Params  formula.Params
	Tuning  Tuning
}

// NewEnv returns an environment over the built-in catalog and stock tuning.
func NewEnv() *Env {
	return &Env{Catalog: catalog.BuiltIn(), Params: formula.DefaultParams(), Tuning: DefaultTuning()}
}
