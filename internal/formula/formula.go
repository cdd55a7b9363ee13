// Package formula holds the stateless metric functions of the simulation.
// Every function depends only on its arguments so a fixed seed and a fixed
// dt sequence always reproduce the same game.
package formula

import "math"

// Severity weights used by the reputation penalty.
const (
	SeverityWeightInfo = 1
	SeverityWeightWarn = 2
	SeverityWeightCrit = 3
)

// Params holds the tunable thresholds and rates behind the formulas.
type Params struct {
	LatencyNormalUtil    float64 `yaml:"latency_normal_util"`
	LatencyStressedUtil  float64 `yaml:"latency_stressed_util"`
	LatencyOverload      float64 `yaml:"latency_overload_factor"`
	ErrorUtilThreshold   float64 `yaml:"error_util_threshold"`
	ErrorOverload        float64 `yaml:"error_overload_factor"`
	ErrorHealthPenalty   float64 `yaml:"error_health_penalty"`
	RevenueUptimeFloor   float64 `yaml:"revenue_uptime_floor"`
	BaseGrowthPerSecond  float64 `yaml:"base_growth_per_second"`
	SlowLatencyMs        float64 `yaml:"slow_latency_ms"`
	ErrorPenaltyRate     float64 `yaml:"error_penalty_rate"`
	BaseChurnPerSecond   float64 `yaml:"base_churn_per_second"`
	DownChurnBonus       float64 `yaml:"down_churn_bonus"`
	VerySlowLatencyMs    float64 `yaml:"very_slow_latency_ms"`
	LatencyChurnBonus    float64 `yaml:"latency_churn_bonus"`
	HighErrorRate        float64 `yaml:"high_error_rate"`
	ErrorChurnBonus      float64 `yaml:"error_churn_bonus"`
	SeverityReputation   float64 `yaml:"severity_reputation_factor"`
	HazardCap            float64 `yaml:"hazard_cap"`
	HazardUtilKnee       float64 `yaml:"hazard_util_knee"`
	SecurityFactor       float64 `yaml:"security_factor"`
	DifficultyPerHour    float64 `yaml:"difficulty_per_hour"`
	DifficultyTimeCap    float64 `yaml:"difficulty_time_cap"`
	RequestsPerUser      float64 `yaml:"requests_per_user"`
	PeakActivityHour     float64 `yaml:"peak_activity_hour"`
	CircuitBreakerFactor float64 `yaml:"circuit_breaker_factor"`
}

// DefaultParams returns the stock balance.
func DefaultParams() Params {
	return Params{
		LatencyNormalUtil:    0.7,
		LatencyStressedUtil:  1.0,
		LatencyOverload:      2.0,
		ErrorUtilThreshold:   0.9,
		ErrorOverload:        2.0,
		ErrorHealthPenalty:   0.3,
		RevenueUptimeFloor:   0.3,
		BaseGrowthPerSecond:  0.00002,
		SlowLatencyMs:        500,
		ErrorPenaltyRate:     0.05,
		BaseChurnPerSecond:   0.000005,
		DownChurnBonus:       0.0001,
		VerySlowLatencyMs:    1000,
		LatencyChurnBonus:    0.00002,
		HighErrorRate:        0.1,
		ErrorChurnBonus:      0.00003,
		SeverityReputation:   0.005,
		HazardCap:            3.0,
		HazardUtilKnee:       0.8,
		SecurityFactor:       0.5,
		DifficultyPerHour:    0.1,
		DifficultyTimeCap:    2.0,
		RequestsPerUser:      0.05,
		PeakActivityHour:     14,
		CircuitBreakerFactor: 3.0,
	}
}

// Clamp saturates v into [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 saturates v into [0, 1].
func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }

// LatencyFactor is the multiplier applied to base latency at a given utilization.
func LatencyFactor(util float64, p Params) float64 {
	switch {
	case util <= p.LatencyNormalUtil:
		return 1
	case util <= p.LatencyStressedUtil:
		return 1 + (util-p.LatencyNormalUtil)*3
	default:
		over := (util - p.LatencyStressedUtil) * p.LatencyOverload
		return 1 + (p.LatencyStressedUtil-p.LatencyNormalUtil)*3 + math.Pow(over, 1.5)
	}
}

// Latency returns the latency in ms of a node under load.
func Latency(base, util float64, p Params) float64 {
	return base * LatencyFactor(util, p)
}

// ErrorRate returns the error rate of a node under load, clamped to [0,1].
func ErrorRate(base, util, health float64, p Params) float64 {
	rate := base
	if util > p.ErrorUtilThreshold {
		over := (util - p.ErrorUtilThreshold) * p.ErrorOverload
		rate += over * over * 0.1
	}
	rate += (1 - Clamp01(health)) * p.ErrorHealthPenalty
	return Clamp01(rate)
}

// Revenue returns revenue per second.
func Revenue(users, pricing, reputation, uptime float64, p Params) float64 {
	return users * pricing / 86400 * (reputation / 100) * math.Max(p.RevenueUptimeFloor, uptime)
}

// ReputationTier maps reputation to the growth multiplier tier.
func ReputationTier(reputation float64) float64 {
	switch {
	case reputation >= 80:
		return 1.5
	case reputation >= 60:
		return 1.0
	case reputation >= 40:
		return 0.5
	default:
		return 0.1
	}
}

// GrowthRate returns the fraction of users gained per second.
func GrowthRate(reputation, latencyMs, errorRate, marketing float64, p Params) float64 {
	rate := p.BaseGrowthPerSecond * ReputationTier(reputation)
	if latencyMs > p.SlowLatencyMs {
		rate *= 0.5
	}
	if errorRate > p.ErrorPenaltyRate {
		rate *= 0.5
	}
	return rate * marketing
}

// ChurnRate returns the fraction of users lost per second.
func ChurnRate(down bool, latencyMs, errorRate float64, p Params) float64 {
	rate := p.BaseChurnPerSecond
	if down {
		rate += p.DownChurnBonus
	}
	if latencyMs > p.VerySlowLatencyMs {
		rate += p.LatencyChurnBonus
	}
	if errorRate > p.HighErrorRate {
		rate += p.ErrorChurnBonus
	}
	return rate
}

// ReputationDelta returns the reputation change per second.
// severitySum is the sum of active incident weights (CRIT=3, WARN=2, INFO=1).
func ReputationDelta(uptime, errorRate float64, severitySum int, p Params) float64 {
	delta := 0.0
	if uptime > 0.95 && errorRate < 0.05 {
		delta += 0.01
	}
	switch {
	case uptime >= 0.99:
		delta += 0.02
	case uptime < 0.5:
		delta -= 0.2
	case uptime < 0.9:
		delta -= 0.05
	}
	if errorRate > p.HighErrorRate {
		delta -= 0.05
	}
	delta -= float64(severitySum) * p.SeverityReputation
	return delta
}

// HazardMultiplier amplifies incident spawn probability under stress.
// The result never exceeds p.HazardCap.
func HazardMultiplier(difficulty, util, errorRate, techDebt, security float64, p Params) float64 {
	h := difficulty
	h *= 1 + math.Max(0, util-p.HazardUtilKnee)*2
	h *= 1 + Clamp01(errorRate)*5
	h *= 1 + math.Max(0, techDebt)/100
	h *= 1.5 - Clamp01(security)*p.SecurityFactor
	if math.IsNaN(h) || h < 0 {
		return 0
	}
	return math.Min(h, p.HazardCap)
}

// DifficultyMultiplier grows with elapsed time up to a cap and with peak user tiers.
func DifficultyMultiplier(elapsedSeconds, peakUsers float64, p Params) float64 {
	d := 1 + math.Min(elapsedSeconds/3600*p.DifficultyPerHour, p.DifficultyTimeCap)
	switch {
	case peakUsers >= 100000:
		d *= 1.5
	case peakUsers >= 10000:
		d *= 1.25
	case peakUsers >= 1000:
		d *= 1.1
	}
	return d
}

// MTTRMultiplier scales how long durational fixes take.
// observability is in [0,1]; fatigue and burnout are in [0,100].
func MTTRMultiplier(fatigue, burnout, observability float64) float64 {
	m := 1 + fatigue/100*0.5 + burnout/100*0.5 - Clamp01(observability)*0.3
	return math.Max(0.5, m)
}

// ActivityRate is the traffic multiplier for an hour of the simulated day.
func ActivityRate(hour float64, p Params) float64 {
	return 0.3 + 0.7*(0.5+0.5*math.Cos(2*math.Pi*(hour-p.PeakActivityHour)/24))
}

// IngressRPS is the request rate entering the root node.
func IngressRPS(users, hour float64, p Params) float64 {
	return users * p.RequestsPerUser * ActivityRate(hour, p)
}
