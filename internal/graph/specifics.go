package graph

import (
	"encoding/json"
	"fmt"
	"math"

	"uptime-sim/internal/formula"
)

// SpecificsKind tags the variant of archetype-specific metrics.
type SpecificsKind string

const (
	KindCDN      SpecificsKind = "cdn"
	KindCache    SpecificsKind = "cache"
	KindQueue    SpecificsKind = "queue"
	KindDatabase SpecificsKind = "database"
	KindStorage  SpecificsKind = "storage"
	KindWorker   SpecificsKind = "worker"
	KindGeneric  SpecificsKind = "generic"
)

// Specifics is the closed set of archetype-specific metric records.
// The concrete types are *CDNMetrics, *CacheMetrics, *QueueMetrics,
// *DatabaseMetrics, *StorageMetrics, *WorkerMetrics and *GenericMetrics.
type Specifics interface {
	Kind() SpecificsKind
}

// CDNMetrics tracks edge offload.
type CDNMetrics struct {
	HitRate     float64 `json:"hit_rate"`
	BaseHitRate float64 `json:"base_hit_rate"`
}

// CacheMetrics tracks hit ratio and memory pressure.
type CacheMetrics struct {
	HitRate     float64 `json:"hit_rate"`
	BaseHitRate float64 `json:"base_hit_rate"`
	MemoryUsed  float64 `json:"memory_used"`
	Evictions   float64 `json:"evictions"`
}

// QueueMetrics tracks pending messages.
type QueueMetrics struct {
	Backlog     float64 `json:"backlog"`
	MaxBacklog  float64 `json:"max_backlog"`
	DeadLetters float64 `json:"dead_letters"`
}

// DatabaseMetrics tracks connection pool and replication state.
type DatabaseMetrics struct {
	Connections      float64 `json:"connections"`
	MaxConnections   float64 `json:"max_connections"`
	ReplicationLagMs float64 `json:"replication_lag_ms"`
	SlowQueries      float64 `json:"slow_queries"`
}

// StorageMetrics tracks disk usage.
type StorageMetrics struct {
	UsedGB     float64 `json:"used_gb"`
	CapacityGB float64 `json:"capacity_gb"`
}

// WorkerMetrics tracks background job throughput.
type WorkerMetrics struct {
	JobsPerSecond float64 `json:"jobs_per_second"`
	FailedJobs    float64 `json:"failed_jobs"`
}

// GenericMetrics is used by archetypes without extra metrics.
type GenericMetrics struct{}

func (*CDNMetrics) Kind() SpecificsKind      { return KindCDN }
func (*CacheMetrics) Kind() SpecificsKind    { return KindCache }
func (*QueueMetrics) Kind() SpecificsKind    { return KindQueue }
func (*DatabaseMetrics) Kind() SpecificsKind { return KindDatabase }
func (*StorageMetrics) Kind() SpecificsKind  { return KindStorage }
func (*WorkerMetrics) Kind() SpecificsKind   { return KindWorker }
func (*GenericMetrics) Kind() SpecificsKind  { return KindGeneric }

// DefaultSpecifics returns the starting metrics for an archetype.
func DefaultSpecifics(a Archetype) Specifics {
	switch a {
	case CDN:
		return &CDNMetrics{HitRate: 0.3, BaseHitRate: 0.3}
	case Cache:
		return &CacheMetrics{HitRate: 0.8, BaseHitRate: 0.8}
	case Queue:
		return &QueueMetrics{MaxBacklog: 100000}
	case DBPrimary, DBReplica:
		return &DatabaseMetrics{MaxConnections: 200}
	case Storage:
		return &StorageMetrics{UsedGB: 100, CapacityGB: 1000}
	case Worker:
		return &WorkerMetrics{}
	default:
		return &GenericMetrics{}
	}
}

// CloneSpecifics deep-copies a specifics record.
func CloneSpecifics(s Specifics) Specifics {
	switch v := s.(type) {
	case nil:
		return nil
	case *CDNMetrics:
		c := *v
		return &c
	case *CacheMetrics:
		c := *v
		return &c
	case *QueueMetrics:
		c := *v
		return &c
	case *DatabaseMetrics:
		c := *v
		return &c
	case *StorageMetrics:
		c := *v
		return &c
	case *WorkerMetrics:
		c := *v
		return &c
	default:
		return &GenericMetrics{}
	}
}

// ClampSpecifics saturates every field into its valid range.
func ClampSpecifics(s Specifics) {
	switch v := s.(type) {
	case *CDNMetrics:
		v.HitRate = formula.Clamp01(v.HitRate)
		v.BaseHitRate = formula.Clamp01(v.BaseHitRate)
	case *CacheMetrics:
		v.HitRate = formula.Clamp01(v.HitRate)
		v.BaseHitRate = formula.Clamp01(v.BaseHitRate)
		v.MemoryUsed = formula.Clamp01(v.MemoryUsed)
		v.Evictions = math.Max(0, v.Evictions)
	case *QueueMetrics:
		v.MaxBacklog = math.Max(0, v.MaxBacklog)
		v.Backlog = formula.Clamp(v.Backlog, 0, v.MaxBacklog)
		v.DeadLetters = math.Max(0, v.DeadLetters)
	case *DatabaseMetrics:
		v.MaxConnections = math.Max(1, v.MaxConnections)
		v.Connections = formula.Clamp(v.Connections, 0, v.MaxConnections)
		v.ReplicationLagMs = math.Max(0, v.ReplicationLagMs)
		v.SlowQueries = math.Max(0, v.SlowQueries)
	case *StorageMetrics:
		v.CapacityGB = math.Max(1, v.CapacityGB)
		v.UsedGB = formula.Clamp(v.UsedGB, 0, v.CapacityGB)
	case *WorkerMetrics:
		v.JobsPerSecond = math.Max(0, v.JobsPerSecond)
		v.FailedJobs = math.Max(0, v.FailedJobs)
	case *GenericMetrics, nil:
	}
}

// Offload is the fraction of accepted load a node serves itself and does not forward.
func Offload(s Specifics) float64 {
	switch v := s.(type) {
	case *CDNMetrics:
		return formula.Clamp01(v.HitRate)
	case *CacheMetrics:
		return formula.Clamp01(v.HitRate)
	default:
		return 0
	}
}

// Compact flattens the specifics for the incident generator snapshot.
func Compact(s Specifics) map[string]float64 {
	switch v := s.(type) {
	case *CDNMetrics:
		return map[string]float64{"hit_rate": v.HitRate}
	case *CacheMetrics:
		return map[string]float64{"hit_rate": v.HitRate, "memory_used": v.MemoryUsed, "evictions": v.Evictions}
	case *QueueMetrics:
		return map[string]float64{"backlog": v.Backlog, "dead_letters": v.DeadLetters}
	case *DatabaseMetrics:
		return map[string]float64{"connections": v.Connections, "max_connections": v.MaxConnections, "replication_lag_ms": v.ReplicationLagMs, "slow_queries": v.SlowQueries}
	case *StorageMetrics:
		return map[string]float64{"used_gb": v.UsedGB, "capacity_gb": v.CapacityGB}
	case *WorkerMetrics:
		return map[string]float64{"jobs_per_second": v.JobsPerSecond, "failed_jobs": v.FailedJobs}
	default:
		return nil
	}
}

// Bottleneck names the resource limiting a node, or "" when nothing stands out.
func Bottleneck(n *Node) string {
	switch v := n.Specifics.(type) {
	case *CDNMetrics:
		if v.HitRate < v.BaseHitRate*0.5 {
			return "edge_miss_rate"
		}
	case *CacheMetrics:
		if v.MemoryUsed > 0.9 {
			return "cache_memory"
		}
		if v.HitRate < v.BaseHitRate*0.6 {
			return "cache_miss_storm"
		}
	case *QueueMetrics:
		if v.MaxBacklog > 0 && v.Backlog > v.MaxBacklog*0.5 {
			return "queue_backlog"
		}
	case *DatabaseMetrics:
		if v.Connections >= v.MaxConnections*0.9 {
			return "connection_pool"
		}
		if v.ReplicationLagMs > 1000 {
			return "replication_lag"
		}
	case *StorageMetrics:
		if v.UsedGB > v.CapacityGB*0.9 {
			return "disk_space"
		}
	case *WorkerMetrics:
		if v.FailedJobs > v.JobsPerSecond && v.FailedJobs > 0 {
			return "job_failures"
		}
	case *GenericMetrics, nil:
	}
	if n.Utilization > 1 {
		return "capacity"
	}
	return ""
}

// ApplyDelta adds v to the named metric. It reports false for unknown keys.
func ApplyDelta(s Specifics, key string, v float64) bool {
	ok := true
	switch m := s.(type) {
	case *CDNMetrics:
		switch key {
		case "hit_rate":
			m.HitRate += v
		default:
			ok = false
		}
	case *CacheMetrics:
		switch key {
		case "hit_rate":
			m.HitRate += v
		case "memory_used":
			m.MemoryUsed += v
		case "evictions":
			m.Evictions += v
		default:
			ok = false
		}
	case *QueueMetrics:
		switch key {
		case "backlog":
			m.Backlog += v
		case "dead_letters":
			m.DeadLetters += v
		default:
			ok = false
		}
	case *DatabaseMetrics:
		switch key {
		case "connections":
			m.Connections += v
		case "replication_lag_ms":
			m.ReplicationLagMs += v
		case "slow_queries":
			m.SlowQueries += v
		default:
			ok = false
		}
	case *StorageMetrics:
		switch key {
		case "used_gb":
			m.UsedGB += v
		default:
			ok = false
		}
	case *WorkerMetrics:
		switch key {
		case "jobs_per_second":
			m.JobsPerSecond += v
		case "failed_jobs":
			m.FailedJobs += v
		default:
			ok = false
		}
	default:
		ok = false
	}
	if ok {
		ClampSpecifics(s)
	}
	return ok
}

// advanceSpecifics moves per-archetype metrics forward by dt seconds after propagation.
func advanceSpecifics(n *Node, dt float64) {
	switch v := n.Specifics.(type) {
	case *CDNMetrics:
		v.HitRate += (v.BaseHitRate - v.HitRate) * math.Min(1, 0.05*dt)
	case *CacheMetrics:
		target := v.BaseHitRate
		if n.Utilization > 1 {
			target *= 1 / n.Utilization
		}
		v.HitRate += (target - v.HitRate) * math.Min(1, 0.1*dt)
		v.MemoryUsed = formula.Clamp01(0.4 + 0.5*n.Utilization)
		v.Evictions = math.Max(0, v.MemoryUsed-0.8) * n.LoadIn
	case *QueueMetrics:
		drain := n.EffectiveCapacity()
		v.Backlog += (n.LoadIn - drain) * dt
		if v.Backlog > v.MaxBacklog {
			v.DeadLetters += v.Backlog - v.MaxBacklog
		}
	case *DatabaseMetrics:
		v.Connections = n.Utilization * v.MaxConnections * 0.8
		if n.Utilization > 0.8 {
			v.ReplicationLagMs += (n.Utilization - 0.8) * 500 * dt
		} else {
			v.ReplicationLagMs *= math.Max(0, 1-0.2*dt)
		}
		v.SlowQueries = math.Max(0, n.Utilization-0.7) * 100
	case *StorageMetrics:
		v.UsedGB += n.LoadIn * 1e-6 * dt
	case *WorkerMetrics:
		v.JobsPerSecond = math.Min(n.LoadIn, n.EffectiveCapacity())
		v.FailedJobs = v.JobsPerSecond * n.ErrorRate
	case *GenericMetrics, nil:
	}
	ClampSpecifics(n.Specifics)
}

type specificsEnvelope struct {
	Kind SpecificsKind   `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

func wrapSpecifics(s Specifics) (*specificsEnvelope, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &specificsEnvelope{Kind: s.Kind(), Data: data}, nil
}

func unwrapSpecifics(env *specificsEnvelope) (Specifics, error) {
	if env == nil {
		return nil, nil
	}
	var s Specifics
	switch env.Kind {
	case KindCDN:
		s = &CDNMetrics{}
	case KindCache:
		s = &CacheMetrics{}
	case KindQueue:
		s = &QueueMetrics{}
	case KindDatabase:
		s = &DatabaseMetrics{}
	case KindStorage:
		s = &StorageMetrics{}
	case KindWorker:
		s = &WorkerMetrics{}
	case KindGeneric:
		s = &GenericMetrics{}
	default:
		return nil, fmt.Errorf("unknown specifics kind %q", env.Kind)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, s); err != nil {
			return nil, fmt.Errorf("decode %s specifics: %w", env.Kind, err)
		}
	}
	return s, nil
}
