package catalog

import "uptime-sim/internal/graph"

func builtInArchetypes() map[graph.Archetype]ArchetypeDef {
	defs := []ArchetypeDef{
		{Archetype: graph.DNS, Name: "DNS", Capacity: 100000, BaseLatency: 5, BaseError: 0.0001, Reliability: 0.99, Security: 0.6, CostPerSecond: 0.0002, MinScale: 1, MaxScale: 1},
		{Archetype: graph.CDN, Name: "CDN", Capacity: 80000, BaseLatency: 15, BaseError: 0.0005, Reliability: 0.98, Security: 0.7, CostPerSecond: 0.002, MinScale: 1, MaxScale: 3, Locked: true},
		{Archetype: graph.WAF, Name: "Web Application Firewall", Capacity: 30000, BaseLatency: 3, BaseError: 0.0005, Reliability: 0.97, Security: 0.9, CostPerSecond: 0.0015, MinScale: 1, MaxScale: 3, Locked: true},
		{Archetype: graph.LoadBalancer, Name: "Load Balancer", Capacity: 20000, BaseLatency: 2, BaseError: 0.0005, Reliability: 0.98, Security: 0.6, CostPerSecond: 0.001, MinScale: 1, MaxScale: 4},
		{Archetype: graph.Gateway, Name: "API Gateway", Capacity: 12000, BaseLatency: 5, BaseError: 0.001, Reliability: 0.96, Security: 0.7, CostPerSecond: 0.0012, MinScale: 1, MaxScale: 4, Locked: true},
		{Archetype: graph.Auth, Name: "Auth Service", Capacity: 3000, BaseLatency: 20, BaseError: 0.002, Reliability: 0.95, Security: 0.8, CostPerSecond: 0.001, MinScale: 1, MaxScale: 4},
		{Archetype: graph.App, Name: "App Server", Capacity: 400, BaseLatency: 60, BaseError: 0.005, Reliability: 0.9, Security: 0.5, CostPerSecond: 0.003, MinScale: 1, MaxScale: 5},
		{Archetype: graph.Cache, Name: "Cache", Capacity: 6000, BaseLatency: 2, BaseError: 0.001, Reliability: 0.95, Security: 0.5, CostPerSecond: 0.0015, MinScale: 1, MaxScale: 5, Locked: true},
		{Archetype: graph.Queue, Name: "Message Queue", Capacity: 4000, BaseLatency: 5, BaseError: 0.001, Reliability: 0.97, Security: 0.6, CostPerSecond: 0.0008, MinScale: 1, MaxScale: 4, Locked: true},
		{Archetype: graph.Worker, Name: "Workers", Capacity: 300, BaseLatency: 100, BaseError: 0.01, Reliability: 0.9, Security: 0.5, CostPerSecond: 0.002, MinScale: 1, MaxScale: 10, Locked: true},
		{Archetype: graph.DBPrimary, Name: "Primary Database", Capacity: 600, BaseLatency: 15, BaseError: 0.002, Reliability: 0.95, Security: 0.6, CostPerSecond: 0.005, MinScale: 1, MaxScale: 4, Features: []graph.Feature{graph.FeatureReplication}},
		{Archetype: graph.DBReplica, Name: "Read Replica", Capacity: 600, BaseLatency: 15, BaseError: 0.002, Reliability: 0.93, Security: 0.6, CostPerSecond: 0.004, MinScale: 1, MaxScale: 5, Locked: true},
		{Archetype: graph.Storage, Name: "Object Storage", Capacity: 2500, BaseLatency: 30, BaseError: 0.001, Reliability: 0.99, Security: 0.7, CostPerSecond: 0.001, MinScale: 1, MaxScale: 3},
		{Archetype: graph.Search, Name: "Search Cluster", Capacity: 500, BaseLatency: 40, BaseError: 0.005, Reliability: 0.9, Security: 0.5, CostPerSecond: 0.0025, MinScale: 1, MaxScale: 4, Locked: true},
		{Archetype: graph.Observability, Name: "Observability", Capacity: 50000, BaseLatency: 1, BaseError: 0, Reliability: 0.99, Security: 0.6, CostPerSecond: 0.002, MinScale: 1, MaxScale: 2, Locked: true},
	}
	out := make(map[graph.Archetype]ArchetypeDef, len(defs))
	for _, d := range defs {
		out[d.Archetype] = d
	}
	return out
}

func builtInTopology() []graph.EdgeSpec {
	return []graph.EdgeSpec{
		{From: "dns", To: "cdn", Weight: 1.0},
		{From: "cdn", To: "waf", Weight: 0.95},
		{From: "waf", To: "lb", Weight: 1.0},
		{From: "lb", To: "gateway", Weight: 1.0},
		{From: "gateway", To: "auth", Weight: 0.2},
		{From: "gateway", To: "app", Weight: 1.0},
		{From: "app", To: "cache", Weight: 0.6},
		{From: "app", To: "db_primary", Weight: 0.4},
		{From: "app", To: "queue", Weight: 0.2},
		{From: "app", To: "search", Weight: 0.1},
		{From: "app", To: "storage", Weight: 0.1},
		{From: "queue", To: "worker", Weight: 1.0},
		{From: "worker", To: "db_primary", Weight: 0.3},
		{From: "cache", To: "db_replica", Weight: 0.1},
		{From: "db_primary", To: "db_replica", Weight: 0.05},
		{From: "app", To: "observability", Weight: 0.05},
		// Routes around components that are still locked.
		{From: "dns", To: "lb", Weight: 1.0, Bypass: "cdn"},
		{From: "cdn", To: "lb", Weight: 0.95, Bypass: "waf"},
		{From: "lb", To: "app", Weight: 1.0, Bypass: "gateway"},
		{From: "app", To: "db_primary", Weight: 0.5, Bypass: "cache"},
	}
}
