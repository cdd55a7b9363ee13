package catalog

import "uptime-sim/internal/graph"

// appInstanceEdges wires a new app server the same way the first one is wired.
var appInstanceEdges = []graph.EdgeSpec{
	{From: "gateway", To: "target", Weight: 0.5},
	{From: "lb", To: "target", Weight: 0.5, Bypass: "gateway"},
	{From: "source", To: "cache", Weight: 0.6},
	{From: "source", To: "db_primary", Weight: 0.4},
	{From: "source", To: "queue", Weight: 0.2},
}

func builtInActions() map[string]ActionDef {
	defs := []ActionDef{
		{
			ID: "restart_service", Name: "Restart Service", Category: "ops",
			Description: "Bounce the process. Clears transient faults at the cost of a little stress.",
			Cooldown:    60, Target: graph.App,
			Effects:    Effects{HealthRestore: 0.5, AlertFatigue: 1},
			Mitigation: 0.4, Mitigates: []string{CategoryPerformance, CategoryAvailability},
		},
		{
			ID: "rollback_deploy", Name: "Roll Back Deploy", Category: "ops",
			Description: "Revert to the last known good release.",
			Duration:    20, Cooldown: 120, Target: graph.App,
			Effects:    Effects{HealthRestore: 1, TechDebt: 2},
			Mitigation: 0.8, Mitigates: []string{CategoryPerformance, CategoryAvailability},
		},
		{
			ID: "scale_up", Name: "Scale Up App", Category: "scaling",
			Description: "Add one instance to the app tier.",
			Cost:        200, Duration: 30, Cooldown: 30, Target: graph.App,
			Effects:    Effects{ScaleDelta: 1},
			Mitigation: 0.6, Mitigates: []string{CategoryCapacity, CategoryPerformance},
		},
		{
			ID: "scale_down", Name: "Scale Down App", Category: "scaling",
			Description: "Remove one instance from the app tier to save money.",
			Cooldown:    30, Target: graph.App,
			Effects: Effects{ScaleDelta: -1},
		},
		{
			ID: "scale_db", Name: "Scale Database", Category: "scaling",
			Description: "Move the primary database to a bigger instance class.",
			Cost:        500, Duration: 60, Cooldown: 60, Target: graph.DBPrimary,
			Effects:    Effects{ScaleDelta: 1, MetricDeltas: map[string]float64{"connections": -50}},
			Mitigation: 0.6, Mitigates: []string{CategoryCapacity, CategoryPerformance, CategoryData},
		},
		{
			ID: "scale_cache", Name: "Scale Cache", Category: "scaling",
			Description: "Add memory to the cache cluster.",
			Cost:        300, Duration: 30, Cooldown: 60, Target: graph.Cache,
			Requires:   Requirements{Node: "cache"},
			Effects:    Effects{ScaleDelta: 1},
			Mitigation: 0.5, Mitigates: []string{CategoryPerformance},
		},
		{
			ID: "add_app_instance", Name: "Add App Server", Category: "architecture",
			Description: "Provision another app server behind the load balancer.",
			Cost:        400, Duration: 45, Cooldown: 60, Target: graph.App,
			Effects:    Effects{AddComponent: graph.App, AddEdges: appInstanceEdges},
			Mitigation: 0.5, Mitigates: []string{CategoryCapacity},
		},
		{
			ID: "remove_app_instance", Name: "Remove App Server", Category: "architecture",
			Description: "Decommission the newest app server.",
			Cooldown:    60, Target: graph.App,
			Effects: Effects{RemoveComponent: graph.App},
		},
		{
			ID: "enable_cdn", Name: "Enable CDN", Category: "architecture",
			Description: "Put a content delivery network in front of everything.",
			Cost:        800, Duration: 60, Target: graph.CDN,
			Requires:   Requirements{LockedNode: "cdn"},
			Effects:    Effects{Unlock: "cdn", Reputation: 1},
			Mitigation: 0.5, Mitigates: []string{CategoryCapacity},
		},
		{
			ID: "enable_waf", Name: "Enable WAF", Category: "security",
			Description: "Filter hostile traffic at the edge.",
			Cost:        600, Duration: 60, Target: graph.WAF,
			Requires:   Requirements{Node: "cdn", LockedNode: "waf"},
			Effects:    Effects{Unlock: "waf"},
			Mitigation: 0.7, Mitigates: []string{CategorySecurity},
		},
		{
			ID: "enable_gateway", Name: "Enable API Gateway", Category: "architecture",
			Description: "Route requests through a managed gateway.",
			Cost:        500, Duration: 60, Target: graph.Gateway,
			Requires: Requirements{LockedNode: "gateway"},
			Effects:  Effects{Unlock: "gateway"},
		},
		{
			ID: "enable_cache", Name: "Enable Cache", Category: "architecture",
			Description: "Serve hot reads from memory.",
			Cost:        500, Duration: 45, Target: graph.Cache,
			Requires:   Requirements{LockedNode: "cache"},
			Effects:    Effects{Unlock: "cache"},
			Mitigation: 0.4, Mitigates: []string{CategoryPerformance},
		},
		{
			ID: "enable_queue", Name: "Enable Message Queue", Category: "architecture",
			Description: "Move slow work off the request path.",
			Cost:        400, Duration: 45, Target: graph.Queue,
			Requires: Requirements{LockedNode: "queue"},
			Effects:  Effects{Unlock: "queue"},
		},
		{
			ID: "enable_workers", Name: "Enable Workers", Category: "architecture",
			Description: "Start background workers that drain the queue.",
			Cost:        400, Duration: 30, Target: graph.Worker,
			Requires:   Requirements{Node: "queue", LockedNode: "worker"},
			Effects:    Effects{Unlock: "worker"},
			Mitigation: 0.6, Mitigates: []string{CategoryCapacity},
		},
		{
			ID: "add_read_replica", Name: "Add Read Replica", Category: "architecture",
			Description: "Offload reads to a replica of the primary database.",
			Cost:        700, Duration: 120, Target: graph.DBReplica,
			Requires:   Requirements{LockedNode: "db_replica"},
			Effects:    Effects{Unlock: "db_replica"},
			Mitigation: 0.5, Mitigates: []string{CategoryCapacity, CategoryData},
		},
		{
			ID: "enable_search", Name: "Enable Search Cluster", Category: "architecture",
			Description: "Stop running LIKE queries against the primary.",
			Cost:        600, Duration: 60, Target: graph.Search,
			Requires: Requirements{LockedNode: "search"},
			Effects:  Effects{Unlock: "search", TechDebt: -3},
		},
		{
			ID: "add_monitoring", Name: "Add Monitoring", Category: "observability",
			Description: "Dashboards and alerts make every fix faster.",
			Cost:        300, Duration: 30, Target: graph.Observability,
			Requires: Requirements{LockedNode: "observability"},
			Effects:  Effects{Unlock: "observability", Observability: 0.4, UnlockFeature: "dashboards"},
		},
		{
			ID: "tune_alerts", Name: "Tune Alerts", Category: "observability",
			Description: "Delete the alerts nobody reads.",
			Cost:        100, Duration: 60, Cooldown: 600,
			Requires: Requirements{Node: "observability"},
			Effects:  Effects{AlertFatigue: -15, Observability: 0.1},
		},
		{
			ID: "enable_autoscaling", Name: "Enable Autoscaling", Category: "scaling",
			Description: "Let the app tier scale itself between its bounds.",
			Cost:        500, Duration: 60, Target: graph.App,
			Requires:   Requirements{MissingFeature: graph.FeatureAutoscaling},
			Effects:    Effects{EnableFeature: graph.FeatureAutoscaling, UnlockFeature: "autoscaling"},
			Mitigation: 0.5, Mitigates: []string{CategoryCapacity},
		},
		{
			ID: "enable_circuit_breaker", Name: "Enable Circuit Breaker", Category: "reliability",
			Description: "Fail fast instead of piling up slow requests.",
			Cost:        300, Duration: 30, Target: graph.App,
			Requires:   Requirements{MissingFeature: graph.FeatureCircuitBreaker},
			Effects:    Effects{EnableFeature: graph.FeatureCircuitBreaker},
			Mitigation: 0.5, Mitigates: []string{CategoryAvailability},
		},
		{
			ID: "enable_rate_limit", Name: "Enable Rate Limiting", Category: "security",
			Description: "Cap what the load balancer admits.",
			Cost:        200, Duration: 20, Target: graph.LoadBalancer,
			Requires:   Requirements{MissingFeature: graph.FeatureRateLimit},
			Effects:    Effects{EnableFeature: graph.FeatureRateLimit},
			Mitigation: 0.6, Mitigates: []string{CategorySecurity, CategoryCapacity},
		},
		{
			ID: "renew_certificates", Name: "Renew Certificates", Category: "security",
			Description: "Rotate TLS certificates and turn on auto renewal.",
			Cost:        100, Duration: 10, Cooldown: 600, Target: graph.LoadBalancer,
			Effects:    Effects{EnableFeature: graph.FeatureTLS, SecurityDelta: 0.05},
			Mitigation: 1, Mitigates: []string{CategorySecurity},
		},
		{
			ID: "patch_security", Name: "Patch Vulnerabilities", Category: "security",
			Description: "Apply pending security patches.",
			Cost:        400, Duration: 90, Cooldown: 300, Target: graph.Auth,
			Effects:    Effects{SecurityDelta: 0.1, TechDebt: -2},
			Mitigation: 0.8, Mitigates: []string{CategorySecurity},
		},
		{
			ID: "failover_db", Name: "Fail Over Database", Category: "reliability",
			Description: "Promote the replica while the primary recovers.",
			Cost:        300, Duration: 30, Cooldown: 300, Target: graph.DBPrimary,
			Requires:   Requirements{Node: "db_replica"},
			Effects:    Effects{HealthRestore: 1, MetricDeltas: map[string]float64{"replication_lag_ms": -5000}},
			Mitigation: 1, Mitigates: []string{CategoryAvailability, CategoryData},
		},
		{
			ID: "optimize_queries", Name: "Optimize Queries", Category: "engineering",
			Description: "Add the missing indexes.",
			Cost:        600, Duration: 180, Cooldown: 300, Target: graph.DBPrimary,
			Effects:    Effects{LatencyMult: 0.8, TechDebt: -5, MetricDeltas: map[string]float64{"slow_queries": -50}},
			Mitigation: 0.7, Mitigates: []string{CategoryPerformance, CategoryData},
		},
		{
			ID: "flush_cache", Name: "Flush Cache", Category: "ops",
			Description: "Drop every cached entry and start warm-up again.",
			Cooldown:    120, Target: graph.Cache,
			Requires:   Requirements{Node: "cache"},
			Effects:    Effects{MetricDeltas: map[string]float64{"memory_used": -1, "evictions": -1000}},
			Mitigation: 0.5, Mitigates: []string{CategoryPerformance},
		},
		{
			ID: "expand_storage", Name: "Expand Storage", Category: "scaling",
			Description: "Archive cold objects and grow the volume.",
			Cost:        300, Duration: 60, Cooldown: 300, Target: graph.Storage,
			Effects:    Effects{ScaleDelta: 1, MetricDeltas: map[string]float64{"used_gb": -300}},
			Mitigation: 1, Mitigates: []string{CategoryCapacity},
		},
		{
			ID: "refactor", Name: "Refactor Hot Path", Category: "engineering",
			Description: "Pay down debt in the code everybody is afraid of.",
			Cost:        1500, Duration: 600, Cooldown: 900, Target: graph.App,
			Effects: Effects{TechDebt: -25, ErrorMult: 0.8},
		},
		{
			ID: "split_service", Name: "Split Out a Service", Category: "architecture",
			Description: "Carve a service out of the monolith.",
			Cost:        1200, Duration: 300, Cooldown: 1800, Target: graph.App,
			Effects: Effects{SplitService: true, TechDebt: -10, UnlockFeature: "microservices"},
		},
		{
			ID: "postmortem", Name: "Write Postmortem", Category: "team",
			Description: "Blameless review of what went wrong.",
			Duration:    120, Cooldown: 600,
			Effects: Effects{AlertFatigue: -10, TechDebt: -5},
		},
		{
			ID: "hire_oncall", Name: "Hire On-Call Engineer", Category: "team",
			Description: "Share the pager.",
			Cost:        3000, Cooldown: 1800,
			Effects: Effects{Burnout: -30, AlertFatigue: -20},
		},
		{
			ID: "run_marketing", Name: "Run Marketing Campaign", Category: "business",
			Description: "Buy attention. Make sure the site stays up.",
			Cost:        2000, Cooldown: 3600,
			Effects: Effects{Marketing: 1.5, Reputation: 2},
		},
		{
			ID: "raise_prices", Name: "Raise Prices", Category: "business",
			Cooldown: 600,
			Effects:  Effects{PricingMult: 1.1, Reputation: -3},
		},
		{
			ID: "lower_prices", Name: "Lower Prices", Category: "business",
			Cooldown: 600,
			Effects:  Effects{PricingMult: 0.9, Reputation: 2},
		},
	}
	out := make(map[string]ActionDef, len(defs))
	for _, d := range defs {
		out[d.ID] = d
	}
	return out
}
