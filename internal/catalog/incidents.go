package catalog

import "uptime-sim/internal/graph"

func builtInIncidents() map[string]IncidentDef {
	defs := []IncidentDef{
		{
			ID: "cpu_saturation", Name: "CPU Saturation", Category: CategoryPerformance, Severity: SeverityWarn,
			Description: "Request handlers are starved for CPU.",
			Targets:     []graph.Archetype{graph.App, graph.Worker},
			When:        Preconditions{MinUtil: 0.85}, RatePerMinute: 0.5,
			Effects:     IncidentEffects{UtilMult: 1.2, LatencyMult: 1.5},
			Escalation:  &Escalation{After: 240, To: "app_meltdown"},
			AutoResolve: 300,
			Remediations: map[string]float64{
				"scale_up": 1, "add_app_instance": 0.8, "enable_autoscaling": 0.8, "restart_service": 0.5,
			},
		},
		{
			ID: "app_meltdown", Name: "Application Meltdown", Category: CategoryAvailability, Severity: SeverityCrit,
			Description: "The app tier is returning errors for most requests.",
			Targets:     []graph.Archetype{graph.App},
			Effects:     IncidentEffects{ErrorMult: 3, HealthDecay: 0.01},
			OutageAfter: 300, AutoResolve: 900,
			Remediations: map[string]float64{
				"rollback_deploy": 1, "restart_service": 0.6, "scale_up": 0.5, "enable_circuit_breaker": 0.5,
			},
		},
		{
			ID: "memory_leak", Name: "Memory Leak", Category: CategoryPerformance, Severity: SeverityInfo,
			Description: "Resident memory grows without bound.",
			Targets:     []graph.Archetype{graph.App, graph.Worker},
			When:        Preconditions{MinTechDebt: 15}, RatePerMinute: 0.2,
			Effects:     IncidentEffects{LatencyMult: 1.2, HealthDecay: 0.002},
			Escalation:  &Escalation{After: 600, To: "app_meltdown"},
			AutoResolve: 1200,
			Remediations: map[string]float64{
				"restart_service": 1, "rollback_deploy": 1, "refactor": 1,
			},
		},
		{
			ID: "bad_deploy", Name: "Bad Deploy", Category: CategoryAvailability, Severity: SeverityWarn,
			Description: "The latest release throws on a common path.",
			Targets:     []graph.Archetype{graph.App},
			RatePerMinute: 0.15,
			Effects:       IncidentEffects{ErrorMult: 4},
			Escalation:    &Escalation{After: 300, To: "app_meltdown"},
			AutoResolve:   600,
			Remediations: map[string]float64{
				"rollback_deploy": 1, "restart_service": 0.3,
			},
		},
		{
			ID: "connection_exhaustion", Name: "Connection Pool Exhausted", Category: CategoryCapacity, Severity: SeverityCrit,
			Description: "Every database connection is checked out.",
			Targets:     []graph.Archetype{graph.DBPrimary},
			When:        Preconditions{MinUtil: 0.8}, RatePerMinute: 0.4,
			Effects:     IncidentEffects{ErrorMult: 3, LatencyMult: 2, MetricDeltas: map[string]float64{"connections": 200}},
			OutageAfter: 420, AutoResolve: 600,
			Remediations: map[string]float64{
				"scale_db": 1, "add_read_replica": 0.7, "restart_service": 0.4,
			},
		},
		{
			ID: "slow_queries", Name: "Slow Queries", Category: CategoryPerformance, Severity: SeverityWarn,
			Description: "A few queries are doing full table scans.",
			Targets:     []graph.Archetype{graph.DBPrimary, graph.DBReplica},
			When:        Preconditions{MinTechDebt: 10}, RatePerMinute: 0.25,
			Effects:     IncidentEffects{LatencyMult: 2.5, MetricDeltas: map[string]float64{"slow_queries": 25}},
			Escalation:  &Escalation{After: 600, To: "connection_exhaustion"},
			AutoResolve: 900,
			Remediations: map[string]float64{
				"optimize_queries": 1, "add_read_replica": 0.6, "scale_db": 0.5,
			},
		},
		{
			ID: "replication_lag", Name: "Replication Lag", Category: CategoryData, Severity: SeverityInfo,
			Description: "Replicas are serving stale reads.",
			Targets:     []graph.Archetype{graph.DBReplica},
			RatePerMinute: 0.2,
			Effects:       IncidentEffects{ErrorMult: 1.5, MetricDeltas: map[string]float64{"replication_lag_ms": 2000}},
			AutoResolve:   400,
			Remediations: map[string]float64{
				"failover_db": 0.5, "scale_db": 0.5,
			},
		},
		{
			ID: "cache_stampede", Name: "Cache Stampede", Category: CategoryPerformance, Severity: SeverityWarn,
			Description: "A hot key expired and every request went to the database.",
			Targets:     []graph.Archetype{graph.Cache},
			When:        Preconditions{MinUtil: 0.7}, RatePerMinute: 0.3,
			Effects:     IncidentEffects{LatencyMult: 1.5, MetricDeltas: map[string]float64{"hit_rate": -0.5}},
			AutoResolve: 300,
			Remediations: map[string]float64{
				"scale_cache": 1, "flush_cache": 0.5, "restart_service": 0.3,
			},
		},
		{
			ID: "ddos_attack", Name: "DDoS Attack", Category: CategorySecurity, Severity: SeverityCrit,
			Description: "A botnet is flooding the front door.",
			Targets:     []graph.Archetype{graph.LoadBalancer, graph.DNS},
			When:        Preconditions{DisabledFeature: graph.FeatureRateLimit}, RatePerMinute: 0.1,
			Effects:     IncidentEffects{UtilMult: 2.5, ErrorMult: 2},
			OutageAfter: 600, AutoResolve: 900,
			Remediations: map[string]float64{
				"enable_rate_limit": 1, "enable_waf": 0.8, "enable_cdn": 0.6,
			},
		},
		{
			ID: "dns_misconfiguration", Name: "DNS Misconfiguration", Category: CategoryAvailability, Severity: SeverityWarn,
			Description: "A record change sent part of the traffic nowhere.",
			Targets:     []graph.Archetype{graph.DNS},
			RatePerMinute: 0.05,
			Effects:       IncidentEffects{ErrorMult: 5},
			OutageAfter:   600, AutoResolve: 1200,
			Remediations: map[string]float64{
				"rollback_deploy": 1, "restart_service": 0.5,
			},
		},
		{
			ID: "certificate_expiry", Name: "Certificate Expiring", Category: CategorySecurity, Severity: SeverityWarn,
			Description: "The TLS certificate expires soon.",
			Targets:     []graph.Archetype{graph.LoadBalancer, graph.Gateway},
			When:        Preconditions{DisabledFeature: graph.FeatureTLS}, RatePerMinute: 0.05,
			Effects:     IncidentEffects{ErrorMult: 1.2},
			OutageAfter: 900,
			Remediations: map[string]float64{
				"renew_certificates": 1,
			},
		},
		{
			ID: "queue_backlog", Name: "Queue Backlog", Category: CategoryCapacity, Severity: SeverityWarn,
			Description: "Producers are outpacing consumers.",
			Targets:     []graph.Archetype{graph.Queue},
			When:        Preconditions{MinUtil: 0.8}, RatePerMinute: 0.3,
			Effects:     IncidentEffects{LatencyMult: 1.5, MetricDeltas: map[string]float64{"backlog": 5000}},
			AutoResolve: 600,
			Remediations: map[string]float64{
				"enable_workers": 0.6, "scale_up": 0.4,
			},
		},
		{
			ID: "worker_crash_loop", Name: "Worker Crash Loop", Category: CategoryAvailability, Severity: SeverityWarn,
			Description: "Workers die on a poison message and restart forever.",
			Targets:     []graph.Archetype{graph.Worker},
			When:        Preconditions{MinErrorRate: 0.02}, RatePerMinute: 0.2,
			Effects:     IncidentEffects{ErrorMult: 2, HealthDecay: 0.005, MetricDeltas: map[string]float64{"failed_jobs": 100}},
			AutoResolve: 600,
			Remediations: map[string]float64{
				"restart_service": 1, "rollback_deploy": 0.8,
			},
		},
		{
			ID: "disk_full", Name: "Disk Almost Full", Category: CategoryCapacity, Severity: SeverityWarn,
			Description: "Free space is running out.",
			Targets:     []graph.Archetype{graph.Storage, graph.DBPrimary},
			RatePerMinute: 0.05,
			Effects:       IncidentEffects{ErrorMult: 1.5, MetricDeltas: map[string]float64{"used_gb": 500}},
			OutageAfter:   900,
			Remediations: map[string]float64{
				"expand_storage": 1,
			},
		},
		{
			ID: "credential_stuffing", Name: "Credential Stuffing", Category: CategorySecurity, Severity: SeverityWarn,
			Description: "Someone is replaying leaked passwords against login.",
			Targets:     []graph.Archetype{graph.Auth},
			When:        Preconditions{DisabledFeature: graph.FeatureRateLimit}, RatePerMinute: 0.1,
			Effects:     IncidentEffects{UtilMult: 2, ErrorMult: 1.5},
			AutoResolve: 600,
			Remediations: map[string]float64{
				"enable_waf": 1, "patch_security": 0.8, "enable_rate_limit": 0.5,
			},
		},
		{
			ID: "index_corruption", Name: "Search Index Corruption", Category: CategoryData, Severity: SeverityInfo,
			Description: "Search results are missing documents.",
			Targets:     []graph.Archetype{graph.Search},
			RatePerMinute: 0.1,
			Effects:       IncidentEffects{ErrorMult: 2},
			AutoResolve:   900,
			Remediations: map[string]float64{
				"rollback_deploy": 0.7, "restart_service": 0.5,
			},
		},
		{
			ID: "security_breach", Name: "Security Breach", Category: CategorySecurity, Severity: SeverityCrit,
			Description: "An attacker has a foothold.",
			Targets:     []graph.Archetype{graph.Auth, graph.App},
			When:        Preconditions{MinTechDebt: 40}, RatePerMinute: 0.05,
			Effects:     IncidentEffects{ErrorMult: 2, HealthDecay: 0.004},
			OutageAfter: 600, AutoResolve: 1800,
			Remediations: map[string]float64{
				"patch_security": 1, "enable_waf": 0.5,
			},
		},
		{
			ID: "viral_traffic", Name: "Viral Traffic Spike", Category: CategoryOpportunity, Severity: SeverityInfo,
			Description: "You are on the front page. Keep up and keep the users.",
			Targets:     []graph.Archetype{graph.LoadBalancer},
			When:        Preconditions{MaxUtil: 0.6}, RatePerMinute: 0.05,
			Effects:     IncidentEffects{UtilMult: 1.5},
			AutoResolve: 600,
			Reward:      &Reward{Users: 500, Reputation: 5},
			Remediations: map[string]float64{
				"scale_up": 1, "add_app_instance": 1, "enable_cdn": 1,
			},
		},
		{
			ID: "partnership_offer", Name: "Partnership Offer", Category: CategoryOpportunity, Severity: SeverityInfo,
			Description: "A partner wants an integration if the API can take their load.",
			Targets:     []graph.Archetype{graph.Gateway, graph.Auth},
			RatePerMinute: 0.03,
			Effects:       IncidentEffects{UtilMult: 1.3},
			AutoResolve:   900,
			Reward:        &Reward{Users: 300, Cash: 1500},
			Remediations: map[string]float64{
				"enable_rate_limit": 1, "enable_gateway": 1, "scale_up": 0.5,
			},
		},
	}
	out := make(map[string]IncidentDef, len(defs))
	for _, d := range defs {
		out[d.ID] = d
	}
	return out
}
