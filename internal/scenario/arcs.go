package scenario

// BuiltIn returns predefined story arcs.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"launch": {
			Name:        "Launch",
			Description: "Take a fresh product from launch day to a service people rely on.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "The product is live on a single app server and a primary database.",
					Goal:        "Reach 2,500 users.",
					Triggers:    []Trigger{{Event: EventUsers, Value: 2500, Next: "growth"}},
				},
				{
					Name:        "growth",
					Description: "Word is spreading and traffic climbs every afternoon.",
					Goal:        "Hold a 30 minute uptime streak.",
					Triggers:    []Trigger{{Event: EventUptimeStreak, Value: 1800, Next: "scale"}},
				},
				{
					Name:        "scale",
					Description: "The architecture starts to show its seams under peak load.",
					Goal:        "Resolve 10 incidents.",
					Triggers:    []Trigger{{Event: EventResolved, Value: 10, Next: "steady"}},
				},
				{
					Name:        "steady",
					Description: "The service is mature. Keep it that way.",
				},
			},
		},
		"turnaround": {
			Name:        "Turnaround",
			Description: "Inherit a struggling service and win back its users.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Reputation is low and the budget is thin.",
					Goal:        "Get reputation back to 60.",
					Triggers:    []Trigger{{Event: EventReputation, Value: 60, Next: "recovery"}},
				},
				{
					Name:        "recovery",
					Description: "Users are cautiously returning.",
					Goal:        "Bank 25,000 in cash.",
					Triggers:    []Trigger{{Event: EventCash, Value: 25000, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "The service is back on its feet.",
				},
			},
		},
	}
}
