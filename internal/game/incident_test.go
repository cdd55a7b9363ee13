package game

import (
	"testing"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/graph"
)

func TestNewIncidentFromDefinition(t *testing.T) {
	def, _ := catalog.BuiltIn().Incident("cpu_saturation")
	inc := NewIncident(def, "i1", "app", 50)
	if inc.AutoResolveAt != 350 || !inc.Escalation.Armed || inc.EscalatesTo != "app_meltdown" || inc.Outage.Armed {
		t.Fatalf("unexpected timers %+v", inc)
	}
	if inc.Generated() {
		t.Fatalf("catalog incident reported as generated")
	}
}

func TestRelatedIncidentsShareFix(t *testing.T) {
	cat := catalog.BuiltIn()
	st := NewGame(cat, DefaultOptions())
	cpu, _ := cat.Incident("cpu_saturation")
	leak, _ := cat.Incident("memory_leak")
	deploy, _ := cat.Incident("bad_deploy")

	st.AddIncident(NewIncident(cpu, "a", "app", 0), 60)
	st.AddIncident(NewIncident(leak, "b", "app", 30), 60)
	st.AddIncident(NewIncident(deploy, "c", "app", 40), 60)
	st.AddIncident(NewIncident(cpu, "d", "app", 200), 60)

	a, _ := st.Incident("a")
	b, _ := st.Incident("b")
	c, _ := st.Incident("c")
	d, _ := st.Incident("d")
	if len(a.Related) != 1 || a.Related[0] != "b" || len(b.Related) != 1 || b.Related[0] != "a" {
		t.Fatalf("expected a and b linked, got %v %v", a.Related, b.Related)
	}
	if len(c.Related) != 0 || len(d.Related) != 0 {
		t.Fatalf("incompatible or late incidents must not link: %v %v", c.Related, d.Related)
	}

	st.Mitigate("a", 0.4)
	if a.MitigationLevel != 0.4 || b.MitigationLevel != 0.4 {
		t.Fatalf("related incident should get the same amount: %v %v", a.MitigationLevel, b.MitigationLevel)
	}
	st.Mitigate("a", 0.8)
	if a.MitigationLevel != 1 || b.MitigationLevel != 1 {
		t.Fatalf("full fix should close the cluster: %v %v", a.MitigationLevel, b.MitigationLevel)
	}
	st.Mitigate("a", -1)
	if a.MitigationLevel != 1 {
		t.Fatalf("mitigation must not decrease")
	}
	if st.Mitigate("missing", 1) {
		t.Fatalf("unknown incident should report false")
	}
}

func TestAddIncidentAppliesMetricDeltas(t *testing.T) {
	cat := catalog.BuiltIn()
	st := NewGame(cat, DefaultOptions())
	def, _ := cat.Incident("connection_exhaustion")
	st.AddIncident(NewIncident(def, "x", "db_primary", 0), 60)
	n, _ := st.Node("db_primary")
	if n.Specifics.(*graph.DatabaseMetrics).Connections != 200 {
		t.Fatalf("expected connection spike, got %+v", n.Specifics)
	}
	if st.RecentTargets[len(st.RecentTargets)-1] != "db_primary" {
		t.Fatalf("target not tracked")
	}
	if _, dup := st.DuplicateOf(def.Name, "db_primary", 59, 60); !dup {
		t.Fatalf("expected duplicate inside window")
	}
	if _, dup := st.DuplicateOf(def.Name, "db_primary", 61, 60); dup {
		t.Fatalf("no duplicate outside window")
	}
}
