package domain

import "testing"

func buildTestGraph() *Graph {
	g := NewGraph("steam")
	g.AddNode(&Node{ID: "S", IsSource: true})
	g.AddNode(&Node{ID: "V", IsIsolationPoint: true, Kind: KindValve})
	g.AddNode(&Node{ID: "T", Tag: AssetTag})
	g.AddEdge(&Edge{ID: "e1", From: "S", To: "V", IsIsolationPoint: true, Medium: MediumSteam})
	g.AddEdge(&Edge{ID: "e2", From: "V", To: "T", Medium: MediumSteam})
	return g
}

func TestGraphAddAndGet(t *testing.T) {
	g := buildTestGraph()
	if g.NodeCount() != 3 {
		t.Fatalf("NodeCount = %d, want 3", g.NodeCount())
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("EdgeCount = %d, want 2", g.EdgeCount())
	}
	n, ok := g.GetNode("V")
	if !ok || n.Kind != KindValve {
		t.Fatalf("GetNode(V) = %+v, %v", n, ok)
	}
}

func TestGraphParallelEdges(t *testing.T) {
	g := NewGraph("water")
	g.AddNode(&Node{ID: "A"})
	g.AddNode(&Node{ID: "B"})
	g.AddEdge(&Edge{ID: "e1", From: "A", To: "B", RiskWeight: 1})
	g.AddEdge(&Edge{ID: "e2", From: "A", To: "B", RiskWeight: 2})

	edges := g.EdgesBetween("A", "B")
	if len(edges) != 2 {
		t.Fatalf("EdgesBetween = %d edges, want 2", len(edges))
	}
}

func TestGraphRemoveEdgesBetween(t *testing.T) {
	g := buildTestGraph()
	removed := g.RemoveEdgesBetween("S", "V")
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if g.EdgeCount() != 1 {
		t.Fatalf("EdgeCount after removal = %d, want 1", g.EdgeCount())
	}
	// removing a non-existent edge is a silent no-op (spec §4.5 step 2).
	if removed := g.RemoveEdgesBetween("S", "V"); removed != 0 {
		t.Fatalf("second removal = %d, want 0", removed)
	}
}

func TestGraphCloneIsIndependent(t *testing.T) {
	g := buildTestGraph()
	clone := g.Clone()
	clone.RemoveEdgesBetween("S", "V")

	if g.EdgeCount() != 2 {
		t.Fatalf("original mutated: EdgeCount = %d, want 2", g.EdgeCount())
	}
	if clone.EdgeCount() != 1 {
		t.Fatalf("clone EdgeCount = %d, want 1", clone.EdgeCount())
	}

	node, _ := g.GetNode("V")
	cloneNode, _ := clone.GetNode("V")
	cloneNode.State = StateClosed
	if node.State == StateClosed {
		t.Fatal("mutating clone node leaked into original")
	}
}

func TestGraphValidateUnknownMedium(t *testing.T) {
	g := NewGraph("steam")
	g.AddNode(&Node{ID: "A"})
	g.AddNode(&Node{ID: "B"})
	g.AddEdge(&Edge{ID: "e1", From: "A", To: "B", Medium: "plasma"})

	errs := g.Validate()
	if len(errs) != 1 {
		t.Fatalf("Validate() = %v, want 1 error", errs)
	}
}

func TestGraphValidateSourceAsset(t *testing.T) {
	g := NewGraph("steam")
	g.AddNode(&Node{ID: "A", IsSource: true, Tag: AssetTag})

	errs := g.Validate()
	if len(errs) != 1 {
		t.Fatalf("Validate() = %v, want 1 error", errs)
	}
}
