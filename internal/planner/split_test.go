package planner

import (
	"testing"

	"loto/pkg/domain"
)

func buildValveGraph() *domain.Graph {
	g := domain.NewGraph("steam")
	g.AddNode(&domain.Node{ID: "S", IsSource: true})
	g.AddNode(&domain.Node{ID: "V", IsIsolationPoint: true, OpCostMin: 10, ResetTimeMin: 5})
	g.AddNode(&domain.Node{ID: "T", Tag: domain.AssetTag})
	g.AddEdge(&domain.Edge{ID: "e1", From: "S", To: "V"})
	g.AddEdge(&domain.Edge{ID: "e2", From: "V", To: "T"})
	return g
}

func TestSplitNodesCreatesInOutPair(t *testing.T) {
	g := buildValveGraph()
	out := SplitNodes(g)

	if _, ok := out.GetNode("V_in"); !ok {
		t.Fatal("expected V_in node")
	}
	if _, ok := out.GetNode("V_out"); !ok {
		t.Fatal("expected V_out node")
	}

	splitEdges := out.EdgesBetween("V_in", "V_out")
	if len(splitEdges) != 1 {
		t.Fatalf("expected exactly one split edge, got %d", len(splitEdges))
	}
	if !splitEdges[0].IsIsolationPoint {
		t.Error("split edge must carry is_isolation_point=true")
	}
}

func TestSplitNodesRewiresIncidentEdges(t *testing.T) {
	g := buildValveGraph()
	out := SplitNodes(g)

	inEdges := out.EdgesBetween("S", "V_in")
	if len(inEdges) != 1 {
		t.Fatalf("expected S->V_in edge, got %d candidates", len(inEdges))
	}
	if inEdges[0].IsIsolationPoint {
		t.Error("rewired inbound edge must not be the cuttable representative")
	}

	outEdges := out.EdgesBetween("V_out", "T")
	if len(outEdges) != 1 {
		t.Fatalf("expected V_out->T edge, got %d candidates", len(outEdges))
	}
	if outEdges[0].IsIsolationPoint {
		t.Error("rewired outbound edge must not be the cuttable representative")
	}
}

func TestSplitNodesCopiesNonIsolationNodesVerbatim(t *testing.T) {
	g := buildValveGraph()
	out := SplitNodes(g)

	s, ok := out.GetNode("S")
	if !ok || !s.IsSource {
		t.Fatal("expected source node S to survive unchanged")
	}
	asset, ok := out.GetNode("T")
	if !ok || !asset.IsAsset() {
		t.Fatal("expected asset node T to survive unchanged")
	}
}

func TestSplitNodesPreservesWeightingFallbackFields(t *testing.T) {
	g := buildValveGraph()
	out := SplitNodes(g)

	nodeIn, _ := out.GetNode("V_in")
	nodeOut, _ := out.GetNode("V_out")
	if nodeIn.OpCostMin != 10 || nodeOut.OpCostMin != 10 {
		t.Error("op_cost_min must be carried to both halves for the node-fallback weighting rule")
	}
	if nodeIn.ResetTimeMin != 5 || nodeOut.ResetTimeMin != 5 {
		t.Error("reset_time_min must be carried to both halves")
	}
}
