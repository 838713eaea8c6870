package domain

import (
	"math/rand"
	"testing"
)

func diamondGraph() *Graph {
	g := NewGraph("steam")
	for _, id := range []string{"S", "V1", "V2", "T"} {
		g.AddNode(&Node{ID: id})
	}
	g.AddEdge(&Edge{ID: "e1", From: "S", To: "V1", State: StateOpen})
	g.AddEdge(&Edge{ID: "e2", From: "V1", To: "T", State: StateOpen})
	g.AddEdge(&Edge{ID: "e3", From: "S", To: "V2", State: StateOpen})
	g.AddEdge(&Edge{ID: "e4", From: "V2", To: "T", State: StateOpen})
	return g
}

func TestEnumerateSimplePaths(t *testing.T) {
	g := diamondGraph()
	paths := EnumerateSimplePaths(g, []string{"S"}, []string{"T"}, OpenEdge)
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2", len(paths))
	}
}

func TestKShortestSimplePathsDeterministicForSameSeed(t *testing.T) {
	g := diamondGraph()
	a := KShortestSimplePaths(g, []string{"S"}, []string{"T"}, OpenEdge, 5, rand.New(rand.NewSource(42)))
	b := KShortestSimplePaths(g, []string{"S"}, []string{"T"}, OpenEdge, 5, rand.New(rand.NewSource(42)))

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].String() != b[i].String() {
			t.Fatalf("path %d differs: %s vs %s", i, a[i].String(), b[i].String())
		}
	}
}

func TestKShortestSimplePathsCapsAtK(t *testing.T) {
	g := diamondGraph()
	paths := KShortestSimplePaths(g, []string{"S"}, []string{"T"}, OpenEdge, 1, rand.New(rand.NewSource(1)))
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1", len(paths))
	}
}
