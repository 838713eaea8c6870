package planner

import (
	"testing"

	"loto/pkg/domain"
)

func TestEdgeCapacityNonCuttableIsInfinite(t *testing.T) {
	e := &domain.Edge{IsIsolationPoint: false}
	cap := EdgeCapacity(e, nil, nil, DefaultOptions())
	if cap != domain.Infinity {
		t.Fatalf("expected infinity, got %v", cap)
	}
}

func TestEdgeCapacityZeroBaseFallsBackToOne(t *testing.T) {
	e := &domain.Edge{IsIsolationPoint: true}
	opt := DefaultOptions()
	cap := EdgeCapacity(e, nil, nil, opt)
	// base=0 -> base=1, mult=1 (CBT=0), zeta*reset*(...) = 0
	if cap != 1.0 {
		t.Fatalf("expected capacity 1.0 for a zero-weight edge, got %v", cap)
	}
}

func TestEdgeCapacityUsesNodeFallbackForOpCost(t *testing.T) {
	e := &domain.Edge{IsIsolationPoint: true}
	u := &domain.Node{OpCostMin: 20}
	opt := DefaultOptions()
	cap := EdgeCapacity(e, u, nil, opt)
	want := opt.Alpha * 20
	if cap != want {
		t.Fatalf("expected capacity %v, got %v", want, cap)
	}
}

func TestEdgeCapacityEdgeValueOverridesNodeFallback(t *testing.T) {
	e := &domain.Edge{IsIsolationPoint: true, OpCostMin: 5}
	u := &domain.Node{OpCostMin: 20}
	opt := DefaultOptions()
	cap := EdgeCapacity(e, u, nil, opt)
	want := opt.Alpha * 5
	if cap != want {
		t.Fatalf("expected edge-level op_cost_min to win, got %v want %v", cap, want)
	}
}

func TestEdgeCapacityCallBackTimeIncreasesCapacity(t *testing.T) {
	e := &domain.Edge{IsIsolationPoint: true, OpCostMin: 10}
	opt := DefaultOptions()
	base := EdgeCapacity(e, nil, nil, opt)

	opt.CBT = 60
	withCBT := EdgeCapacity(e, nil, nil, opt)
	if withCBT <= base {
		t.Fatalf("expected capacity to grow with call-back time: base=%v withCBT=%v", base, withCBT)
	}
}

func TestEdgeCapacityCallBackTimeIsCapped(t *testing.T) {
	e := &domain.Edge{IsIsolationPoint: true, OpCostMin: 10, ResetTimeMin: 4}
	opt := DefaultOptions()
	opt.CBT = opt.CBMax
	atCap := EdgeCapacity(e, nil, nil, opt)

	opt.CBT = opt.CBMax * 10
	beyondCap := EdgeCapacity(e, nil, nil, opt)
	multPart := opt.Alpha * 10 * (1 + opt.CBMax/opt.CBScale)
	resetAtCap := opt.Zeta * 4 * (1 + opt.CBMax/opt.RSTScale)
	if atCap != multPart+resetAtCap {
		t.Fatalf("expected mult term capped at CBMax, got %v want %v", atCap, multPart+resetAtCap)
	}
	if beyondCap == atCap {
		t.Fatalf("capacity should still rise beyond CBMax via the uncapped reset-time term")
	}
}
