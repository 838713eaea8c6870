package metrics

import (
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInitMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "service")

	if m == nil {
		t.Fatal("InitMetrics returned nil")
	}

	if m.OperationsTotal == nil {
		t.Error("OperationsTotal should not be nil")
	}
	if m.OperationDuration == nil {
		t.Error("OperationDuration should not be nil")
	}
	if m.SolveDuration == nil {
		t.Error("SolveDuration should not be nil")
	}
}

func TestGet(t *testing.T) {
	defaultMetrics = nil

	m := Get()
	if m == nil {
		t.Error("Get() should not return nil")
	}

	m2 := Get()
	if m2 != m {
		t.Error("Get() should return same instance")
	}
}

func TestRecordOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "ops")

	m.RecordOperation("plan", true, 100*time.Millisecond)
	m.RecordOperation("plan", false, 50*time.Millisecond)
}

func TestRecordSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "solve")

	m.RecordSolve("steam", 500*time.Millisecond, 3)
	m.RecordSolve("electrical", 1*time.Second, 1)
}

func TestRecordGraphSize(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "graph")

	m.RecordGraphSize("plan", 100, 500)
	m.RecordGraphSize("evaluate", 50, 200)
}

func TestRecordStimuliPaths(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "stimuli")

	m.RecordStimuliPaths("REMOTE_OPEN", 2)
	m.RecordStimuliPaths("AIR_RETURN", 0)
}

func TestRecordApproval(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "approval")

	m.RecordApproval("approved")
	m.RecordApproval("pending")
}

func TestSetServiceInfo(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "info")

	m.SetServiceInfo("1.0.0", "production")
}

func TestRuntimeCollector(t *testing.T) {
	collector := NewRuntimeCollector("test", "runtime")

	descCh := make(chan *prometheus.Desc, 10)
	collector.Describe(descCh)
	close(descCh)

	count := 0
	for range descCh {
		count++
	}
	if count < 5 {
		t.Errorf("expected at least 5 descriptors, got %d", count)
	}

	metricCh := make(chan prometheus.Metric, 10)
	collector.Collect(metricCh)
	close(metricCh)

	count = 0
	for range metricCh {
		count++
	}
	if count < 5 {
		t.Errorf("expected at least 5 metrics, got %d", count)
	}
}

func TestRequestTracker(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_in_flight",
	})

	tracker := NewRequestTracker(gauge)

	tracker.Start("/method1")
	tracker.Start("/method1")
	tracker.Start("/method2")

	if tracker.active["/method1"] != 2 {
		t.Errorf("active[method1] = %d, want 2", tracker.active["/method1"])
	}

	tracker.End("/method1")
	if tracker.active["/method1"] != 1 {
		t.Errorf("active[method1] = %d, want 1", tracker.active["/method1"])
	}

	tracker.End("/method1")
	tracker.End("/method1")
	if tracker.active["/method1"] < 0 {
		t.Error("active count should not go negative")
	}
}

func TestTimer(t *testing.T) {
	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "test_duration",
			Buckets: []float64{.01, .1, 1},
		},
		[]string{"method"},
	)

	timer := NewTimer(histogram, "test_method")

	time.Sleep(10 * time.Millisecond)

	duration := timer.ObserveDuration()
	if duration < 10*time.Millisecond {
		t.Errorf("duration = %v, expected >= 10ms", duration)
	}
}

func TestHandler(t *testing.T) {
	handler := Handler()
	if handler == nil {
		t.Error("Handler() should not return nil")
	}
}

func TestRuntimeCollectorGCPause(t *testing.T) {
	runtime.GC()

	collector := NewRuntimeCollector("test", "gc")
	metricCh := make(chan prometheus.Metric, 10)
	collector.Collect(metricCh)
	close(metricCh)

	found := false
	for range metricCh {
		found = true
	}
	if !found {
		t.Error("should have collected at least one metric")
	}
}
