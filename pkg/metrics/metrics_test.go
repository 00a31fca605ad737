package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistryRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.PoolSize.WithLabelValues("p").Set(2)
	r.JobDuration.WithLabelValues("p").Observe(0.01)
	r.ScheduleTicks.WithLabelValues("s", "id").Inc()
	r.FeedRejected.WithLabelValues("f", "unknown_handler").Inc()

	expected := `
# HELP workerpool_pool_size Configured number of workers
# TYPE workerpool_pool_size gauge
workerpool_pool_size{pool_name="p"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "workerpool_pool_size"); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(r.FeedRejected.WithLabelValues("f", "unknown_handler")); got != 1 {
		t.Errorf("FeedRejected = %v, want 1", got)
	}

	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("gathered %d series, want 4", n)
	}
}

func TestSeparateRegistriesDoNotConflict(t *testing.T) {
	a := NewRegistry(prometheus.NewRegistry())
	b := NewRegistry(prometheus.NewRegistry())

	a.JobsSubmitted.WithLabelValues("x").Inc()
	if got := testutil.ToFloat64(b.JobsSubmitted.WithLabelValues("x")); got != 0 {
		t.Errorf("registry b saw %v submissions, want 0", got)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRegistry(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic registering the same collectors twice")
		}
	}()
	NewRegistry(reg)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Enabled || cfg.Namespace != DefaultNamespace || cfg.Registry == nil {
		t.Errorf("unexpected default config: %+v", cfg)
	}
}

func TestDisabledConfigRegistersNothing(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultConfig()
	cfg.Enabled = false
	cfg.Registry = reg

	if r := NewRegistryWithConfig(cfg); r != nil {
		t.Fatalf("expected nil registry, got %+v", r)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("expected no metric families, got %d", len(families))
	}

	// Registering the full set afterwards must not collide with anything.
	NewRegistryWithConfig(Config{Enabled: true, Registry: reg})
}
