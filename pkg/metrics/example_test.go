package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates updating pool metrics on a private registry.
func Example_basicUsage() {
	registry := NewRegistry(prometheus.NewRegistry())

	registry.PoolSize.WithLabelValues("ingest").Set(4)
	registry.JobsSubmitted.WithLabelValues("ingest").Add(10)
	registry.JobsExecuted.WithLabelValues("ingest").Add(9)
	registry.JobsPanicked.WithLabelValues("ingest").Inc()

	fmt.Println(testutil.ToFloat64(registry.PoolSize.WithLabelValues("ingest")))
	fmt.Println(testutil.ToFloat64(registry.JobsExecuted.WithLabelValues("ingest")))

	// Output:
	// 4
	// 9
}

// Example_customNamespace demonstrates overriding the metric name prefix.
func Example_customNamespace() {
	reg := prometheus.NewRegistry()
	registry := NewRegistryWithConfig(Config{
		Enabled:   true,
		Registry:  reg,
		Namespace: "myapp",
		Labels:    prometheus.Labels{"region": "eu"},
	})

	registry.PoolQueued.WithLabelValues("mail").Set(3)

	families, _ := reg.Gather()
	for _, f := range families {
		fmt.Println(f.GetName(), f.GetMetric()[0].GetLabel()[1].GetValue())
	}

	// Output:
	// myapp_pool_queued_jobs eu
}
