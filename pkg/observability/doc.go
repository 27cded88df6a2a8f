/*
Package observability turns tree mutations into logs and Prometheus metrics.

Both are plain tree.Observer functions, so they can be attached to any tree and combined
with Chain:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	t.SetObserver(observability.Chain(m.Observer(), observability.LogObserver(logger)))
*/
package observability
