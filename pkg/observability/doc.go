/*
Package observability turns triage lifecycle hooks into Prometheus metrics and
structured audit logs.

Both are plain domain.LifecycleHooks values, so they compose with Merge:

	hooks := observability.LogHooks(logger).Merge(metrics.Hooks())
*/
package observability
