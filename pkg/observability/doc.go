/*
Package observability turns executor lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks values, so they compose with any other
hooks through LifecycleHooks.Merge.
*/
package observability
