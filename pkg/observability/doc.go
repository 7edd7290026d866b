/*
Package observability turns board activity into Prometheus metrics and
structured log lines.

Both are delivered as session.Hooks so they can be stacked on a
session.Manager next to other observers such as the SSE stream.
*/
package observability
