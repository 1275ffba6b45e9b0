// Package postprocess reshapes raw aggregation output into its final
// response shape. Stages are optional and independently toggled, applied in
// a fixed order: parent-summary enrichment, workflow-stage alignment,
// sprint-metrics derivation (driven from the sprint use case), search-store
// pagination correction. No stage re-orders records arriving from an
// earlier stage except stage alignment, whose contract imposes the
// configured stage order.
package postprocess
