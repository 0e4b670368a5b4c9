// Package orchestrator drives a workplan's steps to completion against a
// Launcher, reconciling each step's Task against its Planner-derived
// readiness until every step reaches a terminal status.
package orchestrator
