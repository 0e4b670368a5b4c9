// Package planner builds a dependency DAG from a Workplan and exposes
// traversal order to the Orchestrator: which step is next, and retiring a
// step once it reaches a terminal status.
package planner
