// Package workplan loads a Workplan document from YAML and validates its
// step graph before it is handed to a Planner.
package workplan
