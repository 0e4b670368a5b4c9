// Package service wraps a long-running iteration function with a
// configurable lifetime and an independent health-check worker, the Go
// analogue of original_source's cstar/scripts/service.py Service class.
package service
