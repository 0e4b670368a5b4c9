// Package launcher is the uniform start/monitor/cancel abstraction over
// one execution backend. Launcher is an interface with two concrete
// backends: LocalLauncher (OS processes, local.go) and BatchLauncher
// (a SLURM-like cluster workload manager, batch.go).
package launcher
