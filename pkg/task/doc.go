// Package task implements the per-step state record driving a single
// execution: identity, command, process handle, return code, and status,
// with start/query/cancel operations. Task.Source is a tagged union
// (Step xor ProcessHandle) rather than an interface{}, matching the
// "tagged variants over dynamic dispatch" design note.
package task
