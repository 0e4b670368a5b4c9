// Package log provides structured logging for cstarorch using zerolog.
//
// A single global Logger is initialized once via Init and read by every
// other package. Component and request-scoped context (the step name,
// the task id, a full status-transition tuple) is attached with child
// loggers (WithComponent, WithStep, WithTaskID, WithTransition) rather
// than repeated per call site.
package log
