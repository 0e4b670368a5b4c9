// Package splitter expands a single long-horizon Step into a chain of
// calendar-sliced sub-steps, one per month boundary between a blueprint's
// start_date and end_date. Grounded on the Python original's
// cstar/orchestration/transforms.py.
package splitter
