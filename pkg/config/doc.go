// Package config holds the read-only, process-wide configuration the core
// components are handed at startup, including the command-template
// registry (which executable realizes an application tag). The
// step-splitter registry lives in pkg/splitter. Both are constructed once
// and passed down explicitly — never a mutable package-level global.
package config
