// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload, runtime metrics and debug introspection layer
// of the head unit.
//
// Provides concurrent-safe state handling primitives including:
//   - YAML configuration with defaults and atomic snapshot reads
//   - File watching hot-reload with change listeners
//   - Prometheus session metrics fed by orchestrator events
//   - State export, debug hooks, and probe registration
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
