// Package memory provides in-process implementations of the arbor ports, used by tests,
// the default editor configuration and the CLI's "memory" store.
package memory
