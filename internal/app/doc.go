// Package app wires the application together: configuration validation,
// logger construction, catalog and contract setup, protocol loading, the
// analysis run, and report rendering.
package app
