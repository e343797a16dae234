// Package harness enforces test-harness reuse and isolation: layered test
// sources must import their area's designated helpers, and helper types
// must not be cloned outside the harness package.
package harness
