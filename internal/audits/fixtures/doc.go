// Package fixtures audits JSON test fixtures: at least one fixture must
// exist per module, and each fixture's size must fall inside the
// configured window.
package fixtures
