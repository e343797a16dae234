// Package structure audits module layout: forbidden sharedTest sources,
// misplaced test files, the mandatory harness dependency declaration, and
// the instrumented-test import scope.
package structure
