// Package aggregate collects audit results across a build run, serializes
// them into the canonical pretty-JSON report, dispatches the optional
// upload, and converts failing verdicts into a single BuildFailure.
package aggregate
