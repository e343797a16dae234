// Package runner assembles the audit catalog for each module from
// configuration and executes it concurrently, funneling every result into
// the report aggregator. It also wires the check Cobra command.
package runner
