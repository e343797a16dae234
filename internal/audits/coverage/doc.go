// Package coverage audits branch coverage from a code-coverage XML
// report, aggregating class-level BRANCH counters and gating the total
// percentage against a minimum threshold.
package coverage
