// Package lint audits Android Lint XML reports (format 6), unfolding each
// issue into one finding per location and gating the error share against a
// tolerance over the scanned sources.
package lint
