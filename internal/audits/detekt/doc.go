// Package detekt audits Checkstyle-style static-analysis reports. Hard
// rule violations fail the build outright; the remaining findings pass
// while their share of the scanned sources stays within tolerance.
package detekt
