// Package testsuite audits JUnit-style XML test results, classifying each
// test case and gating the failure share against a tolerance. A missing
// results directory passes with a warning; a results directory without
// XML reports is a processing error.
package testsuite
