// Package teststack audits JVM unit tests for the sanctioned test stack:
// banned imports and annotations, coroutine scheduler misuse, and the
// main-dispatcher rule requirement.
package teststack
