// Package sqlfts scans module sources for SQL usage violations: raw
// queries, complex SQL keywords inside @Query bodies, rail ordering
// constraints, and the FTS engine lock.
package sqlfts
