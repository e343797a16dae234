// Package gate defines the audit contract and the value types exchanged
// between audits and the report aggregator: Finding, AuditResult, Status,
// and the typed processing error that halts a run without producing a
// verdict.
package gate
