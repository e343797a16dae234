// Package upload ships the aggregated report to a paste service over
// HTTP. It adapts the aggregate.Uploader port.
package upload
