// Package console renders the end-of-run audit summary.
package console
