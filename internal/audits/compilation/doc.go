// Package compilation captures compiler stderr output and parses it into
// compilation-error findings. The capture buffer accepts concurrent
// appends between RegisterCapture and UnregisterCapture; the parser is a
// small state machine recognizing Kotlin, javac, and annotation-processor
// error formats.
package compilation
