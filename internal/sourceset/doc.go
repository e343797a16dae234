// Package sourceset enumerates Kotlin and Java sources inside a module
// directory and extracts file headers (package, imports, top-level
// declarations) without full parsing.
package sourceset
