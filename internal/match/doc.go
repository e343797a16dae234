// Package match compiles whitelist patterns into anchored regular
// expressions over normalized forward-slash paths. Patterns use glob
// wildcards (*, **, ?) and an FQCN shorthand where "..*" selects any
// subpackage and ".*" a single segment.
package match
