// Package xmlreport loads tool-emitted XML reports into a small element
// tree. Parsing is hardened: DOCTYPE declarations are rejected and
// external entities are never resolved.
package xmlreport
