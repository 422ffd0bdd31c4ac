// Package docconfig loads pipeline configurations written as YAML, TOML or
// JSON with comments. All three formats share one document schema, so a
// pipeline written in any of them translates to the same config.Model as
// its HCL equivalent.
package docconfig
