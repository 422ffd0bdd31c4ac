// Package registry provides the central "glue" for the stage system.
//
// The Registry maps the stage names used in pipeline configurations (e.g.
// "esbuild_js") to the compiled Go functions that implement them, together
// with the options each stage accepts and their types.
//
// During application startup, modules register their stages and the
// configured rules are validated against the registry, so that a misspelled
// stage or option is reported before any asset is read.
package registry
