// Package config defines the format-agnostic configuration model for a
// pipeline, along with the Loader interface that concrete formats implement.
//
// The `config.Model` is the single source of truth for the `rules`,
// `resolver` and `builder` packages. Concrete loaders, such as the HCL one,
// live in separate packages and only have to produce a Model.
package config
