// Package hclconfig loads a pipeline configuration written in HCL and
// translates it into the format-agnostic config.Model.
package hclconfig
