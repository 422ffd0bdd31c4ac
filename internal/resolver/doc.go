// Package resolver discovers the dependency graph of a build. Starting from
// the entry assets it reads every file, scans it for references, resolves
// each reference to another file under the source root and recurses.
//
// The resolver only reads from its filesystem. It runs on a single
// goroutine; parallelism starts once the graph is known.
package resolver
