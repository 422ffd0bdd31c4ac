// Package cli is the assetgraph command line: the cobra command tree, flag
// and ASSETGRAPH_* environment binding through viper, and the mapping from
// build failures to process exit codes.
package cli
