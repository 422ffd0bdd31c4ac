// Package app wires the pipeline together: it loads the pipeline config,
// registers the stage modules, and runs single builds or the watch loop,
// independently of the command-line front end.
package app
