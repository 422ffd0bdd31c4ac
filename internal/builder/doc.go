/*
Package builder turns a resolved asset graph into files in the output
directory and the manifest that describes them.

A build runs in four phases:

 1. Rule check: every asset must match at least one rule, be terminal
    (binary) or come from a copy spec. The first offending asset, in path
    order, fails the build with *UnmatchedAssetError before any stage runs.

 2. Transform: the executor hands assets to a worker pool leaves first.
    Each asset runs the stages of its first candidate rule; if a stage
    fails, the next candidate rule is tried. When no candidate succeeds the
    asset fails with *TransformError and everything depending on it is
    skipped. With a cache, assets whose inputs are unchanged reuse the
    artifact of an earlier build.

 3. Join: the artifacts are collected into the manifest. Two assets that
    produce the same output path fail with *OutputConflictError.

 4. Write: only when every asset succeeded are the artifacts written, in
    parallel, followed by the manifest file.

A build that runs out of time returns *TimeoutError with the completed and
pending assets and writes nothing.
*/
package builder
