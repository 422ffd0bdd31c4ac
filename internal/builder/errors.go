package builder

import (
	"fmt"
	"strings"
)

// UnmatchedAssetError reports a non-terminal asset that no rule matches.
type UnmatchedAssetError struct {
	Path string
}

func (e *UnmatchedAssetError) Error() string {
	return fmt.Sprintf("no rule matches asset %q and it is not a terminal asset", e.Path)
}

// TransformError reports a stage failure. When several candidate rules
// failed, it describes the first one.
type TransformError struct {
	Asset string
	Rule  string
	Stage string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("asset %q: rule %q: stage %q failed: %v", e.Asset, e.Rule, e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// OutputConflictError reports an output path produced by more than one
// asset, or one that collides with the manifest file.
type OutputConflictError struct {
	Path   string
	Assets []string
}

func (e *OutputConflictError) Error() string {
	return fmt.Sprintf("output path %q is produced by %s", e.Path, strings.Join(e.Assets, " and "))
}

// TimeoutError reports a build that was aborted by its deadline. Completed
// lists the assets that finished, Pending the ones that did not.
type TimeoutError struct {
	Completed []string
	Pending   []string
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("build timed out with %d of %d assets completed (pending: %s)",
		len(e.Completed), len(e.Completed)+len(e.Pending), strings.Join(e.Pending, ", "))
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
