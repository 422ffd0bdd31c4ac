package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vk/assetgraph/internal/app"
	"github.com/vk/assetgraph/internal/builder"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/dag"
	"github.com/vk/assetgraph/internal/resolver"
)

// Exit codes.
const (
	ExitOK             = 0
	ExitUnexpected     = 1
	ExitUsage          = 2
	ExitCycle          = 3
	ExitUnmatched      = 4
	ExitTransform      = 5
	ExitMissingAsset   = 6
	ExitTimeout        = 7
	ExitOutputConflict = 8
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Classify maps err to an *ExitError carrying the exit code for its kind.
// It returns nil for a nil error.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return &ExitError{Code: exitCode(err), Message: err.Error(), Err: err}
}

func exitCode(err error) int {
	var (
		timeoutErr   *builder.TimeoutError
		cycleErr     *dag.CyclicDependencyError
		unmatchedErr *builder.UnmatchedAssetError
		transformErr *builder.TransformError
		missingErr   *resolver.MissingAssetError
		conflictErr  *builder.OutputConflictError
		invalidErr   *config.InvalidConfigError
	)
	switch {
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.As(err, &cycleErr):
		return ExitCycle
	case errors.As(err, &unmatchedErr):
		return ExitUnmatched
	case errors.As(err, &transformErr):
		return ExitTransform
	case errors.As(err, &missingErr):
		return ExitMissingAsset
	case errors.As(err, &conflictErr):
		return ExitOutputConflict
	case errors.As(err, &invalidErr),
		errors.Is(err, app.ErrInvalidSettings),
		errors.Is(err, app.ErrLoadConfig):
		return ExitUsage
	}
	return ExitUnexpected
}

// Execute runs the command line args. Help output and build summaries go to
// outW, logs to errW. The returned error, if any, is an *ExitError.
func Execute(ctx context.Context, outW, errW io.Writer, args []string) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Anything not returned by a command body is a usage problem found by
	// cobra itself.
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("%v\nRun 'assetgraph --help' for usage.", err), Err: err}
}
