package resolver

import "fmt"

// MissingAssetError is returned when a reference, entry or copy source
// names a file that does not exist under the source root.
type MissingAssetError struct {
	// Referrer is the asset containing the reference. It is empty for
	// entries and "copy" for copy sources.
	Referrer  string
	Reference string
	Err       error
}

func (e *MissingAssetError) Error() string {
	var msg string
	if e.Referrer == "" {
		msg = fmt.Sprintf("entry %q not found", e.Reference)
	} else {
		msg = fmt.Sprintf("%s: reference %q could not be resolved", e.Referrer, e.Reference)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MissingAssetError) Unwrap() error {
	return e.Err
}
