package document

import "fmt"

// DocumentParseError indicates a strategy document that could not be
// parsed at all. Partial page failures are reported as KpiSet warnings
// instead, so this error always fails the document stage.
type DocumentParseError struct {
	Reason string
	Err    error
}

func (e *DocumentParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document parse failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("document parse failed: %s", e.Reason)
}

func (e *DocumentParseError) Unwrap() error {
	return e.Err
}
