package engine

import "fmt"

// DataValidationError reports an unusable input cell. It is row-scoped:
// classification carries on and only the dependent outputs are skipped.
type DataValidationError struct {
	Row   int
	Field string
	Value string
	// Reason is set when the cell parsed but is out of range.
	Reason string
}

func (e *DataValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("row %d: invalid %s value %q: %s", e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("row %d: malformed %s value %q", e.Row, e.Field, e.Value)
}

// UnclassifiedStateError reports a time-of-day / grid-status combination
// that no power-source rule covers.
type UnclassifiedStateError struct {
	Row        int
	IsDaytime  bool
	GridStatus string
}

func (e *UnclassifiedStateError) Error() string {
	return fmt.Sprintf("row %d: no power source rule for daytime=%t grid_status=%q", e.Row, e.IsDaytime, e.GridStatus)
}

// RowErrors splits the joined error returned by Classify.
func RowErrors(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
