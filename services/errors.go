package services

import "fmt"

// ValidationError reports a missing or malformed request parameter.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

// NavigationError reports that the target page could not be loaded in time.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ResourceAcquisitionError reports that no page-rendering resource could be
// obtained.
type ResourceAcquisitionError struct {
	Err error
}

func (e *ResourceAcquisitionError) Error() string {
	return fmt.Sprintf("acquire page: %v", e.Err)
}

func (e *ResourceAcquisitionError) Unwrap() error { return e.Err }
