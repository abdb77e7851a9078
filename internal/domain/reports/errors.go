package reports

import "errors"

// ErrNotFound indicates the report does not exist.
var ErrNotFound = errors.New("report not found")

// ErrForbidden indicates the requester may not see or mutate the report.
var ErrForbidden = errors.New("report not accessible")
