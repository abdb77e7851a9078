package analysis

import "errors"

// ErrBadResponse indicates the backend answered with a body that does not
// match the expected shape (missing array, success=false, missing analysis).
var ErrBadResponse = errors.New("analysis backend returned malformed response")

// ErrUnsupported indicates the configured provider cannot serve the
// requested operation.
var ErrUnsupported = errors.New("operation not supported by analysis provider")
