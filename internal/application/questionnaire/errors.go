package questionnaire

import "errors"

var (
	// ErrUnknownSubmission indicates the submission id is not registered.
	ErrUnknownSubmission = errors.New("unknown submission")

	// ErrBusy indicates a backend request is already in flight for this
	// submission; one request at a time per form instance.
	ErrBusy = errors.New("submission has a request in flight")

	// ErrInvalidState indicates the operation is not legal in the
	// submission's current state.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrIncompleteAnswers indicates the initial answers do not cover the
	// fixed question catalog.
	ErrIncompleteAnswers = errors.New("answers do not cover the question catalog")

	// ErrUnknownQuestion indicates an answer for a question that was never
	// asked.
	ErrUnknownQuestion = errors.New("answer for unknown question")

	// ErrInvalidDepartment indicates the department is not in the fixed list.
	ErrInvalidDepartment = errors.New("invalid department")
)
