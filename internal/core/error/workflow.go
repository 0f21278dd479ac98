package errx

import "errors"

// Workflow failure conditions. ClassifierOutputMissing and
// ResponderOutputMissing are fatal to a run and are never retried.
var (
	ErrClassifierOutputMissing = errors.New("classifier result is undefined")
	ErrResponderOutputMissing  = errors.New("responder result is undefined")
	ErrWorkflowTimeout         = errors.New("workflow deadline exceeded")
	ErrUnknownLabel            = errors.New("label is not part of the classifier enum")
	ErrIncompleteRegistry      = errors.New("responder registry does not cover every label")
)
