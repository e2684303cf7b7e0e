package model

import "errors"

// Error kinds returned by the tutoring service. Callers classify with errors.Is;
// components wrap them with context via fmt.Errorf("%w: ...").
var (
	// ErrValidation means a required field is missing or malformed.
	ErrValidation = errors.New("validation error")
	// ErrNotFound means an identifier does not refer to a stored entity.
	ErrNotFound = errors.New("not found")
	// ErrAdmissionDenied means the global request budget is exhausted.
	ErrAdmissionDenied = errors.New("request limit exceeded")
	// ErrGenerationFailed means the language backend call errored.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrMalformedGeneration means backend output could not be parsed into the required structure.
	ErrMalformedGeneration = errors.New("malformed generation")
	// ErrNotYetGraded means the exam exists but no answers were submitted.
	ErrNotYetGraded = errors.New("exam not yet graded")
	// ErrAlreadyGraded means answers were already submitted for the exam.
	ErrAlreadyGraded = errors.New("exam already graded")
)
