package viva

import "errors"

var (
	// ErrInvalidTransition indicates an operation not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid viva transition")
	// ErrEmptyAnswer indicates an answer with no text.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrLastQuestion indicates there is no question after the current one.
	ErrLastQuestion = errors.New("no more questions")
)

// Failure reasons shown to the user.
const (
	ReasonMissingProject = "Project ID is missing from the URL."
	ReasonGenerateFailed = "Failed to generate questions for this project."
	ReasonNoQuestions    = "No questions were generated for this project."
)
