package domain

import "errors"

var (
	// ErrInvalidFormat is returned when a question's text or correct index
	// fails structural validation.
	ErrInvalidFormat = errors.New("invalid question format")
	// ErrInvalidOptions is returned when a question does not carry exactly
	// four non-empty options.
	ErrInvalidOptions = errors.New("question must have exactly 4 non-empty options")
	// ErrDuplicateQuestion is returned when normalized question text already
	// exists in the store and duplicates were not explicitly allowed.
	ErrDuplicateQuestion = errors.New("duplicate question")
	// ErrQuestionNotFound indicates the referenced question id or position
	// does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrBatchTooLarge is returned when a batch import exceeds the cap.
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")

	// ErrUnknownPoll is returned for answers to polls that were never bound
	// or whose binding has been evicted. Callers log and drop.
	ErrUnknownPoll = errors.New("unknown poll")
	// ErrAlreadyAnswered is returned when a (poll, user) pair records a
	// second answer. Expected under at-least-once delivery; callers drop it
	// silently and must not surface it as a failure.
	ErrAlreadyAnswered = errors.New("answer already recorded")
)
