package domain

import "errors"

var (
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrBankEmpty indicates a bank with no questions was loaded.
	ErrBankEmpty = errors.New("question bank has no questions")
	// ErrAlreadyQueued is returned when a connection is enqueued twice.
	ErrAlreadyQueued = errors.New("participant already waiting for a match")
	// ErrAlreadyInMatch is returned when a connection tries to queue while
	// its match is still live.
	ErrAlreadyInMatch = errors.New("participant already in a match")
)
