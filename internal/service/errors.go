package service

import "errors"

// Sentinel errors surfaced to handlers for status mapping.
var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotRetryable       = errors.New("resultado is not retryable")
	ErrNoEvidence         = errors.New("resultado has no evidence")
)
