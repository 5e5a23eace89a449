package api

import "errors"

var (
	// ErrUnauthenticated indicates the operation requires a valid session
	// and none (or an invalid one) was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrCredentialsInvalid indicates a login or signup attempt was rejected.
	ErrCredentialsInvalid = errors.New("invalid credentials")
	// ErrValidation indicates a client-side required-field check failed
	// before any network request was issued.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRemote covers transport failures and unclassified non-2xx responses.
	ErrRemote = errors.New("remote service error")
)
