package session

import "errors"

var (
	// ErrInvalidCredentials indicates the email/password pair was rejected.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken indicates registration hit an already used email address.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidEmail indicates the supplied email address is not parseable.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordTooShort indicates the password does not meet the minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	// ErrPasswordMismatch indicates the password and its confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInvalidToken indicates the server rejected a reset or session token.
	ErrInvalidToken = errors.New("invalid or expired token")
)
