package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAuthFailed    = errors.New("authorization failed")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnknownSymbol = errors.New("unknown symbol")
)
