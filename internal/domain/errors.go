package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoSnapshot   = errors.New("no snapshot available")
)
