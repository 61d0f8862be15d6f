package store

import "errors"

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrDuplicateKey    = errors.New("already exists")
	ErrStaleGeneration = errors.New("analysis run was superseded")
)
