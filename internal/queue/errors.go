package queue

import "errors"

var (
	ErrQueueFull       = errors.New("queue is full")
	ErrQueueNotStarted = errors.New("queue not started")
	ErrQueueClosed     = errors.New("queue is shutting down")
)
