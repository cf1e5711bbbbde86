package session

import "errors"

// ErrAlreadyCompleted is returned by MarkComplete on a session that is already complete.
var ErrAlreadyCompleted = errors.New("session already completed")
