package domain

import (
	"errors"
	"fmt"
)

// ErrTimestampAbsent is returned when reading a timestamp that was never set.
var ErrTimestampAbsent = errors.New("timestamp absent")

// ErrInvalidRepoFormat is returned when a repository reference is neither
// 'owner/name' nor a repository URL.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name' or a repository URL", e.Repo)
}
