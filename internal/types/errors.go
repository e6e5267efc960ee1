package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the core and the serving layer.
//
// ErrNotFound covers unknown players/teams and date ranges with no data:
// recoverable by fixing the request. ErrArtifactMissing means the trained
// model artifacts do not exist yet: the system is not ready, not a caller
// mistake. Feature-vector mismatches are programming errors and are returned
// as plain errors that no caller is expected to handle.
var (
	ErrNotFound        = errors.New("not found")
	ErrArtifactMissing = errors.New("model artifact missing")
)

// NotFoundf wraps ErrNotFound with request detail.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// ArtifactMissingf wraps ErrArtifactMissing with the missing path and the
// command that produces it.
func ArtifactMissingf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrArtifactMissing)...)
}
