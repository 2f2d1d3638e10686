// Package service holds the lobby use cases: request-entry orchestration,
// moderator decisions and media-server participant management.
package service

import (
	"errors"
	"fmt"
)

// ErrCredential is returned when an accepted participant could not be
// issued a media credential.
var ErrCredential = errors.New("credential issuance failed")

// Management error kinds. Handlers translate ErrManagementNotFound into 404
// and ErrManagementUpstream into 500.
var (
	ErrManagementNotFound = errors.New("participant or room not found on media server")
	ErrManagementUpstream = errors.New("media server request failed")
)

// ManagementError reports a failed media-server participant operation.
// Kind is one of ErrManagementNotFound or ErrManagementUpstream; Err is the
// underlying cause.
type ManagementError struct {
	Op   string
	Kind error
	Err  error
}

func (e *ManagementError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *ManagementError) Unwrap() []error { return []error{e.Kind, e.Err} }
