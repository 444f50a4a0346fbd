package analysis

import "errors"

// ErrArtifactUnreadable indicates the artifact is missing or unreadable at
// start time; no session is created for such a request.
var ErrArtifactUnreadable = errors.New("artifact missing or unreadable")

// ErrSessionNotFound indicates no live or persisted session for the id.
var ErrSessionNotFound = errors.New("session not found")
