package invite

import "errors"

// Domain errors.
var (
	ErrNotInitialized = errors.New("invite snapshot not initialized")
	ErrNoGuild        = errors.New("member has no guild")
)
