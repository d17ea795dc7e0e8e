package port

import "errors"

// ErrNotFound is returned by stores when a session or clip does not exist.
var ErrNotFound = errors.New("not found")
