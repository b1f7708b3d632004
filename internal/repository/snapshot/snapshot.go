package snapshot

import "errors"

var ErrNotFound = errors.New("snapshot not found")
