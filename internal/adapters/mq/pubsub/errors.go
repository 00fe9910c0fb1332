package pubsub

import "errors"

// ErrClosed is returned when subscribing to a closed hub.
var ErrClosed = errors.New("hub closed")
