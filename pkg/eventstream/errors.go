package eventstream

import "errors"

// ErrNilIndexEvent indicates a nil passage event payload was provided to a publisher.
var ErrNilIndexEvent = errors.New("nil passage event")
