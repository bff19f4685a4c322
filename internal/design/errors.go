package design

import "errors"

// Fatal setup errors: the caller aborts the command and returns a non-zero
// exit code on these.
var (
	errZeroPitch    = errors.New("design: zero or negative route pitch")
	errZeroChannels = errors.New("design: die bounding box implies zero grid channels")
)
