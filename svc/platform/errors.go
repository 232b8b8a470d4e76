package platform

import "errors"

var (
	ErrInvalidConfig = errors.New("platform: invalid configuration")
	ErrStartup       = errors.New("platform: startup failed")
)
