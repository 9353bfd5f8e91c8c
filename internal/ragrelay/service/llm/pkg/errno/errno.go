package errno

import "errors"

var (
	ErrModelNotFound     = errors.New("model not found")
	ErrNoModelConfigured = errors.New("no model configured")
	ErrUnknownAPI        = errors.New("unknown provider api")
)
